// Package config loads, validates, and normalizes crate's TOML configuration.
//
// Configuration is resolved from an explicit --config path, then
// ~/.config/crate/config.toml, then ./crate.toml. Missing files fall back to
// defaults so the CLI stays usable before `crate config init` has run.
package config
