// Package testsupport provides shared helpers for package tests: temp-dir
// seeded configurations and pre-opened catalog stores.
package testsupport

import (
	"path/filepath"
	"testing"

	"crate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.BatchFile = filepath.Join(base, "playlist_batch.json")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithTargetURL overrides the capture endpoint on the test config.
func WithTargetURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Capture.TargetAPIURL = url
	}
}

// WithValidationLengths sets the minimum name and artist lengths.
func WithValidationLengths(name, artist int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Validation.MinTrackNameLength = name
		cfg.Validation.MinArtistNameLength = artist
	}
}
