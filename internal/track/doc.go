// Package track converts raw playlist page items into validated records.
//
// Extraction is defensive: every nested lookup has an explicit default and
// never panics, because intercepted payloads routinely arrive truncated or
// with missing branches. Items that fail the minimum-quality gate are
// rejected with a reason and recorded in the session skip log; they never
// reach identity resolution.
package track
