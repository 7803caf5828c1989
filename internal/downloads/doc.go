// Package downloads persists the per-track acquisition ledger in SQLite and
// drives the search-and-fetch loop against an external fetch tool.
//
// The ledger outlives individual runs: a song enqueued once is never
// re-downloaded unless the user retries it, and a run interrupted by
// cancellation records every unfinished item so a later run can pick them
// back up.
package downloads
