// Package catalog persists the deduplicated song and playlist tables.
//
// Three JSON tables live under <library>/metadata: songs, playlists, and the
// derived song-to-playlists mapping. Every save re-reads the on-disk songs
// table, unions it with the in-memory state (memory wins on conflict),
// rebuilds the mapping from the unioned songs, and rewrites each table via
// temp-file-plus-rename so a crash never leaves a truncated table. A file
// lock on the metadata directory enforces the single-writer assumption.
//
// An unreadable existing table is a hard error, not an empty table: silently
// discarding a prior catalog is the one failure mode this store refuses.
package catalog
