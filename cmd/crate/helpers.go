package main

import (
	"context"
	"fmt"

	"crate/internal/catalog"
	"crate/internal/downloads"
	"crate/internal/track"
)

type ingestResult struct {
	playlistSize int
	newSongs     int
}

// ingestRecords folds captured records into the catalog under one playlist
// and queues each resolved song on the download ledger. The catalog is saved
// before returning.
func ingestRecords(ctx context.Context, store *catalog.Store, ledger *downloads.Store, playlistName, sourceURL string, records []track.Record) (ingestResult, error) {
	var result ingestResult

	playlistID := catalog.PlaylistIDFor(playlistName)
	songIDs := make([]string, 0, len(records))
	for _, rec := range records {
		songID, existed := store.Resolve(rec)
		store.UpsertSong(songID, rec, playlistID)
		songIDs = append(songIDs, songID)
		if !existed {
			result.newSongs++
		}
		if ledger != nil {
			if _, err := ledger.Enqueue(ctx, songID, rec); err != nil {
				return result, fmt.Errorf("enqueue download: %w", err)
			}
		}
	}

	playlist := store.UpsertPlaylist(playlistID, playlistName, sourceURL, songIDs)
	if err := store.Save(); err != nil {
		return result, fmt.Errorf("save catalog: %w", err)
	}
	result.playlistSize = len(playlist.SongIDs)
	return result, nil
}

func truncate(value string, limit int) string {
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}
