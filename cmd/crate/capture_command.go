package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/capture"
	"crate/internal/cover"
	"crate/internal/track"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var playlistName string
	var playlistURL string
	var eventsPath string
	var follow bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture intercepted playlist traffic into the catalog",
		Long: `Reads intercepted network events (JSON lines, one event per line) from a
proxy dump file or stdin, extracts playlist tracks, and folds them into the
catalog under the given playlist name.

While reading from a file, stdin accepts session commands:
stop, scroll on, scroll off, status, items.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if playlistName == "" {
				return fmt.Errorf("--playlist is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var reader io.Reader
			var commands io.Reader
			if eventsPath == "" || eventsPath == "-" {
				reader = cmd.InOrStdin()
			} else {
				file, err := os.Open(eventsPath)
				if err != nil {
					return fmt.Errorf("open events file: %w", err)
				}
				defer file.Close()
				reader = file
				commands = cmd.InOrStdin()
			}

			normalizer := track.NewNormalizer(track.Options{
				MinNameLength:       cfg.Validation.MinTrackNameLength,
				MinArtistLength:     cfg.Validation.MinArtistNameLength,
				PreferredCoverWidth: cfg.CoverArt.PreferredWidth,
			})
			skipLog := track.NewSkipLog(filepath.Join(cfg.Paths.LogDir, "skipped_tracks.log"))
			deduper := capture.NewDeduper(cfg.Capture.TargetAPIURL, normalizer, skipLog, logger)

			source := capture.NewStreamSource(reader)
			session := capture.NewSession(source, nil, deduper, logger, capture.SessionOptions{
				PollInterval:      time.Duration(cfg.Capture.PollIntervalMillis) * time.Millisecond,
				Commands:          commands,
				StopWhenExhausted: !follow,
			})

			records, err := session.Run(cmd.Context())
			if err != nil {
				return err
			}
			if streamErr := source.Err(); streamErr != nil {
				logger.Warn("event stream had errors", "error", streamErr)
			}

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			result, err := ingestRecords(cmd.Context(), store, ledger, playlistName, playlistURL, records)
			if err != nil {
				return err
			}

			if cfg.CoverArt.Enabled {
				coverDir := filepath.Join(cfg.SongsDir(), "covers")
				if err := os.MkdirAll(coverDir, 0o755); err != nil {
					return fmt.Errorf("create covers directory: %w", err)
				}
				fetcher := cover.NewFetcher(cfg.CoverArt, logger)
				for _, rec := range records {
					if _, err := fetcher.Fetch(cmd.Context(), rec, coverDir); err != nil {
						logger.Warn("cover art fetch failed", "track", rec.Name, "error", err)
					}
				}
			}

			stats := deduper.Stats()
			rows := [][]string{
				{"Playlist", playlistName},
				{"Pages", fmt.Sprintf("%d", stats.PagesClassified)},
				{"Duplicate events", fmt.Sprintf("%d", stats.Duplicates)},
				{"Tracks captured", fmt.Sprintf("%d", len(records))},
				{"Rejected", fmt.Sprintf("%d", stats.Rejected)},
				{"Songs in playlist", fmt.Sprintf("%d", result.playlistSize)},
				{"New songs", fmt.Sprintf("%d", result.newSongs)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Capture", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVar(&playlistName, "playlist", "", "Playlist name the captured tracks belong to")
	cmd.Flags().StringVar(&playlistURL, "url", "", "Playlist source URL recorded in the catalog")
	cmd.Flags().StringVar(&eventsPath, "events", "-", "Event dump file, or - for stdin")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep capturing after the event stream is exhausted")
	return cmd
}
