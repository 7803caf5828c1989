package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/batch"
	"crate/internal/capture"
	"crate/internal/catalog"
	"crate/internal/control"
	"crate/internal/track"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage the playlist batch queue",
	}

	batchCmd.AddCommand(newBatchAddCommand(ctx))
	batchCmd.AddCommand(newBatchStatusCommand(ctx))
	batchCmd.AddCommand(newBatchRunCommand(ctx))

	return batchCmd
}

func (c *commandContext) loadBatchFile() (*batch.File, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return batch.Load(cfg.Paths.BatchFile)
}

func newBatchAddCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Queue a playlist for capture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := ctx.loadBatchFile()
			if err != nil {
				return err
			}
			job, err := file.Add(args[0], args[1])
			if err != nil {
				return err
			}
			if err := file.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %q (%d playlists in batch)\n", job.Name, len(file.Playlists))
			return nil
		},
	}
	return cmd
}

func newBatchStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show batch queue state",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := ctx.loadBatchFile()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(file.Playlists))
			for i, job := range file.Playlists {
				errText := job.Error
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					truncate(job.Name, 40),
					string(job.Status),
					fmt.Sprintf("%d", job.TracksCount),
					fmt.Sprintf("%d", job.SuccessCount),
					truncate(errText, 40),
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "Batch is empty; queue playlists with `crate batch add`.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Playlist", "Status", "Tracks", "Saved", "Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			pending, completed, failed := file.Summary()
			fmt.Fprintf(out, "%d pending, %d completed, %d failed (cursor at %d)\n",
				pending, completed, failed, file.CurrentIndex)
			return nil
		},
	}
	return cmd
}

func newBatchRunCommand(ctx *commandContext) *cobra.Command {
	var eventsDir string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process pending batch jobs",
		Long: `Processes every pending playlist job. Each job reads its intercepted
events from <events-dir>/<playlist-id>.jsonl, extracts and resolves tracks,
and persists them to the catalog. During the run, stdin accepts:
pause, resume, cancel, status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventsDir == "" {
				return fmt.Errorf("--events-dir is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			file, err := ctx.loadBatchFile()
			if err != nil {
				return err
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

			normalizer := track.NewNormalizer(track.Options{
				MinNameLength:       cfg.Validation.MinTrackNameLength,
				MinArtistLength:     cfg.Validation.MinArtistNameLength,
				PreferredCoverWidth: cfg.CoverArt.PreferredWidth,
			})
			skipLog := track.NewSkipLog(filepath.Join(cfg.Paths.LogDir, "skipped_tracks.log"))

			processor := batch.ProcessorFunc(func(jobCtx context.Context, job batch.Job) ([]track.Record, error) {
				path := filepath.Join(eventsDir, catalog.PlaylistIDFor(job.Name)+".jsonl")
				events, err := os.Open(path)
				if err != nil {
					return nil, fmt.Errorf("open events for %q: %w", job.Name, err)
				}
				defer events.Close()

				deduper := capture.NewDeduper(cfg.Capture.TargetAPIURL, normalizer, skipLog, logger)
				session := capture.NewSession(capture.NewStreamSource(events), nil, deduper, logger, capture.SessionOptions{
					PollInterval:      time.Duration(cfg.Capture.PollIntervalMillis) * time.Millisecond,
					StopWhenExhausted: true,
				})
				return session.Run(jobCtx)
			})

			controller := control.New()
			stopCommands := runControlLoop(cmd.InOrStdin(), controller, cmd.OutOrStdout())
			defer stopCommands()

			runner := batch.NewRunner(file, store, processor, controller, ledger, logger)
			summary, err := runner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			if err != nil {
				if errors.Is(err, control.ErrCancelled) {
					fmt.Fprintf(out, "Batch cancelled after %d jobs (%d completed, %d failed)\n",
						summary.JobsRun, summary.Completed, summary.Failed)
					return nil
				}
				return err
			}

			fmt.Fprintf(out, "Batch finished: %d jobs, %d completed, %d failed, %d songs saved\n",
				summary.JobsRun, summary.Completed, summary.Failed, summary.Songs)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventsDir, "events-dir", "", "Directory of per-playlist event dumps")
	return cmd
}
