package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"crate/internal/catalog"
	"crate/internal/control"
	"crate/internal/downloads"
)

func newDownloadsCommand(ctx *commandContext) *cobra.Command {
	downloadsCmd := &cobra.Command{
		Use:   "downloads",
		Short: "Manage the audio download ledger",
	}

	downloadsCmd.AddCommand(newDownloadsStatusCommand(ctx))
	downloadsCmd.AddCommand(newDownloadsRetryCommand(ctx))
	downloadsCmd.AddCommand(newDownloadsRunCommand(ctx))

	return downloadsCmd
}

func newDownloadsStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show ledger counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			stats, err := ledger.Stats(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Total", fmt.Sprintf("%d", stats.Total)},
				{"Pending", fmt.Sprintf("%d", stats.Pending)},
				{"In flight", fmt.Sprintf("%d", stats.InFlight)},
				{"Completed", fmt.Sprintf("%d", stats.Completed)},
				{"Existing", fmt.Sprintf("%d", stats.Existing)},
				{"Skipped", fmt.Sprintf("%d", stats.Skipped)},
				{"Failed", fmt.Sprintf("%d", stats.Failed)},
				{"Cancelled", fmt.Sprintf("%d", stats.Cancelled)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Downloads", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	return cmd
}

func newDownloadsRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Reset failed and cancelled downloads to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			reset, err := ledger.RetryFailed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d downloads to pending\n", reset)
			return nil
		},
	}
	return cmd
}

func newDownloadsRunCommand(ctx *commandContext) *cobra.Command {
	var fetcherBin string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download pending songs with an external fetch tool",
		Long: `Drives every pending ledger item through the external fetch tool. The
tool is invoked once per track as:

    <tool> <search query> <destination dir> <quality>

and must print the resulting filename on stdout. During the run, stdin
accepts: pause, resume, cancel, status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fetcherBin == "" {
				return fmt.Errorf("--tool is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			ledger, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer ledger.Close()

			controller := control.New()
			stopCommands := runControlLoop(cmd.InOrStdin(), controller, cmd.OutOrStdout())
			defer stopCommands()

			runner := downloads.NewRunner(ledger, newExecFetcher(fetcherBin), controller, logger, downloads.RunnerOptions{
				DestDir:      cfg.SongsDir(),
				Quality:      cfg.Downloads.AudioQuality,
				MaxRetries:   cfg.Downloads.MaxRetries,
				RetryBackoff: time.Duration(cfg.Downloads.RetryBackoffSecs) * time.Second,
				Delay:        time.Duration(cfg.Downloads.DelaySeconds) * time.Second,
				FetchTimeout: time.Duration(cfg.Downloads.FetchTimeout) * time.Second,
			})

			// Keep the catalog's download view in sync with the ledger.
			store, storeErr := ctx.openCatalog()
			if storeErr == nil {
				defer store.Close()
				runner.OnFinished = func(item *downloads.Item) {
					info := catalog.DownloadInfo{
						Status:      string(item.Status),
						VideoTitle:  item.VideoTitle,
						SearchQuery: item.SearchQuery,
						Filename:    item.Filename,
					}
					if item.CompletedAt != nil {
						info.DownloadedAt = item.CompletedAt.Format(time.RFC3339)
					}
					store.SetDownloadInfo(item.SongID, info)
				}
			} else if !errors.Is(storeErr, catalog.ErrLocked) {
				return storeErr
			}

			summary, err := runner.Run(cmd.Context())
			out := cmd.OutOrStdout()
			if store != nil {
				if saveErr := store.Save(); saveErr != nil {
					return saveErr
				}
			}
			if err != nil {
				if errors.Is(err, control.ErrCancelled) {
					fmt.Fprintf(out, "Run cancelled: %d processed, %d cancelled\n", summary.Processed, summary.Cancelled)
					return nil
				}
				return err
			}

			fmt.Fprintf(out, "Run finished: %d processed, %d completed, %d existing, %d failed\n",
				summary.Processed, summary.Completed, summary.Existing, summary.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&fetcherBin, "tool", "", "External fetch tool invoked per track")
	return cmd
}
