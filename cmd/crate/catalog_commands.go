package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the song catalog",
	}

	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogVerifyCommand(ctx))
	catalogCmd.AddCommand(newCatalogPlaylistsCommand(ctx))

	return catalogCmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show catalog counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			stats := store.Stats()
			rows := [][]string{
				{"Songs", fmt.Sprintf("%d", stats.Songs)},
				{"Playlists", fmt.Sprintf("%d", stats.Playlists)},
				{"Performers", fmt.Sprintf("%d", stats.Performers)},
				{"Mapped songs", fmt.Sprintf("%d", stats.Mappings)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Catalog", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	return cmd
}

func newCatalogVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check mapping and membership consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			problems, err := store.Verify()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(problems) == 0 {
				fmt.Fprintln(out, "Catalog is consistent.")
				return nil
			}
			for _, problem := range problems {
				fmt.Fprintf(out, "PROBLEM: %s\n", problem)
			}
			return fmt.Errorf("catalog has %d consistency problems", len(problems))
		},
	}
	return cmd
}

func newCatalogPlaylistsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "List catalogued playlists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			playlists := store.Playlists()
			if len(playlists) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Catalog has no playlists yet.")
				return nil
			}

			rows := make([][]string, 0, len(playlists))
			for _, playlist := range playlists {
				rows = append(rows, []string{
					truncate(playlist.Name, 40),
					fmt.Sprintf("%d", playlist.TotalTracks),
					fmt.Sprintf("%d", playlist.Revision),
					playlist.LastUpdated,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Playlist", "Tracks", "Revision", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	return cmd
}
