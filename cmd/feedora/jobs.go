package main

import (
	"fmt"

	"github.com/feedora/backend/internal/search"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/stories"
	"github.com/feedora/backend/internal/telemetry"
	"github.com/spf13/cobra"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Story maintenance",
}

var storiesCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired stories, their views and their media",
	RunE: func(cmd *cobra.Command, args []string) error {
		media, err := storage.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		rep := stories.NewCleanupService(db, media, cfg.StoryCleanupInterval).RunOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "stories=%d views=%d media=%d errors=%d\n",
			rep.Stories, rep.Views, rep.Media, rep.Errors)
		if rep.Errors > 0 {
			return fmt.Errorf("%d stories could not be removed", rep.Errors)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Recipe search index maintenance",
}

var searchReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the recipe index from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ElasticsearchURL == "" {
			return fmt.Errorf("ELASTICSEARCH_URL is not set")
		}
		client, err := search.NewClient(cmd.Context(), cfg.ElasticsearchURL, telemetry.NewInstrumentedTransport())
		if err != nil {
			return err
		}
		if err := client.InitializeIndices(cmd.Context()); err != nil {
			return err
		}
		indexed, failed, err := client.Reindex(cmd.Context(), db)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed=%d failed=%d\n", indexed, failed)
		return nil
	},
}

func init() {
	storiesCmd.AddCommand(storiesCleanupCmd)
	searchCmd.AddCommand(searchReindexCmd)
}
