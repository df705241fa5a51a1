package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridbrief/internal/core"
)

// NewIngestCmd creates the one-shot ingestion command.
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass over all enabled sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			pipeline, err := buildPipeline(ctx, cfg, st)
			if err != nil {
				return err
			}
			run, err := pipeline.Run(ctx)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			if run.Status == core.RunFailed {
				return fmt.Errorf("ingestion run %d failed", run.ID)
			}
			return nil
		},
	}
}

func printRun(cmd *cobra.Command, run core.IngestionRun) {
	cmd.Printf("run %d: %s\n", run.ID, run.Status)
	cmd.Printf("  sources processed:  %d\n", run.Stats.SourcesProcessed)
	cmd.Printf("  articles fetched:   %d\n", run.Stats.ArticlesFetched)
	cmd.Printf("  articles new:       %d\n", run.Stats.ArticlesNew)
	cmd.Printf("  articles updated:   %d\n", run.Stats.ArticlesUpdated)
	cmd.Printf("  articles extracted: %d\n", run.Stats.ArticlesExtracted)
	cmd.Printf("  articles tagged:    %d\n", run.Stats.ArticlesTagged)
	cmd.Printf("  chunks created:     %d\n", run.Stats.ChunksCreated)
	cmd.Printf("  chunks embedded:    %d\n", run.Stats.ChunksEmbedded)
	cmd.Printf("  errors:             %d\n", run.Stats.Errors)
	for _, sample := range run.Stats.ErrorDetails {
		cmd.Printf("    - %s\n", sample)
	}
	cmd.Printf("  duration:           %.1fs\n", run.Stats.DurationSeconds)
}
