package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"gridbrief/internal/config"
	"gridbrief/internal/llm"
	"gridbrief/internal/store"
	"gridbrief/internal/tagging"
)

const backfillBatch = 100

// NewBackfillCmd creates the maintenance command that fills in missing
// chunk embeddings, or re-runs the taggers with --retag.
func NewBackfillCmd() *cobra.Command {
	var retag bool
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed chunks persisted without vectors",
		Long: `Embed chunks that were persisted without vectors, in batches of 100.

With --retag, instead re-run the country and topic taggers over every
article that has chunks and rewrite the tags and the denormalized chunk
filter columns. Useful after keyword table updates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if retag {
				return runRetag(ctx, cmd, st)
			}
			return runEmbedBackfill(ctx, cmd, st, cfg)
		},
	}
	cmd.Flags().BoolVar(&retag, "retag", false, "re-run taggers and rewrite denormalized chunk columns")
	return cmd
}

func runEmbedBackfill(ctx context.Context, cmd *cobra.Command, st *store.Store, cfg *config.Config) error {
	embedder, err := llm.NewEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return err
	}

	total := 0
	for {
		chunks, err := st.ChunksMissingEmbedding(ctx, backfillBatch)
		if err != nil {
			return err
		}
		if len(chunks) == 0 {
			break
		}

		ids := make([]int64, len(chunks))
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
			texts[i] = c.Text
		}
		vectors, err := llm.BatchEmbed(ctx, embedder, texts, cfg.Embeddings.BatchSize)
		if err != nil {
			return err
		}
		if err := st.SetChunkEmbeddings(ctx, ids, vectors); err != nil {
			return err
		}
		total += len(chunks)
		cmd.Printf("embedded %d chunks\n", total)
	}
	cmd.Printf("done: %d chunks embedded\n", total)
	return nil
}

func runRetag(ctx context.Context, cmd *cobra.Command, st *store.Store) error {
	countryTagger := tagging.NewCountryTagger()
	topicTagger := tagging.NewTopicTagger()

	total := 0
	var afterID int64
	for {
		articles, err := st.ArticlesWithChunks(ctx, afterID, backfillBatch)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			break
		}

		for _, a := range articles {
			body := a.ContentText
			if body == "" {
				body = a.RawSummary
			}
			countries, regions := countryTagger.Tag(a.Title, body)
			topics := topicTagger.Tag(a.Title, body)

			err := st.RunInTx(ctx, func(ctx context.Context) error {
				if err := st.UpdateArticleTags(ctx, a.ID, countries, topics, regions); err != nil {
					return err
				}
				return st.SyncChunkFilters(ctx, a.ID, countries, topics, a.PublishedAt)
			})
			if err != nil {
				return err
			}
			afterID = a.ID
		}
		total += len(articles)
		cmd.Printf("retagged %d articles\n", total)
	}
	cmd.Printf("done: %d articles retagged\n", total)
	return nil
}
