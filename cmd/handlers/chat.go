package handlers

import (
	"strings"

	"github.com/spf13/cobra"

	"gridbrief/internal/answer"
	"gridbrief/internal/core"
	"gridbrief/internal/llm"
	"gridbrief/internal/retrieval"
)

// NewChatCmd creates the one-shot question command.
func NewChatCmd() *cobra.Command {
	var (
		countries []string
		topics    []string
		k         int
	)
	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask a question against the article corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			ctx := cmd.Context()

			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			embedder, err := llm.NewEmbedder(ctx, cfg.Embeddings)
			if err != nil {
				return err
			}
			chat, err := llm.NewChat(ctx, cfg.Chat)
			if err != nil {
				return err
			}

			retriever := retrieval.New(st, embedder, retrieval.Options{
				K:             cfg.Retrieval.K,
				MinSimilarity: cfg.Retrieval.MinSimilarity,
			})
			hint := core.SearchFilters{
				Countries: upperAll(countries),
				Topics:    topics,
			}
			result, err := retriever.Retrieve(ctx, question, hint, k)
			if err != nil {
				return err
			}
			ans, err := answer.New(chat, cfg.Chat.Timeout).Answer(ctx, question, result)
			if err != nil {
				return err
			}

			cmd.Println(ans.Answer)
			cmd.Println()
			cmd.Printf("confidence: %s  mode: %s\n", ans.Confidence, ans.Mode)
			for i, cit := range ans.Citations {
				cmd.Printf("[%d] %s (%s)\n", i+1, cit.Title, cit.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&countries, "country", nil, "filter by ISO-3166 alpha-2 country codes")
	cmd.Flags().StringSliceVar(&topics, "topic", nil, "filter by topic identifiers")
	cmd.Flags().IntVar(&k, "k", 0, "number of chunks to retrieve (default from config)")
	return cmd
}

func upperAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
