package handlers

import (
	"strings"

	"github.com/spf13/cobra"

	"gridbrief/internal/answer"
	"gridbrief/internal/llm"
)

// NewBriefCmd creates the one-shot brief command.
func NewBriefCmd() *cobra.Command {
	var (
		country     string
		topic       string
		days        int
		maxArticles int
	)
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Generate an analyst brief over recent articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			chat, err := llm.NewChat(ctx, cfg.Chat)
			if err != nil {
				return err
			}
			briefer := answer.NewBriefer(st, chat, cfg.Chat.Timeout)

			result, err := briefer.Generate(ctx, answer.BriefRequest{
				CountryCode: strings.ToUpper(country),
				Topic:       topic,
				Days:        days,
				MaxArticles: maxArticles,
			})
			if err != nil {
				return err
			}

			cmd.Println(result.Brief)
			if result.ArticleCount > 0 {
				cmd.Println()
				cmd.Printf("based on %d articles, %s\n", result.ArticleCount, result.DateRange)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "ISO-3166 alpha-2 country code")
	cmd.Flags().StringVar(&topic, "topic", "", "topic identifier")
	cmd.Flags().IntVar(&days, "days", 0, "look-back window in days (default 7)")
	cmd.Flags().IntVar(&maxArticles, "max-articles", 0, "articles to draw on (default 15)")
	return cmd
}
