package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gridbrief/internal/core"
	"gridbrief/internal/llm"
)

const (
	briefTemperature = 0.3
	briefMaxTokens   = 2000

	defaultBriefDays     = 7
	defaultBriefArticles = 15
	briefPreviewChars    = 500
	briefDisplayArticles = 5

	// NoArticlesBrief is returned verbatim when nothing matched; the model
	// is not called in that case.
	NoArticlesBrief = "No articles found matching the specified criteria."
)

// BriefRequest scopes a brief to a country, topic and time window.
type BriefRequest struct {
	CountryCode string
	Topic       string
	Days        int
	MaxArticles int
}

func (r BriefRequest) normalized() BriefRequest {
	if r.Days <= 0 {
		r.Days = defaultBriefDays
	}
	if r.MaxArticles <= 0 {
		r.MaxArticles = defaultBriefArticles
	}
	return r
}

// BriefStore is the slice of the store the briefer needs.
type BriefStore interface {
	RecentArticles(ctx context.Context, filters core.SearchFilters, limit int) ([]core.Article, error)
}

// Briefer writes analyst briefs over recent articles.
type Briefer struct {
	store    BriefStore
	chat     llm.Chat
	deadline time.Duration
}

// NewBriefer builds a Briefer. A non-positive deadline uses the 60s default.
func NewBriefer(store BriefStore, chat llm.Chat, deadline time.Duration) *Briefer {
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Briefer{store: store, chat: chat, deadline: deadline}
}

// Generate fetches the matching articles and writes a structured brief.
func (b *Briefer) Generate(ctx context.Context, req BriefRequest) (core.BriefResult, error) {
	req = req.normalized()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -req.Days)
	filters := core.SearchFilters{DateFrom: &start, DateTo: &end}
	if req.CountryCode != "" {
		filters.Countries = []string{req.CountryCode}
	}
	if req.Topic != "" {
		filters.Topics = []string{req.Topic}
	}

	articles, err := b.store.RecentArticles(ctx, filters, req.MaxArticles)
	if err != nil {
		return core.BriefResult{}, fmt.Errorf("fetch articles for brief: %w", err)
	}

	dateRange := fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	if len(articles) == 0 {
		return core.BriefResult{
			Brief:     NoArticlesBrief,
			Articles:  []core.BriefArticle{},
			DateRange: dateRange,
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, b.deadline)
	defer cancel()

	text, err := b.chat.Generate(ctx, llm.GenerateRequest{
		System:      briefSystemPrompt(articles, req),
		User:        "Please generate the brief based on the articles provided.",
		Temperature: briefTemperature,
		MaxTokens:   briefMaxTokens,
	})
	if err != nil {
		return core.BriefResult{}, fmt.Errorf("generate brief: %w", err)
	}

	return core.BriefResult{
		Brief:        text,
		ArticleCount: len(articles),
		Articles:     displayArticles(articles),
		DateRange:    dateRange,
	}, nil
}

// briefSystemPrompt numbers the articles with previews and instructs the
// model on the brief structure.
func briefSystemPrompt(articles []core.Article, req BriefRequest) string {
	summaries := make([]string, 0, len(articles))
	for i, a := range articles {
		published := "Unknown"
		if a.PublishedAt != nil {
			published = a.PublishedAt.Format("2006-01-02")
		}
		summaries = append(summaries, fmt.Sprintf(
			"[%d] %s\nPublished: %s\nCountries: %s\nTopics: %s\nURL: %s\n\n%s...",
			i+1, a.Title, published,
			orNone(a.CountryCodes), orNone(a.TopicTags), a.URL,
			preview(a)))
	}

	var filterParts []string
	if req.CountryCode != "" {
		filterParts = append(filterParts, "country: "+req.CountryCode)
	}
	if req.Topic != "" {
		filterParts = append(filterParts, "topic: "+req.Topic)
	}
	filtersText := ""
	if len(filterParts) > 0 {
		filtersText = " (" + strings.Join(filterParts, ", ") + ")"
	}

	return fmt.Sprintf(`You are an expert energy analyst writing a comprehensive brief on recent energy developments%s.

Your task is to analyze the provided articles and create a well-structured brief that:

1. **Overview**: Start with a 2-3 sentence executive summary of the key themes and developments
2. **Key Developments**: Highlight 3-5 major news items or trends, organized by importance
3. **Analysis**: Provide brief insights on what these developments mean for the energy sector
4. **Sources**: Reference specific articles using their numbers [1], [2], etc.

Guidelines:
- Write in a professional, analytical tone
- Focus on factual information from the articles
- Identify patterns and connections between different news items
- Be concise but comprehensive (aim for 400-600 words)
- Use clear section headings
- Cite sources frequently using [1], [2] format

Here are the articles to analyze:

%s

Now write the brief:`, filtersText, strings.Join(summaries, "\n\n"))
}

func preview(a core.Article) string {
	text := a.ContentText
	if text == "" {
		text = a.RawSummary
	}
	if text == "" {
		return "No content available"
	}
	if runes := []rune(text); len(runes) > briefPreviewChars {
		return string(runes[:briefPreviewChars])
	}
	return text
}

func orNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}

func displayArticles(articles []core.Article) []core.BriefArticle {
	n := len(articles)
	if n > briefDisplayArticles {
		n = briefDisplayArticles
	}
	out := make([]core.BriefArticle, 0, n)
	for _, a := range articles[:n] {
		out = append(out, core.BriefArticle{
			ID:          a.ID,
			Title:       a.Title,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
			ImageURL:    a.Metadata.ImageURL,
		})
	}
	return out
}
