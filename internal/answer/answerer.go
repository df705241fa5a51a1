// Package answer turns retrieval results into grounded chat answers and
// analyst briefs via the configured chat provider.
package answer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gridbrief/internal/core"
	"gridbrief/internal/llm"
	"gridbrief/internal/retrieval"
)

const (
	defaultDeadline = 60 * time.Second

	groundedTemperature = 0.1
	generalTemperature  = 0.3
	answerMaxTokens     = 1000
)

// AnswerError wraps a failed answer generation.
type AnswerError struct {
	Question string
	Err      error
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("answer %q: %v", e.Question, e.Err)
}

func (e *AnswerError) Unwrap() error { return e.Err }

// Answerer generates answers from retrieved context.
type Answerer struct {
	chat     llm.Chat
	deadline time.Duration
}

// New builds an Answerer. A non-positive deadline uses the 60s default.
func New(chat llm.Chat, deadline time.Duration) *Answerer {
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Answerer{chat: chat, deadline: deadline}
}

// Answer generates the final answer for a retrieval result. Grounded modes
// constrain the model to the retrieved chunks; general mode falls back to
// the model's own knowledge with a mandatory disclaimer.
func (a *Answerer) Answer(ctx context.Context, question string, r retrieval.Result) (core.ChatAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()

	if r.Mode == retrieval.ModeGeneral || len(r.Chunks) == 0 {
		text, err := a.chat.Generate(ctx, llm.GenerateRequest{
			System:      generalSystemPrompt,
			User:        question,
			Temperature: generalTemperature,
			MaxTokens:   answerMaxTokens,
		})
		if err != nil {
			return core.ChatAnswer{}, &AnswerError{Question: question, Err: err}
		}
		return core.ChatAnswer{
			Answer:         text,
			Citations:      []core.Citation{},
			Confidence:     core.ConfidenceLow,
			FiltersApplied: r.FiltersApplied,
			Mode:           retrieval.ModeGeneral,
		}, nil
	}

	text, err := a.chat.Generate(ctx, llm.GenerateRequest{
		System:      groundedSystemPrompt(r.Chunks),
		User:        question,
		Temperature: groundedTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return core.ChatAnswer{}, &AnswerError{Question: question, Err: err}
	}

	return core.ChatAnswer{
		Answer:         text,
		Citations:      extractCitations(r.Chunks),
		Confidence:     r.Confidence,
		FiltersApplied: r.FiltersApplied,
		Mode:           r.Mode,
	}, nil
}

const generalSystemPrompt = `You are an AI assistant specializing in energy and renewable energy topics.

The user has asked a question, but we don't have relevant articles in our database to answer it directly.
However, you can use your general knowledge to provide a helpful answer.

IMPORTANT: At the end of your response, add a note that this answer is based on general knowledge
since we don't have specific articles on this topic in our database.

Be helpful, accurate, and concise.`

// groundedSystemPrompt numbers the chunks and binds the model to them.
func groundedSystemPrompt(chunks []core.RetrievedChunk) string {
	var context strings.Builder
	for i, c := range chunks {
		if i > 0 {
			context.WriteString("\n\n")
		}
		published := "Unknown"
		if c.PublishedAt != nil {
			published = c.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(&context, "[%d] %s\n(Source: %s, Published: %s)", i+1, c.Text, c.Title, published)
	}

	return fmt.Sprintf(`You are an AI assistant specialized in energy transition news and policy.

Your task is to answer questions using ONLY the context provided below. Follow these rules strictly:

1. Base your answer ONLY on the provided context
2. Cite sources using bracketed numbers like [1], [2], etc. corresponding to the context items
3. If the context doesn't contain enough information to answer the question fully, say so explicitly
4. Do not use external knowledge or make assumptions beyond what's in the context
5. Be concise but comprehensive in your answer
6. Use multiple citations if relevant information comes from multiple sources

Context:
%s

Now answer the user's question using only the context above.`, context.String())
}

// extractCitations dedupes chunks into one citation per article, in
// first-seen chunk order.
func extractCitations(chunks []core.RetrievedChunk) []core.Citation {
	seen := make(map[int64]bool, len(chunks))
	citations := make([]core.Citation, 0, len(chunks))
	for _, c := range chunks {
		if seen[c.ArticleID] {
			continue
		}
		seen[c.ArticleID] = true
		citations = append(citations, core.Citation{
			ArticleID:   c.ArticleID,
			Title:       c.Title,
			URL:         c.URL,
			PublishedAt: c.PublishedAt,
			Source:      urlHost(c.URL),
			ChunkID:     c.ChunkID,
			Similarity:  c.Similarity,
		})
	}
	return citations
}

func urlHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return u.Host
}
