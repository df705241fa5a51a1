package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbrief/internal/core"
	"gridbrief/internal/llm"
	"gridbrief/internal/retrieval"
)

func semanticResult() retrieval.Result {
	published := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return retrieval.Result{
		Question:   "What happened with offshore wind?",
		Confidence: core.ConfidenceHigh,
		Mode:       retrieval.ModeSemantic,
		Chunks: []core.RetrievedChunk{
			{ChunkID: 10, ArticleID: 1, Text: "First auction round closed.",
				Title: "Auction closes", URL: "https://news.example.com/a", PublishedAt: &published, Similarity: 0.9},
			{ChunkID: 11, ArticleID: 1, Text: "Bids came in below estimates.",
				Title: "Auction closes", URL: "https://news.example.com/a", PublishedAt: &published, Similarity: 0.85},
			{ChunkID: 20, ArticleID: 2, Text: "Grid connection delayed.",
				Title: "Grid delay", URL: "https://other.example.org/b", Similarity: 0.8},
		},
	}
}

func TestAnswerGroundedMode(t *testing.T) {
	chat := llm.NewFakeChat()
	chat.Response = "The auction closed below estimates [1][2]."
	a := New(chat, 0)

	res, err := a.Answer(context.Background(), "What happened with offshore wind?", semanticResult())
	require.NoError(t, err)

	assert.Equal(t, "The auction closed below estimates [1][2].", res.Answer)
	assert.Equal(t, core.ConfidenceHigh, res.Confidence)
	assert.Equal(t, retrieval.ModeSemantic, res.Mode)

	req := chat.LastRequest()
	assert.InDelta(t, 0.1, req.Temperature, 0.001)
	assert.Equal(t, 1000, req.MaxTokens)
	assert.Contains(t, req.System, "[1] First auction round closed.")
	assert.Contains(t, req.System, "Published: 2025-06-01")
	assert.Contains(t, req.System, "Published: Unknown")
	assert.Contains(t, req.System, "ONLY the context provided below")
}

func TestAnswerCitationsDedupedByArticle(t *testing.T) {
	chat := llm.NewFakeChat()
	a := New(chat, 0)

	res, err := a.Answer(context.Background(), "q", semanticResult())
	require.NoError(t, err)

	require.Len(t, res.Citations, 2)
	assert.Equal(t, int64(1), res.Citations[0].ArticleID)
	assert.Equal(t, int64(10), res.Citations[0].ChunkID) // first chunk of the article
	assert.Equal(t, "news.example.com", res.Citations[0].Source)
	assert.Equal(t, int64(2), res.Citations[1].ArticleID)
}

func TestAnswerGeneralMode(t *testing.T) {
	chat := llm.NewFakeChat()
	a := New(chat, 0)

	res, err := a.Answer(context.Background(), "thermodynamics?", retrieval.Result{
		Mode:       retrieval.ModeGeneral,
		Confidence: core.ConfidenceLow,
	})
	require.NoError(t, err)

	assert.Equal(t, retrieval.ModeGeneral, res.Mode)
	assert.Equal(t, core.ConfidenceLow, res.Confidence)
	assert.Empty(t, res.Citations)

	req := chat.LastRequest()
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	assert.Contains(t, req.System, "general knowledge")
}

func TestAnswerProviderFailure(t *testing.T) {
	chat := llm.NewFakeChat()
	chat.Err = errors.New("rate limited")
	a := New(chat, 0)

	_, err := a.Answer(context.Background(), "q", semanticResult())
	require.Error(t, err)

	var answerErr *AnswerError
	assert.ErrorAs(t, err, &answerErr)
}

func TestBriefGenerate(t *testing.T) {
	published := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeBriefStore{articles: []core.Article{
		{ID: 1, Title: "Solar record", URL: "https://example.com/1", PublishedAt: &published,
			ContentText: strings.Repeat("sunlight ", 100),
			CountryCodes: []string{"DE"}, TopicTags: []string{"renewables_solar"},
			Metadata: core.ArticleMetadata{ImageURL: "https://example.com/1.jpg"}},
		{ID: 2, Title: "Grid plan", URL: "https://example.com/2", RawSummary: "short summary"},
	}}
	chat := llm.NewFakeChat()
	chat.Response = "## Overview\nSolar set a record [1]."
	b := NewBriefer(store, chat, 0)

	res, err := b.Generate(context.Background(), BriefRequest{CountryCode: "DE"})
	require.NoError(t, err)

	assert.Equal(t, chat.Response, res.Brief)
	assert.Equal(t, 2, res.ArticleCount)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "https://example.com/1.jpg", res.Articles[0].ImageURL)

	req := chat.LastRequest()
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
	assert.Equal(t, 2000, req.MaxTokens)
	assert.Contains(t, req.System, "(country: DE)")
	assert.Contains(t, req.System, "[1] Solar record")
	assert.Contains(t, req.System, "Countries: DE")
	assert.Contains(t, req.System, "short summary")
	// Previews stay bounded.
	assert.NotContains(t, req.System, strings.Repeat("sunlight ", 100))

	require.Len(t, store.filters, 1)
	assert.Equal(t, []string{"DE"}, store.filters[0].Countries)
	require.NotNil(t, store.filters[0].DateFrom)
}

func TestBriefNoArticlesSkipsModel(t *testing.T) {
	store := &fakeBriefStore{}
	chat := llm.NewFakeChat()
	b := NewBriefer(store, chat, 0)

	res, err := b.Generate(context.Background(), BriefRequest{CountryCode: "FR"})
	require.NoError(t, err)

	assert.Equal(t, NoArticlesBrief, res.Brief)
	assert.Zero(t, res.ArticleCount)
	assert.Empty(t, chat.Requests)
}

type fakeBriefStore struct {
	articles []core.Article
	filters  []core.SearchFilters
}

func (f *fakeBriefStore) RecentArticles(_ context.Context, filters core.SearchFilters, _ int) ([]core.Article, error) {
	f.filters = append(f.filters, filters)
	return f.articles, nil
}
