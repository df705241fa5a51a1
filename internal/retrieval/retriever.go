// Package retrieval turns a natural-language question into a bounded set of
// grounded chunks with a confidence grade, escalating through semantic,
// country-scoped, keyword and general-knowledge strategies.
package retrieval

import (
	"context"
	"fmt"

	"gridbrief/internal/core"
	"gridbrief/internal/llm"
	"gridbrief/internal/logger"
	"gridbrief/internal/tagging"
)

// Retrieval modes, in fallback-ladder order.
const (
	ModeSemantic      = "semantic"       // filtered vector search cleared the confidence bar
	ModeCountryScoped = "country_scoped" // recent-article previews for the detected country
	ModeKeyword       = "keyword"        // title-phrase search over the question's terms
	ModeGeneral       = "general"        // nothing retrieved; answerer uses general knowledge
)

const (
	defaultK             = 8
	defaultMinSimilarity = 0.5

	highMaxSimilarity  = 0.80
	highMeanSimilarity = 0.70
	mediumMaxSimilarity = 0.65

	countryFallbackLimit = 10
	keywordFallbackLimit = 10
	previewChars         = 500
)

// SearchStore is the slice of the store the retriever needs.
type SearchStore interface {
	VectorSearch(ctx context.Context, qvec []float32, filters core.SearchFilters, k int) ([]core.RetrievedChunk, error)
	RecentArticles(ctx context.Context, filters core.SearchFilters, limit int) ([]core.Article, error)
	SearchByTitlePhrases(ctx context.Context, phrases []string, filters core.SearchFilters, limit int) ([]core.Article, error)
}

// Result is what the answerer consumes: context chunks, the grade, the fused
// filters and which strategy produced them.
type Result struct {
	Question       string
	Chunks         []core.RetrievedChunk
	Confidence     core.Confidence
	FiltersApplied core.SearchFilters
	Mode           string
}

// Options tunes a Retriever. Zero values fall back to the package defaults.
type Options struct {
	K             int
	MinSimilarity float64
}

// Retriever runs hybrid retrieval over the chunk corpus.
type Retriever struct {
	store     SearchStore
	embedder  llm.Embedder
	countries *tagging.CountryTagger
	topics    *tagging.TopicTagger
	k         int
	minSim    float64
}

// New builds a Retriever with its own tagger instances for filter fusion.
func New(store SearchStore, embedder llm.Embedder, opts Options) *Retriever {
	if opts.K <= 0 {
		opts.K = defaultK
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = defaultMinSimilarity
	}
	return &Retriever{
		store:     store,
		embedder:  embedder,
		countries: tagging.NewCountryTagger(),
		topics:    tagging.NewTopicTagger(),
		k:         opts.K,
		minSim:    opts.MinSimilarity,
	}
}

// Retrieve fuses filters out of the question, runs filtered vector search
// and walks the fallback ladder when confidence comes out low.
func (r *Retriever) Retrieve(ctx context.Context, question string, hint core.SearchFilters, k int) (Result, error) {
	if k <= 0 {
		k = r.k
	}
	filters := r.fuseFilters(question, hint)

	qvecs, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return Result{}, fmt.Errorf("embed question: %w", err)
	}

	chunks, err := r.store.VectorSearch(ctx, qvecs[0], filters, k)
	if err != nil {
		return Result{}, fmt.Errorf("vector search: %w", err)
	}
	chunks = dropBelow(chunks, r.minSim)

	confidence := gradeConfidence(chunks)
	if confidence != core.ConfidenceLow {
		return Result{
			Question:       question,
			Chunks:         chunks,
			Confidence:     confidence,
			FiltersApplied: filters,
			Mode:           ModeSemantic,
		}, nil
	}

	logger.Debug("semantic retrieval below confidence bar, entering fallback ladder",
		"question", question, "hits", len(chunks))
	return r.fallback(ctx, question, filters)
}

// fuseFilters merges caller hints with filters detected in the question.
// A country named in the question overrides the hint; topics are unioned.
func (r *Retriever) fuseFilters(question string, hint core.SearchFilters) core.SearchFilters {
	fused := core.SearchFilters{
		Countries: hint.Countries,
		Topics:    hint.Topics,
		DateFrom:  hint.DateFrom,
		DateTo:    hint.DateTo,
	}
	if detected := r.countries.CountriesInText(question); len(detected) > 0 {
		fused.Countries = detected
	}
	fused.Topics = unionStrings(hint.Topics, r.topics.TopicsInText(question))
	return fused
}

// fallback walks the ladder: country-scoped recent articles, then title
// phrases, then general knowledge.
func (r *Retriever) fallback(ctx context.Context, question string, filters core.SearchFilters) (Result, error) {
	if len(filters.Countries) > 0 {
		articles, err := r.store.RecentArticles(ctx, filters, countryFallbackLimit)
		if err != nil {
			return Result{}, fmt.Errorf("country-scoped fallback: %w", err)
		}
		if len(articles) > 0 {
			return Result{
				Question:       question,
				Chunks:         previewChunks(articles),
				Confidence:     core.ConfidenceMedium,
				FiltersApplied: filters,
				Mode:           ModeCountryScoped,
			}, nil
		}
	}

	if phrases := questionPhrases(question); len(phrases) > 0 {
		articles, err := r.store.SearchByTitlePhrases(ctx, phrases, filters, keywordFallbackLimit)
		if err != nil {
			return Result{}, fmt.Errorf("keyword fallback: %w", err)
		}
		if len(articles) > 0 {
			return Result{
				Question:       question,
				Chunks:         previewChunks(articles),
				Confidence:     core.ConfidenceMedium,
				FiltersApplied: filters,
				Mode:           ModeKeyword,
			}, nil
		}
	}

	return Result{
		Question:       question,
		Confidence:     core.ConfidenceLow,
		FiltersApplied: filters,
		Mode:           ModeGeneral,
	}, nil
}

// gradeConfidence maps similarity statistics to the three-valued grade.
func gradeConfidence(chunks []core.RetrievedChunk) core.Confidence {
	if len(chunks) == 0 {
		return core.ConfidenceLow
	}
	var max, sum float64
	for _, c := range chunks {
		if c.Similarity > max {
			max = c.Similarity
		}
		sum += c.Similarity
	}
	mean := sum / float64(len(chunks))

	switch {
	case max >= highMaxSimilarity && mean >= highMeanSimilarity:
		return core.ConfidenceHigh
	case max >= mediumMaxSimilarity:
		return core.ConfidenceMedium
	default:
		return core.ConfidenceLow
	}
}

func dropBelow(chunks []core.RetrievedChunk, minSim float64) []core.RetrievedChunk {
	kept := chunks[:0]
	for _, c := range chunks {
		if c.Similarity >= minSim {
			kept = append(kept, c)
		}
	}
	return kept
}

// previewChunks builds a synthetic chunk set from article previews so the
// answerer can treat fallback results like retrieved context.
func previewChunks(articles []core.Article) []core.RetrievedChunk {
	chunks := make([]core.RetrievedChunk, 0, len(articles))
	for _, a := range articles {
		text := a.ContentText
		if text == "" {
			text = a.RawSummary
		}
		if runes := []rune(text); len(runes) > previewChars {
			text = string(runes[:previewChars]) + "..."
		}
		if text == "" {
			text = a.Title
		}
		chunks = append(chunks, core.RetrievedChunk{
			ArticleID:    a.ID,
			Text:         text,
			Title:        a.Title,
			URL:          a.URL,
			PublishedAt:  a.PublishedAt,
			CountryCodes: a.CountryCodes,
			TopicTags:    a.TopicTags,
		})
	}
	return chunks
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
