// Package ingest runs the end-to-end pipeline: enumerate sources, fetch
// their entries, extract and tag article content, chunk and embed it, and
// record the run in the database.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"gridbrief/internal/answer"
	"gridbrief/internal/chunk"
	"gridbrief/internal/core"
	"gridbrief/internal/extract"
	"gridbrief/internal/feeds"
	"gridbrief/internal/llm"
	"gridbrief/internal/logger"
	"gridbrief/internal/scrape"
	"gridbrief/internal/tagging"
)

const (
	defaultWorkers        = 8
	defaultScraperPages   = 3
	defaultEmbedBatch     = 100
	defaultAutoBriefDays  = 7
	summaryFallbackChars  = 100
	maxCountriesPerPinned = 3
	finishTimeout         = 10 * time.Second
)

// sourceCountryPins force a country tag for sources whose articles are
// always about one country but rarely name it. Keyed by source locator.
var sourceCountryPins = map[string]string{
	"neso": "GB", // UK grid operator
}

// Store is the persistence surface the pipeline depends on.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	StartRun(ctx context.Context) (core.IngestionRun, error)
	FinishRun(ctx context.Context, id int64, status core.RunStatus, stats core.RunStats) error
	ListSources(ctx context.Context, enabledOnly bool) ([]core.Source, error)
	UpsertArticle(ctx context.Context, sourceID int64, entry core.Entry, hash string) (core.Article, core.UpsertOutcome, error)
	UpdateArticleContent(ctx context.Context, id int64, text, language string, meta core.ArticleMetadata) error
	UpdateArticleTags(ctx context.Context, id int64, countries, topics, regions []string) error
	ReplaceChunks(ctx context.Context, articleID int64, chunks []core.ArticleChunk) error
	SaveBrief(ctx context.Context, brief core.Brief) (core.Brief, error)
}

// FeedFetcher lists entries from a feed URL.
type FeedFetcher interface {
	FetchEntries(ctx context.Context, feedURL string) ([]core.Entry, error)
}

// ScraperLookup resolves web_scraper locators to their site adapters.
type ScraperLookup interface {
	Lookup(key string) (scrape.Scraper, bool)
}

// ArticleExtractor pulls main content out of an article page.
type ArticleExtractor interface {
	ExtractArticle(ctx context.Context, articleURL string) (extract.Result, error)
}

// BriefGenerator writes the post-run country briefs.
type BriefGenerator interface {
	Generate(ctx context.Context, req answer.BriefRequest) (core.BriefResult, error)
}

// Options tunes a Pipeline. Zero values fall back to defaults.
type Options struct {
	SourceWorkers      int
	ScraperMaxPages    int
	EmbedBatchSize     int
	AutoBriefCountries []string
	AutoBriefDays      int
}

// Pipeline orchestrates one ingestion pass over all enabled sources.
type Pipeline struct {
	store     Store
	feeds     FeedFetcher
	scrapers  ScraperLookup
	extractor ArticleExtractor
	chunker   *chunk.Chunker
	embedder  llm.Embedder
	countries *tagging.CountryTagger
	topics    *tagging.TopicTagger
	briefer   BriefGenerator
	opts      Options
}

// New wires a Pipeline. The briefer is optional; without one the post-run
// auto-briefs are skipped.
func New(store Store, feedFetcher FeedFetcher, scrapers ScraperLookup,
	extractor ArticleExtractor, chunker *chunk.Chunker, embedder llm.Embedder,
	briefer BriefGenerator, opts Options) *Pipeline {
	if opts.SourceWorkers <= 0 {
		opts.SourceWorkers = defaultWorkers
	}
	if opts.ScraperMaxPages <= 0 {
		opts.ScraperMaxPages = defaultScraperPages
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatch
	}
	if opts.AutoBriefDays <= 0 {
		opts.AutoBriefDays = defaultAutoBriefDays
	}
	return &Pipeline{
		store:     store,
		feeds:     feedFetcher,
		scrapers:  scrapers,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		countries: tagging.NewCountryTagger(),
		topics:    tagging.NewTopicTagger(),
		briefer:   briefer,
		opts:      opts,
	}
}

// runState carries the mutable counters of one run behind a mutex; entry
// workers update it concurrently.
type runState struct {
	mu    sync.Mutex
	stats core.RunStats
}

func (s *runState) update(fn func(*core.RunStats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// Run executes one full ingestion pass. Source failures are recorded and
// skipped; only infrastructure failures (run bookkeeping) return an error.
// Cancellation stops scheduling new sources, waits for in-flight articles
// and records the run as failed with the partial stats.
func (p *Pipeline) Run(ctx context.Context) (core.IngestionRun, error) {
	run, err := p.store.StartRun(ctx)
	if err != nil {
		return core.IngestionRun{}, fmt.Errorf("start ingestion run: %w", err)
	}
	logger.Info("ingestion run started", "run_id", run.ID)
	started := time.Now()

	state := &runState{}
	status := core.RunCompleted

	sources, err := p.store.ListSources(ctx, true)
	if err != nil {
		state.stats.AddError(fmt.Sprintf("list sources: %v", err))
		status = core.RunFailed
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			state.stats.AddError("run cancelled")
			status = core.RunFailed
			break
		}
		p.processSource(ctx, src, state)
	}
	if status == core.RunCompleted && ctx.Err() != nil {
		state.stats.AddError("run cancelled")
		status = core.RunFailed
	}

	state.stats.DurationSeconds = time.Since(started).Seconds()

	// The run row must be closed even when ctx was cancelled mid-run.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	if err := p.store.FinishRun(finishCtx, run.ID, status, state.stats); err != nil {
		return core.IngestionRun{}, fmt.Errorf("finish ingestion run %d: %w", run.ID, err)
	}

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = status
	run.Stats = state.stats
	logger.Info("ingestion run finished",
		"run_id", run.ID, "status", status,
		"sources", run.Stats.SourcesProcessed,
		"articles_fetched", run.Stats.ArticlesFetched,
		"articles_new", run.Stats.ArticlesNew,
		"chunks_embedded", run.Stats.ChunksEmbedded,
		"errors", run.Stats.Errors,
		"duration_seconds", run.Stats.DurationSeconds)

	if status == core.RunCompleted {
		p.generateAutoBriefs(ctx)
	}
	return run, nil
}

// processSource lists a source's entries and fans them out to workers.
// A listing failure marks the source as an error sample and moves on.
func (p *Pipeline) processSource(ctx context.Context, src core.Source, state *runState) {
	state.update(func(s *core.RunStats) { s.SourcesProcessed++ })

	entries, err := p.listEntries(ctx, src)
	if err != nil {
		logger.Warn("source listing failed", "source", src.Name, "error", err.Error())
		state.update(func(s *core.RunStats) {
			s.AddError(fmt.Sprintf("source %s: %v", src.Name, err))
		})
		return
	}
	logger.Info("source listed", "source", src.Name, "entries", len(entries))
	state.update(func(s *core.RunStats) { s.ArticlesFetched += len(entries) })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.SourceWorkers)
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			if err := p.processEntry(gctx, src, entry, state); err != nil {
				state.update(func(s *core.RunStats) {
					s.AddError(fmt.Sprintf("article %s: %v", entry.URL, err))
				})
			}
			return nil
		})
	}
	_ = g.Wait() // workers report through the run state, never abort
}

func (p *Pipeline) listEntries(ctx context.Context, src core.Source) ([]core.Entry, error) {
	switch src.Kind {
	case core.SourceRSS, core.SourcePaywalled:
		return p.feeds.FetchEntries(ctx, src.Locator)
	case core.SourceScraper:
		scraper, ok := p.scrapers.Lookup(src.Locator)
		if !ok {
			return nil, fmt.Errorf("no scraper registered for %q", src.Locator)
		}
		return scraper.Scrape(ctx, p.opts.ScraperMaxPages)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// processEntry runs one article through upsert, extraction, tagging,
// chunking and embedding inside a single transaction. A failure rolls back
// this article only.
func (p *Pipeline) processEntry(ctx context.Context, src core.Source, entry core.Entry, state *runState) error {
	if entry.Title == "" || entry.URL == "" {
		logger.Debug("skipping entry without title or url", "source", src.Name)
		return nil
	}
	hash := feeds.ContentHash(entry.Title, entry.URL, entry.Summary)

	return p.store.RunInTx(ctx, func(ctx context.Context) error {
		article, outcome, err := p.store.UpsertArticle(ctx, src.ID, entry, hash)
		if err != nil {
			return err
		}
		state.update(func(s *core.RunStats) {
			switch outcome {
			case core.UpsertInserted:
				s.ArticlesNew++
			case core.UpsertUpdated:
				s.ArticlesUpdated++
			}
		})

		// Extracted content is sticky: once an article has a body we never
		// re-fetch or re-chunk it.
		if article.ContentText != "" {
			return nil
		}

		text, language, meta := p.extractContent(ctx, src, entry)
		if text != "" {
			if err := p.store.UpdateArticleContent(ctx, article.ID, text, language, meta); err != nil {
				return err
			}
			state.update(func(s *core.RunStats) { s.ArticlesExtracted++ })
		}

		tagBody := text
		if tagBody == "" {
			tagBody = entry.Summary
		}
		countries, regions := p.countries.Tag(entry.Title, tagBody)
		topics := p.topics.Tag(entry.Title, tagBody)
		if pin, ok := sourceCountryPins[strings.ToLower(src.Locator)]; ok {
			countries = pinCountry(countries, pin)
		}
		if err := p.store.UpdateArticleTags(ctx, article.ID, countries, topics, regions); err != nil {
			return err
		}
		if len(countries) > 0 || len(topics) > 0 {
			state.update(func(s *core.RunStats) { s.ArticlesTagged++ })
		}

		if text == "" {
			return nil
		}
		return p.chunkAndEmbed(ctx, article, text, countries, topics, state)
	})
}

// extractContent fetches and extracts the article body. Paywalled sources
// are never fetched; a failed or empty extraction falls back to the feed
// summary when it is substantial enough.
func (p *Pipeline) extractContent(ctx context.Context, src core.Source, entry core.Entry) (string, string, core.ArticleMetadata) {
	var text, language string
	meta := core.ArticleMetadata{ImageURL: entry.ImageURL}

	if src.Kind != core.SourcePaywalled {
		res, err := p.extractor.ExtractArticle(ctx, entry.URL)
		if err != nil {
			logger.Warn("extraction failed", "url", entry.URL, "error", err.Error())
		} else {
			text, language = res.Text, res.Language
			if res.ImageURL != "" {
				meta.ImageURL = res.ImageURL
			}
		}
	}

	if text == "" && len(entry.Summary) > summaryFallbackChars {
		text = entry.Summary
		language = extract.DetectLanguage(text)
	}
	return text, language, meta
}

// chunkAndEmbed splits the body, embeds the chunks and swaps in the new
// chunk set. An embedding failure persists the chunks without vectors so
// the backfill job can fill them in later.
func (p *Pipeline) chunkAndEmbed(ctx context.Context, article core.Article, text string, countries, topics []string, state *runState) error {
	pieces := p.chunker.Split(text)
	if len(pieces) == 0 {
		return nil
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Text
	}
	vectors, err := llm.BatchEmbed(ctx, p.embedder, texts, p.opts.EmbedBatchSize)
	embedded := err == nil
	if err != nil {
		logger.Error("embedding failed, persisting chunks without vectors", err,
			"article_id", article.ID, "chunks", len(pieces))
		state.update(func(s *core.RunStats) {
			s.AddError(fmt.Sprintf("embed article %d: %v", article.ID, err))
		})
	}

	chunks := make([]core.ArticleChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = core.ArticleChunk{
			ArticleID:    article.ID,
			ChunkIndex:   piece.Index,
			Text:         piece.Text,
			CountryCodes: countries,
			TopicTags:    topics,
			PublishedAt:  article.PublishedAt,
		}
		if embedded {
			chunks[i].Embedding = vectors[i]
		}
	}
	if err := p.store.ReplaceChunks(ctx, article.ID, chunks); err != nil {
		return err
	}
	state.update(func(s *core.RunStats) {
		s.ChunksCreated += len(chunks)
		if embedded {
			s.ChunksEmbedded += len(chunks)
		}
	})
	return nil
}

// generateAutoBriefs refreshes the cached brief for each configured
// country. Failures are logged, never fatal to the run.
func (p *Pipeline) generateAutoBriefs(ctx context.Context) {
	if p.briefer == nil || len(p.opts.AutoBriefCountries) == 0 {
		return
	}
	for _, cc := range p.opts.AutoBriefCountries {
		res, err := p.briefer.Generate(ctx, answer.BriefRequest{
			CountryCode: cc,
			Days:        p.opts.AutoBriefDays,
		})
		if err != nil {
			logger.Error("auto brief failed", err, "country", cc)
			continue
		}
		if res.ArticleCount == 0 {
			logger.Debug("auto brief skipped, no articles", "country", cc)
			continue
		}
		if _, err := p.store.SaveBrief(ctx, core.Brief{
			CountryCode:  cc,
			Content:      res.Brief,
			ArticleCount: res.ArticleCount,
			DaysRange:    p.opts.AutoBriefDays,
		}); err != nil {
			logger.Error("auto brief save failed", err, "country", cc)
			continue
		}
		logger.Info("auto brief generated", "country", cc, "articles", res.ArticleCount)
	}
}

// pinCountry guarantees the pinned code is present, keeping the tag cap.
func pinCountry(countries []string, pin string) []string {
	for _, c := range countries {
		if c == pin {
			return countries
		}
	}
	countries = append([]string{pin}, countries...)
	if len(countries) > maxCountriesPerPinned {
		countries = countries[:maxCountriesPerPinned]
	}
	return countries
}
