package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbrief/internal/answer"
	"gridbrief/internal/chunk"
	"gridbrief/internal/core"
	"gridbrief/internal/extract"
	"gridbrief/internal/llm"
	"gridbrief/internal/scrape"
)

type memStore struct {
	mu       sync.Mutex
	sources  []core.Source
	articles map[string]*core.Article
	chunks   map[int64][]core.ArticleChunk
	briefs   []core.Brief
	runs     map[int64]struct {
		status core.RunStatus
		stats  core.RunStats
	}
	nextID int64
}

func newMemStore(sources ...core.Source) *memStore {
	return &memStore{
		sources:  sources,
		articles: map[string]*core.Article{},
		chunks:   map[int64][]core.ArticleChunk{},
		runs: map[int64]struct {
			status core.RunStatus
			stats  core.RunStats
		}{},
	}
}

func (m *memStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) StartRun(context.Context) (core.IngestionRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return core.IngestionRun{ID: m.nextID, Status: core.RunRunning}, nil
}

func (m *memStore) FinishRun(_ context.Context, id int64, status core.RunStatus, stats core.RunStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[id] = struct {
		status core.RunStatus
		stats  core.RunStats
	}{status, stats}
	return nil
}

func (m *memStore) ListSources(context.Context, bool) ([]core.Source, error) {
	return m.sources, nil
}

func (m *memStore) UpsertArticle(_ context.Context, sourceID int64, entry core.Entry, hash string) (core.Article, core.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.articles[entry.URL]; ok {
		if existing.ContentHash == hash {
			return *existing, core.UpsertUnchanged, nil
		}
		existing.Title = entry.Title
		existing.RawSummary = entry.Summary
		existing.ContentHash = hash
		return *existing, core.UpsertUpdated, nil
	}
	m.nextID++
	a := &core.Article{
		ID:          m.nextID,
		SourceID:    sourceID,
		Title:       entry.Title,
		URL:         entry.URL,
		PublishedAt: entry.PublishedAt,
		RawSummary:  entry.Summary,
		ContentHash: hash,
		Metadata:    core.ArticleMetadata{ImageURL: entry.ImageURL},
	}
	m.articles[entry.URL] = a
	return *a, core.UpsertInserted, nil
}

func (m *memStore) UpdateArticleContent(_ context.Context, id int64, text, language string, meta core.ArticleMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.ID == id {
			a.ContentText = text
			a.Language = language
			if meta.ImageURL != "" {
				a.Metadata.ImageURL = meta.ImageURL
			}
			return nil
		}
	}
	return fmt.Errorf("article %d not found", id)
}

func (m *memStore) UpdateArticleTags(_ context.Context, id int64, countries, topics, regions []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.ID == id {
			a.CountryCodes = countries
			a.TopicTags = topics
			a.Metadata.Regions = regions
			return nil
		}
	}
	return fmt.Errorf("article %d not found", id)
}

func (m *memStore) ReplaceChunks(_ context.Context, articleID int64, chunks []core.ArticleChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[articleID] = chunks
	return nil
}

func (m *memStore) SaveBrief(_ context.Context, brief core.Brief) (core.Brief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.briefs = append(m.briefs, brief)
	return brief, nil
}

func (m *memStore) article(url string) core.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.articles[url]
}

type fakeFeeds struct {
	entries map[string][]core.Entry
	errs    map[string]error
}

func (f *fakeFeeds) FetchEntries(_ context.Context, feedURL string) ([]core.Entry, error) {
	if err := f.errs[feedURL]; err != nil {
		return nil, err
	}
	return f.entries[feedURL], nil
}

type fakeExtractor struct {
	results map[string]extract.Result
	errs    map[string]error
	mu      sync.Mutex
	calls   []string
}

func (f *fakeExtractor) ExtractArticle(_ context.Context, articleURL string) (extract.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, articleURL)
	f.mu.Unlock()
	if err := f.errs[articleURL]; err != nil {
		return extract.Result{}, err
	}
	return f.results[articleURL], nil
}

type emptyScrapers struct{}

func (emptyScrapers) Lookup(string) (scrape.Scraper, bool) { return nil, false }

func longBody(topic string) string {
	return strings.Repeat("The "+topic+" expansion in Germany continues. ", 40)
}

func newTestPipeline(store *memStore, feedsF *fakeFeeds, ex *fakeExtractor, briefer BriefGenerator, opts Options) *Pipeline {
	return New(store, feedsF, emptyScrapers{}, ex, chunk.New(), llm.NewFakeEmbedder(8), briefer, opts)
}

func TestRunIngestsNewArticles(t *testing.T) {
	store := newMemStore(
		core.Source{ID: 1, Name: "Good Feed", Kind: core.SourceRSS, Locator: "https://good.example.com/rss", Enabled: true},
		core.Source{ID: 2, Name: "Bad Feed", Kind: core.SourceRSS, Locator: "https://bad.example.com/rss", Enabled: true},
	)
	feedsF := &fakeFeeds{
		entries: map[string][]core.Entry{
			"https://good.example.com/rss": {
				{Title: "Solar farm opens near Berlin", URL: "https://good.example.com/a1", Summary: "A new solar farm."},
				{Title: "Wind auction announced", URL: "https://good.example.com/a2", Summary: "An offshore wind auction."},
			},
		},
		errs: map[string]error{
			"https://bad.example.com/rss": errors.New("connection refused"),
		},
	}
	ex := &fakeExtractor{results: map[string]extract.Result{
		"https://good.example.com/a1": {Text: longBody("solar"), Language: "en", ImageURL: "https://good.example.com/a1.jpg"},
		"https://good.example.com/a2": {Text: longBody("offshore wind"), Language: "en"},
	}}

	p := newTestPipeline(store, feedsF, ex, nil, Options{})
	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Equal(t, 2, run.Stats.SourcesProcessed)
	assert.Equal(t, 2, run.Stats.ArticlesFetched)
	assert.Equal(t, 2, run.Stats.ArticlesNew)
	assert.Equal(t, 2, run.Stats.ArticlesExtracted)
	assert.Equal(t, 2, run.Stats.ArticlesTagged)
	assert.Equal(t, 1, run.Stats.Errors)
	require.Len(t, run.Stats.ErrorDetails, 1)
	assert.Contains(t, run.Stats.ErrorDetails[0], "Bad Feed")
	assert.Greater(t, run.Stats.ChunksCreated, 0)
	assert.Equal(t, run.Stats.ChunksCreated, run.Stats.ChunksEmbedded)

	a1 := store.article("https://good.example.com/a1")
	assert.Contains(t, a1.CountryCodes, "DE")
	assert.Contains(t, a1.TopicTags, "renewables_solar")
	assert.Equal(t, "https://good.example.com/a1.jpg", a1.Metadata.ImageURL)

	chunks := store.chunks[a1.ID]
	require.NotEmpty(t, chunks)
	assert.NotEmpty(t, chunks[0].Embedding)
	assert.Equal(t, a1.CountryCodes, chunks[0].CountryCodes)
}

func TestRunStickyContentSkipsReextraction(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "Feed", Kind: core.SourceRSS, Locator: "https://f.example.com/rss", Enabled: true})
	entry := core.Entry{Title: "Solar farm opens", URL: "https://f.example.com/a1", Summary: "A solar farm."}
	feedsF := &fakeFeeds{entries: map[string][]core.Entry{"https://f.example.com/rss": {entry}}}
	ex := &fakeExtractor{results: map[string]extract.Result{
		"https://f.example.com/a1": {Text: longBody("solar"), Language: "en"},
	}}

	p := newTestPipeline(store, feedsF, ex, nil, Options{})
	_, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, ex.calls, 1)

	// Second run: same hash, content already present; the extractor must
	// not be called again.
	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, ex.calls, 1)
	assert.Zero(t, run.Stats.ArticlesNew)
	assert.Zero(t, run.Stats.ArticlesExtracted)
}

func TestRunPaywalledSourceUsesSummaryOnly(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "Paywalled", Kind: core.SourcePaywalled, Locator: "https://p.example.com/rss", Enabled: true})
	longSummary := longBody("solar")
	feedsF := &fakeFeeds{entries: map[string][]core.Entry{
		"https://p.example.com/rss": {
			{Title: "Solar surge", URL: "https://p.example.com/a1", Summary: longSummary},
		},
	}}
	ex := &fakeExtractor{}

	p := newTestPipeline(store, feedsF, ex, nil, Options{})
	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, ex.calls)
	assert.Equal(t, 1, run.Stats.ArticlesExtracted)
	a := store.article("https://p.example.com/a1")
	assert.Equal(t, longSummary, a.ContentText)
}

func TestRunEmbedFailurePersistsChunksWithoutVectors(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "Feed", Kind: core.SourceRSS, Locator: "https://f.example.com/rss", Enabled: true})
	feedsF := &fakeFeeds{entries: map[string][]core.Entry{
		"https://f.example.com/rss": {
			{Title: "Solar farm opens", URL: "https://f.example.com/a1", Summary: "s"},
		},
	}}
	ex := &fakeExtractor{results: map[string]extract.Result{
		"https://f.example.com/a1": {Text: longBody("solar"), Language: "en"},
	}}

	p := newTestPipeline(store, feedsF, ex, nil, Options{})
	p.embedder = &failingEmbedder{}

	run, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Greater(t, run.Stats.ChunksCreated, 0)
	assert.Zero(t, run.Stats.ChunksEmbedded)
	assert.Equal(t, 1, run.Stats.Errors)

	a := store.article("https://f.example.com/a1")
	for _, c := range store.chunks[a.ID] {
		assert.Empty(t, c.Embedding)
	}
}

func TestRunCancelledRecordsFailed(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "Feed", Kind: core.SourceRSS, Locator: "https://f.example.com/rss", Enabled: true})
	feedsF := &fakeFeeds{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(store, feedsF, &fakeExtractor{}, nil, Options{})
	run, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, core.RunFailed, run.Status)
	recorded := store.runs[run.ID]
	assert.Equal(t, core.RunFailed, recorded.status)
}

func TestRunSourceCountryPin(t *testing.T) {
	store := newMemStore(core.Source{ID: 1, Name: "NESO News", Kind: core.SourceScraper, Locator: "neso", Enabled: true})
	scraper := &fakeScraper{entries: []core.Entry{
		{Title: "Grid balancing update", URL: "https://www.neso.energy/news/1", Summary: "Balancing costs fell."},
	}}
	ex := &fakeExtractor{results: map[string]extract.Result{
		"https://www.neso.energy/news/1": {Text: strings.Repeat("Balancing services across the grid improved this quarter. ", 30), Language: "en"},
	}}

	p := New(store, &fakeFeeds{}, fixedScrapers{scraper}, ex, chunk.New(), llm.NewFakeEmbedder(8), nil, Options{})
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	a := store.article("https://www.neso.energy/news/1")
	assert.Contains(t, a.CountryCodes, "GB")
}

func TestRunAutoBriefs(t *testing.T) {
	store := newMemStore()
	briefer := &fakeBriefer{results: map[string]core.BriefResult{
		"DE": {Brief: "German brief", ArticleCount: 4},
		"FR": {ArticleCount: 0},
	}}

	p := newTestPipeline(store, &fakeFeeds{}, &fakeExtractor{}, briefer, Options{
		AutoBriefCountries: []string{"DE", "FR"},
	})
	run, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, run.Status)

	// FR had no articles, so only the DE brief is cached.
	require.Len(t, store.briefs, 1)
	assert.Equal(t, "DE", store.briefs[0].CountryCode)
	assert.Equal(t, "German brief", store.briefs[0].Content)
	assert.Equal(t, 4, store.briefs[0].ArticleCount)
}

type failingEmbedder struct{}

func (failingEmbedder) Dimension() int { return 8 }
func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

type fakeScraper struct {
	entries []core.Entry
}

func (f *fakeScraper) Name() string { return "fake" }
func (f *fakeScraper) Scrape(context.Context, int) ([]core.Entry, error) {
	return f.entries, nil
}

type fixedScrapers struct {
	s scrape.Scraper
}

func (f fixedScrapers) Lookup(string) (scrape.Scraper, bool) { return f.s, true }

type fakeBriefer struct {
	results map[string]core.BriefResult
}

func (f *fakeBriefer) Generate(_ context.Context, req answer.BriefRequest) (core.BriefResult, error) {
	return f.results[req.CountryCode], nil
}
