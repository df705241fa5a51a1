package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbrief/internal/answer"
	"gridbrief/internal/config"
	"gridbrief/internal/core"
	"gridbrief/internal/ingest"
	"gridbrief/internal/rank"
	"gridbrief/internal/retrieval"
	"gridbrief/internal/store"
)

type fakeArticles struct {
	items     []store.ArticleListItem
	total     int
	ranking   []core.Article
	counts    []core.CountryCount
	breakdown []core.TopicCount
}

func (f *fakeArticles) SearchArticles(context.Context, store.ArticleQuery) ([]store.ArticleListItem, int, error) {
	return f.items, f.total, nil
}
func (f *fakeArticles) ArticlesForRanking(context.Context, string, int) ([]core.Article, error) {
	return f.ranking, nil
}
func (f *fakeArticles) CountByCountry(context.Context, int) ([]core.CountryCount, error) {
	return f.counts, nil
}
func (f *fakeArticles) DailyActivity(context.Context, int) ([]core.ActivityDay, error) {
	return []core.ActivityDay{{Date: "2025-06-01", Count: 3}}, nil
}
func (f *fakeArticles) TopicBreakdown(context.Context, int) ([]core.TopicCount, error) {
	return f.breakdown, nil
}

type fakeRuns struct {
	runs map[int64]core.IngestionRun
}

func (f *fakeRuns) ListRuns(context.Context, int) ([]core.IngestionRun, error) {
	var out []core.IngestionRun
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}
func (f *fakeRuns) GetRun(_ context.Context, id int64) (core.IngestionRun, error) {
	r, ok := f.runs[id]
	if !ok {
		return core.IngestionRun{}, store.ErrNotFound
	}
	return r, nil
}

type fakeBriefs struct {
	saved  []core.Brief
	latest *core.Brief
}

func (f *fakeBriefs) SaveBrief(_ context.Context, b core.Brief) (core.Brief, error) {
	f.saved = append(f.saved, b)
	return b, nil
}
func (f *fakeBriefs) LatestBrief(context.Context, string, time.Duration) (core.Brief, error) {
	if f.latest == nil {
		return core.Brief{}, store.ErrNotFound
	}
	return *f.latest, nil
}

type fakeRetriever struct {
	result retrieval.Result
	hints  []core.SearchFilters
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, hint core.SearchFilters, _ int) (retrieval.Result, error) {
	f.hints = append(f.hints, hint)
	return f.result, nil
}

type fakeAnswerer struct {
	answer core.ChatAnswer
}

func (f *fakeAnswerer) Answer(context.Context, string, retrieval.Result) (core.ChatAnswer, error) {
	return f.answer, nil
}

type fakeBriefer struct {
	result core.BriefResult
	reqs   []answer.BriefRequest
}

func (f *fakeBriefer) Generate(_ context.Context, req answer.BriefRequest) (core.BriefResult, error) {
	f.reqs = append(f.reqs, req)
	return f.result, nil
}

type fakeTrigger struct {
	busy      bool
	triggered int
}

func (f *fakeTrigger) TriggerAsync() error {
	if f.busy {
		return ingest.ErrRunInProgress
	}
	f.triggered++
	return nil
}
func (f *fakeTrigger) Running() bool { return f.busy }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestServer(deps Deps) *Server {
	if deps.Articles == nil {
		deps.Articles = &fakeArticles{}
	}
	if deps.Runs == nil {
		deps.Runs = &fakeRuns{runs: map[int64]core.IngestionRun{}}
	}
	if deps.Briefs == nil {
		deps.Briefs = &fakeBriefs{}
	}
	if deps.Retriever == nil {
		deps.Retriever = &fakeRetriever{}
	}
	if deps.Answerer == nil {
		deps.Answerer = &fakeAnswerer{}
	}
	if deps.Briefer == nil {
		deps.Briefer = &fakeBriefer{}
	}
	if deps.Ranker == nil {
		deps.Ranker = rank.New(config.Rank{})
	}
	if deps.Ingest == nil {
		deps.Ingest = &fakeTrigger{}
	}
	if deps.Pinger == nil {
		deps.Pinger = okPinger{}
	}
	return New(deps, config.Server{})
}

func doJSON(t *testing.T, s *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	s := newTestServer(Deps{})
	rec, body := doJSON(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListArticles(t *testing.T) {
	long := strings.Repeat("x", 400)
	articles := &fakeArticles{
		items: []store.ArticleListItem{{
			Article:    core.Article{ID: 1, Title: "T", URL: "u", ContentText: long},
			SourceName: "Feed",
		}},
		total: 45,
	}
	s := newTestServer(Deps{Articles: articles})

	rec, body := doJSON(t, s, http.MethodGet, "/api/articles?page=2&page_size=20", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.EqualValues(t, 45, body["total"])
	assert.Equal(t, true, body["has_next"]) // 2*20 < 45
	assert.Equal(t, true, body["has_prev"])

	items := body["items"].([]any)
	require.Len(t, items, 1)
	summary := items[0].(map[string]any)["summary"].(string)
	assert.Len(t, summary, previewChars+3)
}

func TestListArticlesValidation(t *testing.T) {
	s := newTestServer(Deps{})
	for _, target := range []string{
		"/api/articles?days=0",
		"/api/articles?days=999",
		"/api/articles?page_size=500",
		"/api/articles?page=abc",
	} {
		rec, body := doJSON(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, errInvalidRequest, body["error"], target)
	}
}

func TestTopStoriesRequiresCountry(t *testing.T) {
	s := newTestServer(Deps{})
	rec, body := doJSON(t, s, http.MethodGet, "/api/articles/top-stories", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errInvalidRequest, body["error"])
}

func TestTopStoriesRanksArticles(t *testing.T) {
	now := time.Now().UTC()
	old := now.Add(-6 * 24 * time.Hour)
	articles := &fakeArticles{ranking: []core.Article{
		{ID: 1, Title: "Old", URL: "https://example.com/old", PublishedAt: &old},
		{ID: 2, Title: "New", URL: "https://example.com/new", PublishedAt: &now},
	}}
	s := newTestServer(Deps{Articles: articles})

	rec, body := doJSON(t, s, http.MethodGet, "/api/articles/top-stories?country=de", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DE", body["country"])

	items := body["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "New", items[0].(map[string]any)["title"])
}

func TestChat(t *testing.T) {
	retriever := &fakeRetriever{result: retrieval.Result{Mode: retrieval.ModeSemantic}}
	answerer := &fakeAnswerer{answer: core.ChatAnswer{
		Answer:     "Grounded answer [1].",
		Confidence: core.ConfidenceHigh,
		Mode:       retrieval.ModeSemantic,
	}}
	s := newTestServer(Deps{Retriever: retriever, Answerer: answerer})

	rec, body := doJSON(t, s, http.MethodPost, "/api/chat",
		`{"question": "What about wind?", "countries": ["de"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Grounded answer [1].", body["answer"])
	assert.Equal(t, "high", body["confidence"])
	require.Len(t, retriever.hints, 1)
	assert.Equal(t, []string{"DE"}, retriever.hints[0].Countries)
}

func TestChatRequiresQuestion(t *testing.T) {
	s := newTestServer(Deps{})
	rec, body := doJSON(t, s, http.MethodPost, "/api/chat", `{"question": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errInvalidRequest, body["error"])
}

func TestChatKBounds(t *testing.T) {
	s := newTestServer(Deps{})

	// k=0 means "use the configured default".
	rec, _ := doJSON(t, s, http.MethodPost, "/api/chat", `{"question": "wind?", "k": 0}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, body := doJSON(t, s, http.MethodPost, "/api/chat", `{"question": "wind?", "k": 21}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errInvalidRequest, body["error"])
	assert.Equal(t, "k must be between 0 and 20, 0 for the default", body["message"])
}

func TestGenerateBriefCachesCountryBrief(t *testing.T) {
	briefs := &fakeBriefs{}
	briefer := &fakeBriefer{result: core.BriefResult{Brief: "## Overview", ArticleCount: 3}}
	s := newTestServer(Deps{Briefs: briefs, Briefer: briefer})

	rec, body := doJSON(t, s, http.MethodPost, "/api/briefs/generate", `{"country": "de"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "## Overview", body["brief"])
	require.Len(t, briefs.saved, 1)
	assert.Equal(t, "DE", briefs.saved[0].CountryCode)

	// Topic-scoped briefs are not cached.
	briefs.saved = nil
	_, _ = doJSON(t, s, http.MethodPost, "/api/briefs/generate", `{"country": "DE", "topic": "hydrogen"}`)
	assert.Empty(t, briefs.saved)
}

func TestLatestBriefNotFound(t *testing.T) {
	s := newTestServer(Deps{})
	rec, body := doJSON(t, s, http.MethodGet, "/api/briefs/latest?country=DE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errNotFound, body["error"])
}

func TestTriggerIngestion(t *testing.T) {
	trigger := &fakeTrigger{}
	s := newTestServer(Deps{Ingest: trigger})

	rec, body := doJSON(t, s, http.MethodPost, "/api/ingestion/run", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, 1, trigger.triggered)

	trigger.busy = true
	rec, body = doJSON(t, s, http.MethodPost, "/api/ingestion/run", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errIngestionBusy, body["error"])
}

func TestGetRun(t *testing.T) {
	runs := &fakeRuns{runs: map[int64]core.IngestionRun{
		7: {ID: 7, Status: core.RunCompleted},
	}}
	s := newTestServer(Deps{Runs: runs})

	rec, body := doJSON(t, s, http.MethodGet, "/api/ingestion/runs/7", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", body["status"])

	rec, body = doJSON(t, s, http.MethodGet, "/api/ingestion/runs/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errNotFound, body["error"])
}

func TestListCountriesFillsDisplayNames(t *testing.T) {
	s := newTestServer(Deps{Articles: &fakeArticles{
		counts: []core.CountryCount{
			{Code: "DE", Count: 3},
			{Code: "XX", Count: 1},
		},
	}})

	rec, body := doJSON(t, s, http.MethodGet, "/api/countries", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "DE", first["code"])
	assert.Equal(t, "Germany", first["name"])
	assert.Equal(t, float64(3), first["count"])
	// Unknown codes fall back to the code itself.
	second := items[1].(map[string]any)
	assert.Equal(t, "XX", second["name"])
}

func TestTopicBreakdownFillsDisplayNames(t *testing.T) {
	s := newTestServer(Deps{Articles: &fakeArticles{
		breakdown: []core.TopicCount{{Topic: "power_grid", Count: 7}},
	}})

	rec, body := doJSON(t, s, http.MethodGet, "/api/stats/topic-breakdown", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "power_grid", first["topic"])
	assert.Equal(t, "Power Grid & Infrastructure", first["name"])
	assert.Equal(t, float64(7), first["count"])
}

func TestTopicsEndpoint(t *testing.T) {
	s := newTestServer(Deps{})
	rec, body := doJSON(t, s, http.MethodGet, "/api/topics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	items := body["items"].([]any)
	assert.NotEmpty(t, items)
	first := items[0].(map[string]any)
	assert.NotEmpty(t, first["id"])
	assert.NotEmpty(t, first["name"])
}
