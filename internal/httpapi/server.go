// Package httpapi exposes the article, chat, brief, ingestion and stats
// surfaces over HTTP as JSON.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gridbrief/internal/answer"
	"gridbrief/internal/config"
	"gridbrief/internal/core"
	"gridbrief/internal/logger"
	"gridbrief/internal/rank"
	"gridbrief/internal/retrieval"
	"gridbrief/internal/store"
)

// Stable error codes returned in the "error" field of failure responses.
const (
	errInvalidRequest = "invalid_request"
	errNotFound       = "not_found"
	errIngestionBusy  = "ingestion_busy"
	errInternal       = "internal_error"
)

// ArticleStore serves the article listing and stats surfaces.
type ArticleStore interface {
	SearchArticles(ctx context.Context, q store.ArticleQuery) ([]store.ArticleListItem, int, error)
	ArticlesForRanking(ctx context.Context, country string, days int) ([]core.Article, error)
	CountByCountry(ctx context.Context, days int) ([]core.CountryCount, error)
	DailyActivity(ctx context.Context, days int) ([]core.ActivityDay, error)
	TopicBreakdown(ctx context.Context, days int) ([]core.TopicCount, error)
}

// RunStore serves the ingestion-run inspection endpoints.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]core.IngestionRun, error)
	GetRun(ctx context.Context, id int64) (core.IngestionRun, error)
}

// BriefStore caches generated briefs.
type BriefStore interface {
	SaveBrief(ctx context.Context, brief core.Brief) (core.Brief, error)
	LatestBrief(ctx context.Context, countryCode string, maxAge time.Duration) (core.Brief, error)
}

// Retriever produces grounded context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, hint core.SearchFilters, k int) (retrieval.Result, error)
}

// Answerer turns retrieved context into a chat answer.
type Answerer interface {
	Answer(ctx context.Context, question string, r retrieval.Result) (core.ChatAnswer, error)
}

// Briefer generates analyst briefs.
type Briefer interface {
	Generate(ctx context.Context, req answer.BriefRequest) (core.BriefResult, error)
}

// IngestTrigger starts ingestion runs on demand.
type IngestTrigger interface {
	TriggerAsync() error
	Running() bool
}

// Pinger reports database liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call. Small interfaces so tests
// can swap in fakes.
type Deps struct {
	Articles  ArticleStore
	Runs      RunStore
	Briefs    BriefStore
	Retriever Retriever
	Answerer  Answerer
	Briefer   Briefer
	Ranker    *rank.Ranker
	Ingest    IngestTrigger
	Pinger    Pinger
}

// Server is the HTTP front of the service.
type Server struct {
	echo *echo.Echo
	deps Deps
	cfg  config.Server
}

// New builds the server with its middleware chain and routes registered.
func New(deps Deps, cfg config.Server) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(requestID)
	e.Use(requestLogger)

	s := &Server{echo: e, deps: deps, cfg: cfg}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.describe)
	s.echo.GET("/healthz", s.health)

	api := s.echo.Group("/api")
	api.GET("/articles", s.listArticles)
	api.GET("/articles/top-stories", s.topStories)
	api.GET("/countries", s.listCountries)
	api.GET("/topics", s.listTopics)
	api.POST("/chat", s.chat)
	api.POST("/briefs/generate", s.generateBrief)
	api.GET("/briefs/latest", s.latestBrief)
	api.POST("/ingestion/run", s.triggerIngestion)
	api.GET("/ingestion/runs", s.listRuns)
	api.GET("/ingestion/runs/:id", s.getRun)
	api.GET("/stats/activity", s.activity)
	api.GET("/stats/topic-breakdown", s.topicBreakdown)
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	logger.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) describe(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "gridbrief",
		"endpoints": []string{
			"/healthz",
			"/api/articles", "/api/articles/top-stories",
			"/api/countries", "/api/topics",
			"/api/chat",
			"/api/briefs/generate", "/api/briefs/latest",
			"/api/ingestion/run", "/api/ingestion/runs",
			"/api/stats/activity", "/api/stats/topic-breakdown",
		},
	})
}

func (s *Server) health(c echo.Context) error {
	if err := s.deps.Pinger.Ping(c.Request().Context()); err != nil {
		logger.Error("health check failed", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requestID stamps every request with a UUID, honoring one supplied by the
// caller.
func requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		c.Set("request_id", id)
		return next(c)
	}
}

func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		logger.Info("http request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.Get("request_id"))
		return err
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error":   errInvalidRequest,
		"message": message,
	})
}

func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error":   errInternal,
		"message": "internal error",
	})
}
