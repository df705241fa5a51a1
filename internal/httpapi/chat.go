package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gridbrief/internal/answer"
	"gridbrief/internal/core"
	"gridbrief/internal/logger"
	"gridbrief/internal/store"
)

// briefCacheMaxAge bounds how stale a cached country brief may be before
// the latest-brief endpoint reports none.
const briefCacheMaxAge = 24 * time.Hour

type chatRequest struct {
	Question  string   `json:"question"`
	Countries []string `json:"countries"`
	Topics    []string `json:"topics"`
	K         int      `json:"k"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return badRequest(c, "question is required")
	}
	if req.K < 0 || req.K > 20 {
		return badRequest(c, "k must be between 0 and 20, 0 for the default")
	}

	hint := core.SearchFilters{
		Countries: upperAll(req.Countries),
		Topics:    req.Topics,
	}
	ctx := c.Request().Context()

	result, err := s.deps.Retriever.Retrieve(ctx, req.Question, hint, req.K)
	if err != nil {
		logger.Error("retrieval failed", err, "question", req.Question)
		return internalError(c)
	}
	ans, err := s.deps.Answerer.Answer(ctx, req.Question, result)
	if err != nil {
		logger.Error("answer generation failed", err, "question", req.Question)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, ans)
}

type briefRequest struct {
	Country     string `json:"country"`
	Topic       string `json:"topic"`
	Days        int    `json:"days"`
	MaxArticles int    `json:"max_articles"`
}

type briefResponse struct {
	core.BriefResult
	Country string `json:"country,omitempty"`
	Topic   string `json:"topic,omitempty"`
}

func (s *Server) generateBrief(c echo.Context) error {
	var req briefRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Days < 0 || req.Days > 30 {
		return badRequest(c, "days must be between 1 and 30")
	}
	if req.MaxArticles < 0 || req.MaxArticles > 50 {
		return badRequest(c, "max_articles must be between 1 and 50")
	}
	req.Country = strings.ToUpper(req.Country)

	ctx := c.Request().Context()
	result, err := s.deps.Briefer.Generate(ctx, answer.BriefRequest{
		CountryCode: req.Country,
		Topic:       req.Topic,
		Days:        req.Days,
		MaxArticles: req.MaxArticles,
	})
	if err != nil {
		logger.Error("brief generation failed", err, "country", req.Country)
		return internalError(c)
	}

	// Pure country briefs are cached so the latest-brief endpoint and the
	// auto-brief cycle share one store.
	if req.Country != "" && req.Topic == "" && result.ArticleCount > 0 {
		days := req.Days
		if days <= 0 {
			days = defaultStoryDays
		}
		_, err := s.deps.Briefs.SaveBrief(ctx, core.Brief{
			CountryCode:  req.Country,
			Content:      result.Brief,
			ArticleCount: result.ArticleCount,
			DaysRange:    days,
		})
		if err != nil {
			logger.Error("brief cache write failed", err, "country", req.Country)
		}
	}

	return c.JSON(http.StatusOK, briefResponse{
		BriefResult: result,
		Country:     req.Country,
		Topic:       req.Topic,
	})
}

func (s *Server) latestBrief(c echo.Context) error {
	country := strings.ToUpper(c.QueryParam("country"))
	if len(country) != 2 {
		return badRequest(c, "country must be an ISO-3166 alpha-2 code")
	}

	brief, err := s.deps.Briefs.LatestBrief(c.Request().Context(), country, briefCacheMaxAge)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error":   errNotFound,
			"message": "no recent brief for " + country,
		})
	}
	if err != nil {
		logger.Error("latest brief lookup failed", err, "country", country)
		return internalError(c)
	}
	return c.JSON(http.StatusOK, brief)
}

func upperAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(strings.TrimSpace(v))
	}
	return out
}
