package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"gridbrief/internal/core"
	"gridbrief/internal/logger"
	"gridbrief/internal/store"
	"gridbrief/internal/tagging"
)

const (
	previewChars = 200

	maxDays     = 365
	maxPageSize = 100
	maxLimit    = 50

	defaultDays       = 30
	defaultStoryDays  = 7
	defaultStoryLimit = 10
)

type articleItem struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	SourceName   string     `json:"source_name"`
	CountryCodes []string   `json:"country_codes"`
	TopicTags    []string   `json:"topic_tags"`
	Summary      string     `json:"summary,omitempty"`
	ImageURL     string     `json:"image_url,omitempty"`
}

type articlesResponse struct {
	Items    []articleItem `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	HasNext  bool          `json:"has_next"`
	HasPrev  bool          `json:"has_prev"`
}

func (s *Server) listArticles(c echo.Context) error {
	days, err := intParam(c, "days", defaultDays, 1, maxDays)
	if err != nil {
		return badRequest(c, err.Error())
	}
	page, err := intParam(c, "page", 1, 1, 1<<30)
	if err != nil {
		return badRequest(c, err.Error())
	}
	pageSize, err := intParam(c, "page_size", 20, 1, maxPageSize)
	if err != nil {
		return badRequest(c, err.Error())
	}

	q := store.ArticleQuery{
		Country:  strings.ToUpper(c.QueryParam("country")),
		Topic:    c.QueryParam("topic"),
		Days:     days,
		Page:     page,
		PageSize: pageSize,
	}
	items, total, err := s.deps.Articles.SearchArticles(c.Request().Context(), q)
	if err != nil {
		logger.Error("article search failed", err)
		return internalError(c)
	}

	resp := articlesResponse{
		Items:    make([]articleItem, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasNext:  page*pageSize < total,
		HasPrev:  page > 1,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toArticleItem(item.Article, item.SourceName))
	}
	return c.JSON(http.StatusOK, resp)
}

type topStoryItem struct {
	articleItem
	Score float64 `json:"score"`
}

func (s *Server) topStories(c echo.Context) error {
	country := strings.ToUpper(c.QueryParam("country"))
	if len(country) != 2 {
		return badRequest(c, "country must be an ISO-3166 alpha-2 code")
	}
	days, err := intParam(c, "days", defaultStoryDays, 1, 30)
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, err := intParam(c, "limit", defaultStoryLimit, 1, maxLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}

	articles, err := s.deps.Articles.ArticlesForRanking(c.Request().Context(), country, days)
	if err != nil {
		logger.Error("top stories query failed", err)
		return internalError(c)
	}
	stories := s.deps.Ranker.TopStories(articles, time.Now().UTC(), days, limit)

	items := make([]topStoryItem, 0, len(stories))
	for _, st := range stories {
		items = append(items, topStoryItem{
			articleItem: toArticleItem(st.Article, ""),
			Score:       st.Score,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items":   items,
		"country": country,
		"days":    days,
	})
}

func (s *Server) listCountries(c echo.Context) error {
	days, err := intParam(c, "days", defaultDays, 1, maxDays)
	if err != nil {
		return badRequest(c, err.Error())
	}
	counts, err := s.deps.Articles.CountByCountry(c.Request().Context(), days)
	if err != nil {
		logger.Error("country counts failed", err)
		return internalError(c)
	}
	if counts == nil {
		counts = []core.CountryCount{}
	}
	for i := range counts {
		counts[i].Name = tagging.CountryName(counts[i].Code)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": counts, "days": days})
}

func (s *Server) listTopics(c echo.Context) error {
	type topicItem struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	items := make([]topicItem, 0)
	for _, id := range tagging.AllTopics() {
		items = append(items, topicItem{ID: id, Name: tagging.TopicName(id)})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (s *Server) activity(c echo.Context) error {
	days, err := intParam(c, "days", defaultDays, 1, maxDays)
	if err != nil {
		return badRequest(c, err.Error())
	}
	activity, err := s.deps.Articles.DailyActivity(c.Request().Context(), days)
	if err != nil {
		logger.Error("activity stats failed", err)
		return internalError(c)
	}
	if activity == nil {
		activity = []core.ActivityDay{}
	}
	return c.JSON(http.StatusOK, map[string]any{"items": activity, "days": days})
}

func (s *Server) topicBreakdown(c echo.Context) error {
	days, err := intParam(c, "days", defaultDays, 1, maxDays)
	if err != nil {
		return badRequest(c, err.Error())
	}
	breakdown, err := s.deps.Articles.TopicBreakdown(c.Request().Context(), days)
	if err != nil {
		logger.Error("topic breakdown failed", err)
		return internalError(c)
	}
	if breakdown == nil {
		breakdown = []core.TopicCount{}
	}
	for i := range breakdown {
		breakdown[i].Name = tagging.TopicName(breakdown[i].Topic)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": breakdown, "days": days})
}

func toArticleItem(a core.Article, sourceName string) articleItem {
	return articleItem{
		ID:           a.ID,
		Title:        a.Title,
		URL:          a.URL,
		PublishedAt:  a.PublishedAt,
		SourceName:   sourceName,
		CountryCodes: emptySlice(a.CountryCodes),
		TopicTags:    emptySlice(a.TopicTags),
		Summary:      preview(a),
		ImageURL:     a.Metadata.ImageURL,
	}
}

// preview favors extracted content over the feed summary and stays short.
func preview(a core.Article) string {
	text := a.ContentText
	if text == "" {
		text = a.RawSummary
	}
	runes := []rune(text)
	if len(runes) > previewChars {
		return string(runes[:previewChars]) + "..."
	}
	return text
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// intParam parses an integer query parameter with a default and inclusive
// bounds.
func intParam(c echo.Context, name string, def, min, max int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, &paramError{name: name, min: min, max: max}
	}
	return v, nil
}

type paramError struct {
	name     string
	min, max int
}

func (e *paramError) Error() string {
	return e.name + " must be an integer between " +
		strconv.Itoa(e.min) + " and " + strconv.Itoa(e.max)
}
