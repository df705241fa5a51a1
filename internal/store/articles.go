package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"gridbrief/internal/core"
)

// articleColumns is the canonical select list; scanArticle matches it.
const articleColumns = `a.id, a.source_id, a.title, a.url, a.published_at, a.fetched_at,
	COALESCE(a.raw_summary, ''), COALESCE(a.content_text, ''), COALESCE(a.language, ''),
	a.content_hash, COALESCE(a.country_codes, '{}'), COALESCE(a.topic_tags, '{}'),
	COALESCE(a.image_url, ''), COALESCE(a.regions, '{}')`

func scanArticle(row pgx.Row) (core.Article, error) {
	var a core.Article
	err := row.Scan(
		&a.ID, &a.SourceID, &a.Title, &a.URL, &a.PublishedAt, &a.FetchedAt,
		&a.RawSummary, &a.ContentText, &a.Language,
		&a.ContentHash, &a.CountryCodes, &a.TopicTags,
		&a.Metadata.ImageURL, &a.Metadata.Regions,
	)
	return a, err
}

// ArticleListItem joins an article with its source name for list surfaces.
type ArticleListItem struct {
	core.Article
	SourceName string `json:"source_name"`
}

// ArticleQuery narrows and pages the article listing.
type ArticleQuery struct {
	Country  string // single ISO alpha-2 code, empty for all
	Topic    string // single topic id, empty for all
	Days     int    // look-back window
	Page     int    // 1-indexed
	PageSize int
}

// UpsertArticle inserts the entry as a new article or refreshes an existing
// row keyed by URL. The content hash is the change-detection key: equal hash
// means unchanged and the stored row is returned untouched.
func (s *Store) UpsertArticle(ctx context.Context, sourceID int64, entry core.Entry, hash string) (core.Article, core.UpsertOutcome, error) {
	ex := s.executor(ctx)

	existing, err := scanArticle(ex.QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.url = $1`, entry.URL))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		a := core.Article{
			SourceID:    sourceID,
			Title:       entry.Title,
			URL:         entry.URL,
			PublishedAt: entry.PublishedAt,
			RawSummary:  entry.Summary,
			ContentHash: hash,
			Metadata:    core.ArticleMetadata{ImageURL: entry.ImageURL},
		}
		row := ex.QueryRow(ctx, `
			INSERT INTO articles (source_id, title, url, published_at, raw_summary, content_hash, image_url)
			VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''))
			RETURNING id, fetched_at`,
			sourceID, entry.Title, entry.URL, entry.PublishedAt, entry.Summary, hash, entry.ImageURL)
		if err := row.Scan(&a.ID, &a.FetchedAt); err != nil {
			return core.Article{}, "", fmt.Errorf("insert article %s: %w", entry.URL, err)
		}
		return a, core.UpsertInserted, nil

	case err != nil:
		return core.Article{}, "", fmt.Errorf("lookup article %s: %w", entry.URL, err)

	case existing.ContentHash == hash:
		return existing, core.UpsertUnchanged, nil

	default:
		now := time.Now().UTC()
		_, err := ex.Exec(ctx, `
			UPDATE articles
			SET title = $2, raw_summary = NULLIF($3, ''), published_at = $4,
			    content_hash = $5, fetched_at = $6
			WHERE id = $1`,
			existing.ID, entry.Title, entry.Summary, entry.PublishedAt, hash, now)
		if err != nil {
			return core.Article{}, "", fmt.Errorf("update article %s: %w", entry.URL, err)
		}
		existing.Title = entry.Title
		existing.RawSummary = entry.Summary
		existing.PublishedAt = entry.PublishedAt
		existing.ContentHash = hash
		existing.FetchedAt = now
		return existing, core.UpsertUpdated, nil
	}
}

// UpdateArticleContent stores extraction results: body text, language and
// the lead image.
func (s *Store) UpdateArticleContent(ctx context.Context, id int64, text, language string, meta core.ArticleMetadata) error {
	_, err := s.executor(ctx).Exec(ctx, `
		UPDATE articles
		SET content_text = NULLIF($2, ''), language = NULLIF($3, ''),
		    image_url = COALESCE(NULLIF($4, ''), image_url)
		WHERE id = $1`,
		id, text, language, meta.ImageURL)
	if err != nil {
		return fmt.Errorf("update article %d content: %w", id, err)
	}
	return nil
}

// UpdateArticleTags stores enrichment results: country codes, topic tags and
// detected regions.
func (s *Store) UpdateArticleTags(ctx context.Context, id int64, countries, topics, regions []string) error {
	_, err := s.executor(ctx).Exec(ctx, `
		UPDATE articles
		SET country_codes = $2, topic_tags = $3, regions = $4
		WHERE id = $1`,
		id, emptyToNil(countries), emptyToNil(topics), emptyToNil(regions))
	if err != nil {
		return fmt.Errorf("update article %d tags: %w", id, err)
	}
	return nil
}

// GetArticleByURL fetches one article by its unique URL.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (core.Article, error) {
	a, err := scanArticle(s.executor(ctx).QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Article{}, fmt.Errorf("article %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return core.Article{}, fmt.Errorf("get article %s: %w", url, err)
	}
	return a, nil
}

// SearchArticles lists articles matching the query, newest first, with the
// total match count for pagination.
func (s *Store) SearchArticles(ctx context.Context, q ArticleQuery) ([]ArticleListItem, int, error) {
	if q.Days <= 0 {
		q.Days = 30
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	conds := []string{"a.published_at >= $1"}
	args := []any{time.Now().UTC().AddDate(0, 0, -q.Days)}
	if q.Country != "" {
		conds = append(conds, fmt.Sprintf("$%d = ANY(a.country_codes)", len(args)+1))
		args = append(args, q.Country)
	}
	if q.Topic != "" {
		conds = append(conds, fmt.Sprintf("$%d = ANY(a.topic_tags)", len(args)+1))
		args = append(args, q.Topic)
	}
	where := strings.Join(conds, " AND ")

	ex := s.executor(ctx)
	var total int
	err := ex.QueryRow(ctx,
		`SELECT count(*) FROM articles a WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)
	rows, err := ex.Query(ctx, fmt.Sprintf(`
		SELECT %s, s.name
		FROM articles a JOIN sources s ON s.id = a.source_id
		WHERE %s
		ORDER BY a.published_at DESC
		LIMIT $%d OFFSET $%d`,
		articleColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()

	var items []ArticleListItem
	for rows.Next() {
		var it ArticleListItem
		err := rows.Scan(
			&it.ID, &it.SourceID, &it.Title, &it.URL, &it.PublishedAt, &it.FetchedAt,
			&it.RawSummary, &it.ContentText, &it.Language,
			&it.ContentHash, &it.CountryCodes, &it.TopicTags,
			&it.Metadata.ImageURL, &it.Metadata.Regions,
			&it.SourceName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan article: %w", err)
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

// RecentArticles returns the newest articles matching the filters. It backs
// the country-scoped retrieval fallback and brief generation.
func (s *Store) RecentArticles(ctx context.Context, filters core.SearchFilters, limit int) ([]core.Article, error) {
	if limit <= 0 {
		return nil, nil
	}

	conds, args := filterConditions(filters, "a.", 1)
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)

	rows, err := s.executor(ctx).Query(ctx, fmt.Sprintf(`
		SELECT %s FROM articles a%s
		ORDER BY a.published_at DESC NULLS LAST
		LIMIT $%d`, articleColumns, where, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("recent articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// SearchByTitlePhrases returns articles whose title contains any phrase,
// case-insensitive. Phrases are tried in order and earlier phrases rank
// their hits first, so callers put multi-word phrases before single
// keywords. Results are deduplicated across phrases.
func (s *Store) SearchByTitlePhrases(ctx context.Context, phrases []string, filters core.SearchFilters, limit int) ([]core.Article, error) {
	if limit <= 0 || len(phrases) == 0 {
		return nil, nil
	}

	seen := make(map[int64]bool)
	var results []core.Article

	for _, phrase := range phrases {
		if len(results) >= limit {
			break
		}
		conds := []string{"a.title ILIKE $1"}
		args := []any{"%" + escapeLike(phrase) + "%"}
		fc, fa := filterConditions(filters, "a.", 2)
		conds = append(conds, fc...)
		args = append(args, fa...)
		args = append(args, limit)

		rows, err := s.executor(ctx).Query(ctx, fmt.Sprintf(`
			SELECT %s FROM articles a
			WHERE %s
			ORDER BY a.published_at DESC NULLS LAST
			LIMIT $%d`, articleColumns, strings.Join(conds, " AND "), len(args)), args...)
		if err != nil {
			return nil, fmt.Errorf("title search %q: %w", phrase, err)
		}
		batch, err := collectArticles(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, a := range batch {
			if len(results) >= limit {
				break
			}
			if !seen[a.ID] {
				seen[a.ID] = true
				results = append(results, a)
			}
		}
	}
	return results, nil
}

// CountByCountry counts articles per country code in the window. Display
// names are the caller's concern.
func (s *Store) CountByCountry(ctx context.Context, days int) ([]core.CountryCount, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT code, count(*)
		FROM articles a, unnest(a.country_codes) AS code
		WHERE a.published_at >= $1
		GROUP BY code
		ORDER BY count(*) DESC, code`,
		time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("count by country: %w", err)
	}
	defer rows.Close()

	var counts []core.CountryCount
	for rows.Next() {
		var c core.CountryCount
		if err := rows.Scan(&c.Code, &c.Count); err != nil {
			return nil, fmt.Errorf("scan country count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// DailyActivity counts published articles per day over the window.
func (s *Store) DailyActivity(ctx context.Context, days int) ([]core.ActivityDay, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT to_char(date(a.published_at), 'YYYY-MM-DD'), count(*)
		FROM articles a
		WHERE a.published_at >= $1
		GROUP BY date(a.published_at)
		ORDER BY date(a.published_at)`,
		time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("daily activity: %w", err)
	}
	defer rows.Close()

	var activity []core.ActivityDay
	for rows.Next() {
		var d core.ActivityDay
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, fmt.Errorf("scan activity day: %w", err)
		}
		activity = append(activity, d)
	}
	return activity, rows.Err()
}

// TopicBreakdown counts articles per topic tag over the window, most
// frequent first.
func (s *Store) TopicBreakdown(ctx context.Context, days int) ([]core.TopicCount, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT topic, count(*)
		FROM articles a, unnest(a.topic_tags) AS topic
		WHERE a.published_at >= $1
		GROUP BY topic
		ORDER BY count(*) DESC, topic`,
		time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("topic breakdown: %w", err)
	}
	defer rows.Close()

	var counts []core.TopicCount
	for rows.Next() {
		var c core.TopicCount
		if err := rows.Scan(&c.Topic, &c.Count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ArticlesForRanking returns every article tagged with the country in the
// window; the ranker scores them in memory.
func (s *Store) ArticlesForRanking(ctx context.Context, country string, days int) ([]core.Article, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles a
		WHERE $1 = ANY(a.country_codes) AND a.published_at >= $2`,
		country, time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("articles for ranking: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

func collectArticles(rows pgx.Rows) ([]core.Article, error) {
	var articles []core.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// emptyToNil maps an empty slice to nil so the column stores NULL, keeping
// "never tagged" distinguishable from "tagged with nothing".
func emptyToNil(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	return ss
}
