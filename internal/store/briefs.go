package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gridbrief/internal/core"
)

// SaveBrief caches a generated brief.
func (s *Store) SaveBrief(ctx context.Context, brief core.Brief) (core.Brief, error) {
	row := s.executor(ctx).QueryRow(ctx, `
		INSERT INTO briefs (country_code, content, article_count, days_range)
		VALUES ($1, $2, $3, $4)
		RETURNING id, generated_at`,
		brief.CountryCode, brief.Content, brief.ArticleCount, brief.DaysRange)
	if err := row.Scan(&brief.ID, &brief.GeneratedAt); err != nil {
		return core.Brief{}, fmt.Errorf("save brief for %q: %w", brief.CountryCode, err)
	}
	return brief, nil
}

// LatestBrief returns the newest cached brief for the country not older than
// maxAge. ErrNotFound when there is none.
func (s *Store) LatestBrief(ctx context.Context, countryCode string, maxAge time.Duration) (core.Brief, error) {
	var brief core.Brief
	row := s.executor(ctx).QueryRow(ctx, `
		SELECT id, country_code, content, article_count, days_range, generated_at
		FROM briefs
		WHERE country_code = $1 AND generated_at >= $2
		ORDER BY generated_at DESC
		LIMIT 1`,
		countryCode, time.Now().UTC().Add(-maxAge))
	err := row.Scan(&brief.ID, &brief.CountryCode, &brief.Content,
		&brief.ArticleCount, &brief.DaysRange, &brief.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Brief{}, fmt.Errorf("brief for %q: %w", countryCode, ErrNotFound)
	}
	if err != nil {
		return core.Brief{}, fmt.Errorf("latest brief for %q: %w", countryCode, err)
	}
	return brief, nil
}
