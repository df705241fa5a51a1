package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gridbrief/internal/core"
)

// CreateSource registers a new ingestion origin. Names are unique.
func (s *Store) CreateSource(ctx context.Context, src core.Source) (core.Source, error) {
	row := s.executor(ctx).QueryRow(ctx, `
		INSERT INTO sources (name, kind, locator, enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		src.Name, src.Kind, src.Locator, src.Enabled)
	if err := row.Scan(&src.ID, &src.CreatedAt); err != nil {
		return core.Source{}, fmt.Errorf("create source %q: %w", src.Name, err)
	}
	return src, nil
}

// ListSources returns sources ordered by name, optionally only enabled ones.
func (s *Store) ListSources(ctx context.Context, enabledOnly bool) ([]core.Source, error) {
	query := `SELECT id, name, kind, locator, enabled, created_at FROM sources`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY name`

	rows, err := s.executor(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []core.Source
	for rows.Next() {
		var src core.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Kind, &src.Locator, &src.Enabled, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetSourceByName looks a source up by its unique name.
func (s *Store) GetSourceByName(ctx context.Context, name string) (core.Source, error) {
	var src core.Source
	row := s.executor(ctx).QueryRow(ctx, `
		SELECT id, name, kind, locator, enabled, created_at
		FROM sources WHERE name = $1`, name)
	err := row.Scan(&src.ID, &src.Name, &src.Kind, &src.Locator, &src.Enabled, &src.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Source{}, fmt.Errorf("source %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return core.Source{}, fmt.Errorf("get source %q: %w", name, err)
	}
	return src, nil
}

// SetSourceEnabled flips a source's enabled flag.
func (s *Store) SetSourceEnabled(ctx context.Context, name string, enabled bool) error {
	tag, err := s.executor(ctx).Exec(ctx,
		`UPDATE sources SET enabled = $2 WHERE name = $1`, name, enabled)
	if err != nil {
		return fmt.Errorf("set source %q enabled=%t: %w", name, enabled, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("source %q: %w", name, ErrNotFound)
	}
	return nil
}
