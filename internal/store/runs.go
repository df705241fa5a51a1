package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gridbrief/internal/core"
)

// StartRun inserts a running ingestion-run row and returns it.
func (s *Store) StartRun(ctx context.Context) (core.IngestionRun, error) {
	run := core.IngestionRun{Status: core.RunRunning}
	row := s.executor(ctx).QueryRow(ctx, `
		INSERT INTO ingestion_runs (status) VALUES ($1)
		RETURNING id, started_at`, core.RunRunning)
	if err := row.Scan(&run.ID, &run.StartedAt); err != nil {
		return core.IngestionRun{}, fmt.Errorf("start ingestion run: %w", err)
	}
	return run, nil
}

// FinishRun closes a run with its final status and stats snapshot.
func (s *Store) FinishRun(ctx context.Context, id int64, status core.RunStatus, stats core.RunStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	_, err = s.executor(ctx).Exec(ctx, `
		UPDATE ingestion_runs
		SET finished_at = $2, status = $3, stats = $4
		WHERE id = $1`,
		id, time.Now().UTC(), status, payload)
	if err != nil {
		return fmt.Errorf("finish ingestion run %d: %w", id, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.IngestionRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT id, started_at, finished_at, status, stats
		FROM ingestion_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []core.IngestionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id int64) (core.IngestionRun, error) {
	rows, err := s.executor(ctx).Query(ctx, `
		SELECT id, started_at, finished_at, status, stats
		FROM ingestion_runs WHERE id = $1`, id)
	if err != nil {
		return core.IngestionRun{}, fmt.Errorf("get ingestion run %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.IngestionRun{}, fmt.Errorf("get ingestion run %d: %w", id, err)
		}
		return core.IngestionRun{}, fmt.Errorf("ingestion run %d: %w", id, ErrNotFound)
	}
	return scanRun(rows)
}

func scanRun(rows pgx.Rows) (core.IngestionRun, error) {
	var run core.IngestionRun
	var stats []byte
	if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &stats); err != nil {
		return core.IngestionRun{}, fmt.Errorf("scan ingestion run: %w", err)
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &run.Stats); err != nil {
			return core.IngestionRun{}, fmt.Errorf("unmarshal run stats: %w", err)
		}
	}
	return run, nil
}
