package handlers

import (
	"context"
	"fmt"

	"gridbrief/internal/answer"
	"gridbrief/internal/chunk"
	"gridbrief/internal/config"
	"gridbrief/internal/extract"
	"gridbrief/internal/feeds"
	"gridbrief/internal/fetch"
	"gridbrief/internal/ingest"
	"gridbrief/internal/llm"
	"gridbrief/internal/scrape"
	"gridbrief/internal/store"
)

// openStore connects to the database from the loaded configuration.
func openStore(ctx context.Context) (*store.Store, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database.url is not configured; set DATABASE_URL or database.url in .gridbrief.yaml")
	}
	st, err := store.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return st, cfg, nil
}

// buildPipeline assembles the full ingestion pipeline with its providers.
func buildPipeline(ctx context.Context, cfg *config.Config, st *store.Store) (*ingest.Pipeline, error) {
	client := fetch.FromConfig(cfg.Fetch)
	embedder, err := llm.NewEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}
	chat, err := llm.NewChat(ctx, cfg.Chat)
	if err != nil {
		return nil, fmt.Errorf("build chat provider: %w", err)
	}
	briefer := answer.NewBriefer(st, chat, cfg.Chat.Timeout)

	return ingest.New(
		st,
		feeds.NewFetcher(client),
		scrape.NewRegistry(client),
		extract.NewExtractor(client),
		chunk.New(),
		embedder,
		briefer,
		ingest.Options{
			SourceWorkers:      cfg.Ingest.SourceWorkers,
			ScraperMaxPages:    cfg.Ingest.ScraperMaxPages,
			EmbedBatchSize:     cfg.Embeddings.BatchSize,
			AutoBriefCountries: cfg.Ingest.AutoBriefCountries,
		},
	), nil
}
