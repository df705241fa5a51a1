package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gridbrief/internal/answer"
	"gridbrief/internal/httpapi"
	"gridbrief/internal/ingest"
	"gridbrief/internal/llm"
	"gridbrief/internal/logger"
	"gridbrief/internal/rank"
	"gridbrief/internal/retrieval"
)

// NewServeCmd creates the serve command for the HTTP API and scheduler.
func NewServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API with the background ingestion scheduler",
		Long: `Start the gridbrief HTTP API.

Unless --no-scheduler is given, a background scheduler ingests all
enabled sources on the configured interval, starting immediately.

Examples:
  gridbrief serve
  gridbrief serve --port 9000
  gridbrief serve --no-scheduler`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, noScheduler)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Serve the API without periodic ingestion")

	return cmd
}

func runServe(ctx context.Context, port int, host string, noScheduler bool) error {
	st, cfg, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	pipeline, err := buildPipeline(ctx, cfg, st)
	if err != nil {
		return err
	}
	scheduler := ingest.NewScheduler(pipeline, cfg.Ingest.Interval)

	embedder, err := llm.NewEmbedder(ctx, cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}
	chat, err := llm.NewChat(ctx, cfg.Chat)
	if err != nil {
		return fmt.Errorf("build chat provider: %w", err)
	}

	retriever := retrieval.New(st, embedder, retrieval.Options{
		K:             cfg.Retrieval.K,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	})
	answerer := answer.New(chat, cfg.Chat.Timeout)
	briefer := answer.NewBriefer(st, chat, cfg.Chat.Timeout)

	srv := httpapi.New(httpapi.Deps{
		Articles:  st,
		Runs:      st,
		Briefs:    st,
		Retriever: retriever,
		Answerer:  answerer,
		Briefer:   briefer,
		Ranker:    rank.New(cfg.Rank),
		Ingest:    scheduler,
		Pinger:    st,
	}, serverCfg)

	if noScheduler {
		logger.Info("scheduler disabled, serving API only")
	} else {
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown initiated", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("server stopped")
	}
	return nil
}
