// Package llm provides embedding and chat clients behind small interfaces,
// with OpenAI and Gemini implementations plus deterministic fakes.
package llm

import (
	"context"
	"fmt"
	"strings"

	"gridbrief/internal/config"
)

const defaultBatchSize = 100

// Embedder turns texts into fixed-dimension vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Chat generates a completion for a system/user prompt pair.
type Chat interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GenerateRequest describes one completion call.
type GenerateRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// EmbedError wraps a failed embedding call with its provider.
type EmbedError struct {
	Provider string
	Err      error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("%s embeddings: %v", e.Provider, e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }

// ChatError wraps a failed completion call with its provider.
type ChatError struct {
	Provider string
	Err      error
}

func (e *ChatError) Error() string {
	return fmt.Sprintf("%s chat: %v", e.Provider, e.Err)
}

func (e *ChatError) Unwrap() error { return e.Err }

// NewEmbedder builds the configured embedding provider.
func NewEmbedder(ctx context.Context, cfg config.Embeddings) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIEmbedder(cfg)
	case "gemini":
		return newGeminiEmbedder(ctx, cfg)
	case "fake":
		return NewFakeEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}

// NewChat builds the configured chat provider.
func NewChat(ctx context.Context, cfg config.Chat) (Chat, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return newOpenAIChat(cfg)
	case "gemini":
		return newGeminiChat(ctx, cfg)
	case "fake":
		return NewFakeChat(), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// BatchEmbed embeds texts in batches of batchSize, preserving order. The
// first failing batch aborts the whole call.
func BatchEmbed(ctx context.Context, e Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embed batch starting at %d: got %d vectors for %d texts", start, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}
