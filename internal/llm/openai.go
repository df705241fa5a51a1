package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"gridbrief/internal/config"
)

const (
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
	defaultOpenAIChatModel      = "gpt-4o-mini"

	llmRetryAttempts = 3
	llmRetryBase     = 2 * time.Second
	llmRetryCap      = 10 * time.Second
)

type openAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
}

func newOpenAIEmbedder(cfg config.Embeddings) (*openAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embeddings: api key not configured")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}
	return &openAIEmbedder{
		client:    openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		model:     model,
		dimension: cfg.Dimension,
	}, nil
}

func (e *openAIEmbedder) Dimension() int { return e.dimension }

func (e *openAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := retryable(ctx, func() (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dimension,
		})
	})
	if err != nil {
		return nil, &EmbedError{Provider: "openai", Err: err}
	}
	if len(resp.Data) != len(texts) {
		return nil, &EmbedError{
			Provider: "openai",
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(texts)),
		}
	}
	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	return vectors, nil
}

type openAIChat struct {
	client *openai.Client
	model  string
}

func newOpenAIChat(cfg config.Chat) (*openAIChat, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai chat: api key not configured")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIChatModel
	}
	return &openAIChat{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		model:  model,
	}, nil
}

func (c *openAIChat) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})
	resp, err := retryable(ctx, func() (openai.ChatCompletionResponse, error) {
		return c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
	})
	if err != nil {
		return "", &ChatError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ChatError{Provider: "openai", Err: errors.New("no choices returned")}
	}
	return resp.Choices[0].Message.Content, nil
}

// retryable runs op with exponential backoff, retrying rate limits and
// server-side failures and giving up immediately on everything else.
func retryable[T any](ctx context.Context, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = llmRetryBase
	bo.MaxInterval = llmRetryCap

	return backoff.Retry(ctx, func() (T, error) {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return result, backoff.Permanent(err)
		}
		if isTransient(err) {
			return result, err
		}
		return result, backoff.Permanent(err)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(llmRetryAttempts))
}

func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	// Network-level failures without an API status are worth one more try.
	return true
}
