package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"gridbrief/internal/config"
)

const (
	defaultGeminiEmbeddingModel = "gemini-embedding-001"
	defaultGeminiChatModel      = "gemini-flash-lite-latest"
)

type geminiEmbedder struct {
	client    *genai.Client
	model     string
	dimension int
}

func newGeminiEmbedder(ctx context.Context, cfg config.Embeddings) (*geminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini embeddings: api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiEmbeddingModel
	}
	return &geminiEmbedder{client: client, model: model, dimension: cfg.Dimension}, nil
}

func (e *geminiEmbedder) Dimension() int { return e.dimension }

func (e *geminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{{Text: text}},
			Role:  "user",
		}
	}
	dims := int32(e.dimension)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, &EmbedError{Provider: "gemini", Err: err}
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, &EmbedError{
			Provider: "gemini",
			Err:      fmt.Errorf("got %d embeddings for %d inputs", got, len(texts)),
		}
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &EmbedError{
				Provider: "gemini",
				Err:      fmt.Errorf("empty embedding at index %d", i),
			}
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

type geminiChat struct {
	client *genai.Client
	model  string
}

func newGeminiChat(ctx context.Context, cfg config.Chat) (*geminiChat, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("gemini chat: api key not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiChatModel
	}
	return &geminiChat{client: client, model: model}, nil
}

func (c *geminiChat) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.User}},
		Role:  "user",
	}}
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.MaxTokens > 0 {
		genCfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		genCfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, genCfg)
	if err != nil {
		return "", &ChatError{Provider: "gemini", Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &ChatError{Provider: "gemini", Err: errors.New("empty response")}
	}
	return text, nil
}
