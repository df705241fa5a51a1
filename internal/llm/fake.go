package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
)

const defaultFakeDimension = 1536

// FakeEmbedder produces deterministic unit-length vectors derived from the
// text content. The same text always maps to the same vector, which makes
// similarity assertions in tests stable.
type FakeEmbedder struct {
	dimension int

	mu    sync.Mutex
	calls int
}

// NewFakeEmbedder returns a fake with the given vector width.
func NewFakeEmbedder(dimension int) *FakeEmbedder {
	if dimension <= 0 {
		dimension = defaultFakeDimension
	}
	return &FakeEmbedder{dimension: dimension}
}

func (f *FakeEmbedder) Dimension() int { return f.dimension }

// Calls reports how many Embed invocations have been made.
func (f *FakeEmbedder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vector(text)
	}
	return vectors, nil
}

func (f *FakeEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	v := make([]float32, f.dimension)
	var norm float64
	for i := range v {
		v[i] = float32(rng.Float64()*2 - 1)
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// FakeChat records every request and replies with a canned response.
type FakeChat struct {
	mu       sync.Mutex
	Response string
	Err      error
	Requests []GenerateRequest
}

// NewFakeChat returns a fake that echoes a short summary of each prompt.
func NewFakeChat() *FakeChat {
	return &FakeChat{}
}

func (f *FakeChat) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return "", f.Err
	}
	if f.Response != "" {
		return f.Response, nil
	}
	return fmt.Sprintf("fake response to %d prompt characters", len(req.User)), nil
}

// LastRequest returns the most recent request, or a zero value when none
// have been made.
func (f *FakeChat) LastRequest() GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return GenerateRequest{}
	}
	return f.Requests[len(f.Requests)-1]
}
