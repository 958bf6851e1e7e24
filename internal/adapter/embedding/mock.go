package embedding

import (
	"context"
	"sync"
)

// MockEmbedder derives vectors from the characters of each text. Fixed
// vectors can be registered per text, and Err makes every call fail.
type MockEmbedder struct {
	dimension int

	mu    sync.Mutex
	fixed map[string][]float32
	calls int
	texts int
	Err   error
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension, fixed: make(map[string][]float32)}
}

// Set registers the vector returned for text.
func (e *MockEmbedder) Set(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fixed[text] = vec
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.texts += len(texts)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := e.fixed[text]; ok {
			embeddings[i] = v
			continue
		}
		vec := make([]float32, e.dimension)
		for j, r := range text {
			vec[j%e.dimension] += float32(r) / 1000.0
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

// Calls returns how many times Embed was invoked.
func (e *MockEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Texts returns how many texts were sent in total.
func (e *MockEmbedder) Texts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.texts
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}
