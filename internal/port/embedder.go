package port

import (
	"context"

	"ragrec/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// ItemEmbedder turns catalog items into vectors. Implementations never
// fail: unavailable embeddings come back as zero vectors.
type ItemEmbedder interface {
	EmbedItems(ctx context.Context, items []domain.Item) [][]float32
	Dimension() int
}

// EmbeddingProvider serves cached embeddings for free text and items.
// Like ItemEmbedder it degrades to zero vectors instead of failing.
type EmbeddingProvider interface {
	ItemEmbedder
	Embed(ctx context.Context, text string) []float32
	EmbedItem(ctx context.Context, item domain.Item) []float32
	// Available reports whether a real embedder is configured.
	Available() bool
}

// EmbeddingCache stores computed vectors by key. Entries are written once
// and never evicted; concurrent Put calls for the same key are idempotent.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Put(ctx context.Context, key string, vec []float32) error
	Len() int
	Close() error
}
