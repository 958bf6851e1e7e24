package port

import (
	"context"

	"ragrec/internal/domain"
)

// VectorIndex is a nearest-neighbour index over item embeddings.
type VectorIndex interface {
	// Build replaces the index contents with items. Duplicate ids keep the
	// first occurrence. Building from an empty slice yields an empty index.
	Build(ctx context.Context, items []domain.Item) error

	// Search returns at most k items not in exclude, ordered by descending
	// cosine similarity to query. An empty index returns no results.
	Search(query []float32, k int, exclude map[string]struct{}) ([]domain.ScoredItem, error)

	// Len returns the number of indexed items.
	Len() int
}
