package retriever

import (
	"context"
	"fmt"

	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// SemanticRetriever answers free-text and "more like this" queries against
// a long-lived index over the whole catalog.
type SemanticRetriever struct {
	index      port.VectorIndex
	embeddings port.EmbeddingProvider
}

func NewSemanticRetriever(index port.VectorIndex, embeddings port.EmbeddingProvider) *SemanticRetriever {
	return &SemanticRetriever{index: index, embeddings: embeddings}
}

// Search embeds query and returns the k most similar items.
func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredItem, error) {
	if !r.embeddings.Available() {
		return nil, fmt.Errorf("semantic search not available: %w", domain.ErrEmbeddingUnavailable)
	}
	return r.index.Search(r.embeddings.Embed(ctx, query), k, nil)
}

// Similar returns the k items closest to item, excluding item itself.
func (r *SemanticRetriever) Similar(ctx context.Context, item domain.Item, k int) ([]domain.ScoredItem, error) {
	if !r.embeddings.Available() {
		return nil, fmt.Errorf("semantic search not available: %w", domain.ErrEmbeddingUnavailable)
	}
	exclude := map[string]struct{}{item.ID: {}}
	return r.index.Search(r.embeddings.EmbedItem(ctx, item), k, exclude)
}
