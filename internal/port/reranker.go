package port

import "ragrec/internal/domain"

// DiversityReranker reorders scored items to trade relevance for variety.
type DiversityReranker interface {
	Rerank(items []domain.ScoredItem, k int) []domain.ScoredItem
}
