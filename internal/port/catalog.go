package port

import (
	"context"

	"ragrec/internal/domain"
)

// Catalog provides the items in scope for a request.
type Catalog interface {
	// Items returns every item in catalog order.
	Items(ctx context.Context) ([]domain.Item, error)

	// Get looks up an item by exact id.
	Get(id string) (domain.Item, bool)
}
