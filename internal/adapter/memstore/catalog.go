package memstore

import (
	"context"
	"sync"

	"ragrec/internal/domain"
)

// Catalog is an in-memory item catalog that preserves insertion order.
type Catalog struct {
	mu    sync.RWMutex
	items []domain.Item
	byID  map[string]int
}

func NewCatalog(items ...domain.Item) *Catalog {
	c := &Catalog{byID: make(map[string]int)}
	c.Replace(items)
	return c
}

// Replace swaps the catalog contents. Later duplicates of an id are dropped.
// It returns the number of items kept.
func (c *Catalog) Replace(items []domain.Item) int {
	kept := make([]domain.Item, 0, len(items))
	byID := make(map[string]int, len(items))
	for _, it := range items {
		if _, dup := byID[it.ID]; dup {
			continue
		}
		byID[it.ID] = len(kept)
		kept = append(kept, it)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = kept
	c.byID = byID
	return len(kept)
}

// Put appends an item, or overwrites the existing item with the same id in place.
func (c *Catalog) Put(item domain.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i, ok := c.byID[item.ID]; ok {
		c.items[i] = item
		return
	}
	c.byID[item.ID] = len(c.items)
	c.items = append(c.items, item)
}

func (c *Catalog) Items(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (c *Catalog) Get(id string) (domain.Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[id]
	if !ok {
		return domain.Item{}, false
	}
	return c.items[i], true
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
