package index

import (
	"context"
	"sync/atomic"
	"time"

	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// Exact scores every indexed item against the query.
type Exact struct {
	b    builder
	snap atomic.Pointer[population]
}

func NewExact(embedder port.ItemEmbedder) *Exact {
	return &Exact{b: builder{embedder: embedder, backend: KindExact}}
}

func (x *Exact) Build(ctx context.Context, items []domain.Item) error {
	x.b.mu.Lock()
	defer x.b.mu.Unlock()

	start := time.Now()
	p, err := x.b.prepare(ctx, items)
	if err != nil {
		return err
	}
	x.snap.Store(p)
	x.b.record(start, len(p.items))
	return nil
}

func (x *Exact) Search(query []float32, k int, exclude map[string]struct{}) ([]domain.ScoredItem, error) {
	p := x.snap.Load()
	if p == nil || len(p.items) == 0 || k <= 0 {
		return nil, nil
	}
	q, err := checkQuery(query, p.dim)
	if err != nil {
		return nil, err
	}
	return scan(p, q, k, exclude), nil
}

func (x *Exact) Len() int {
	if p := x.snap.Load(); p != nil {
		return len(p.items)
	}
	return 0
}
