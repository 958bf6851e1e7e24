// Package index provides the similarity indexes over item embeddings: an
// exact brute-force scan and an HNSW graph. Both score by cosine similarity
// and publish each build atomically, so searches never see a partial index.
package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/metrics"
	"ragrec/internal/port"
)

const (
	KindExact = "exact"
	KindHNSW  = "hnsw"
)

// Options configures the HNSW variant. The exact index ignores them.
type Options struct {
	M              int
	EfConstruction int
	EfSearch       int
	Seed           uint64
}

// New returns the index variant named by kind ("" means exact).
func New(kind string, embedder port.ItemEmbedder, opts Options) (port.VectorIndex, error) {
	switch kind {
	case "", KindExact:
		return NewExact(embedder), nil
	case KindHNSW:
		return NewHNSW(embedder, opts), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", kind)
	}
}

// Factory returns a constructor for fresh indexes of one kind.
func Factory(kind string, embedder port.ItemEmbedder, opts Options) (func() port.VectorIndex, error) {
	if _, err := New(kind, embedder, opts); err != nil {
		return nil, err
	}
	return func() port.VectorIndex {
		idx, _ := New(kind, embedder, opts)
		return idx
	}, nil
}

// population is the deduplicated, embedded input of one build.
type population struct {
	items []domain.Item
	vecs  [][]float32 // unit length, or zero when no embedding was available
	zero  []bool      // zero[i] marks items without an embedding
	dim   int
}

// builder serializes builds and prepares populations.
type builder struct {
	mu       sync.Mutex
	embedder port.ItemEmbedder
	backend  string
}

func (b *builder) prepare(ctx context.Context, items []domain.Item) (*population, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(items))
	kept := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		kept = append(kept, it)
	}

	dim := b.embedder.Dimension()
	raw := b.embedder.EmbedItems(ctx, kept)
	vecs := make([][]float32, len(raw))
	zero := make([]bool, len(raw))
	for i, v := range raw {
		if len(v) != dim {
			return nil, fmt.Errorf("item %s: %w: got %d, want %d", kept[i].ID, domain.ErrDimensionMismatch, len(v), dim)
		}
		vecs[i] = vecmath.Normalize(v)
		zero[i] = vecmath.IsZero(vecs[i])
	}
	return &population{items: kept, vecs: vecs, zero: zero, dim: dim}, nil
}

func (b *builder) record(start time.Time, n int) {
	metrics.ObserveSince(metrics.IndexBuildDuration.WithLabelValues(b.backend), start)
	metrics.IndexSize.WithLabelValues(b.backend).Set(float64(n))
}

// checkQuery validates the query and returns it normalized.
func checkQuery(query []float32, dim int) ([]float32, error) {
	if len(query) != dim {
		return nil, fmt.Errorf("query: %w: got %d, want %d", domain.ErrDimensionMismatch, len(query), dim)
	}
	return vecmath.Normalize(query), nil
}

type hit struct {
	pos   int
	score float64
}

// rank orders hits by descending score, then build position, and converts
// the first k into scored items. Items without an embedding carry no
// similarity signal and always come after every embedded item.
func rank(p *population, hits []hit, k int) []domain.ScoredItem {
	sort.Slice(hits, func(i, j int) bool {
		zi, zj := p.zero[hits[i].pos], p.zero[hits[j].pos]
		if zi != zj {
			return zj
		}
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.ScoredItem, len(hits))
	for i, h := range hits {
		out[i] = domain.ScoredItem{Item: p.items[h.pos], Score: h.score}
	}
	return out
}

// scan scores every non-excluded item against a normalized query.
func scan(p *population, q []float32, k int, exclude map[string]struct{}) []domain.ScoredItem {
	hits := make([]hit, 0, len(p.items))
	for i, it := range p.items {
		if _, skip := exclude[it.ID]; skip {
			continue
		}
		hits = append(hits, hit{pos: i, score: vecmath.Dot(q, p.vecs[i])})
	}
	return rank(p, hits, k)
}
