package index

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// fixedEmbedder returns a preset vector per item id, zero for unknown ids.
type fixedEmbedder struct {
	dim  int
	vecs map[string][]float32
}

func (f *fixedEmbedder) EmbedItems(_ context.Context, items []domain.Item) [][]float32 {
	out := make([][]float32, len(items))
	for i, it := range items {
		if v, ok := f.vecs[it.ID]; ok {
			out[i] = v
		} else {
			out[i] = make([]float32, f.dim)
		}
	}
	return out
}

func (f *fixedEmbedder) Dimension() int { return f.dim }

func items(ids ...string) []domain.Item {
	out := make([]domain.Item, len(ids))
	for i, id := range ids {
		out[i] = domain.Item{ID: id}
	}
	return out
}

func variants(e port.ItemEmbedder) map[string]port.VectorIndex {
	return map[string]port.VectorIndex{
		KindExact: NewExact(e),
		KindHNSW:  NewHNSW(e, Options{Seed: 7}),
	}
}

func TestSearch_OrderExclusionAndLimit(t *testing.T) {
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{
		"a": {1, 0},
		"b": {0.9, 0.1},
		"c": {0, 1},
		"d": {0.7, 0.7},
	}}

	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Build(context.Background(), items("a", "b", "c", "d")); err != nil {
				t.Fatal(err)
			}

			res, err := idx.Search([]float32{1, 0}, 2, map[string]struct{}{"a": {}})
			if err != nil {
				t.Fatal(err)
			}
			if len(res) != 2 {
				t.Fatalf("expected 2 results, got %d", len(res))
			}
			if res[0].Item.ID != "b" || res[1].Item.ID != "d" {
				t.Errorf("unexpected order: %s, %s", res[0].Item.ID, res[1].Item.ID)
			}
			if res[0].Score < res[1].Score {
				t.Error("scores should be descending")
			}
		})
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	e := &fixedEmbedder{dim: 3}
	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			// Never built.
			res, err := idx.Search([]float32{1, 0, 0}, 5, nil)
			if err != nil || len(res) != 0 {
				t.Errorf("expected empty result, got %v %v", res, err)
			}

			if err := idx.Build(context.Background(), nil); err != nil {
				t.Fatal(err)
			}
			res, err = idx.Search([]float32{1, 0, 0}, 5, nil)
			if err != nil || len(res) != 0 {
				t.Errorf("expected empty result after empty build, got %v %v", res, err)
			}
			if idx.Len() != 0 {
				t.Errorf("expected Len 0, got %d", idx.Len())
			}
		})
	}
}

func TestBuild_DuplicatesKeepFirst(t *testing.T) {
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			in := []domain.Item{{ID: "a", Name: "first"}, {ID: "b"}, {ID: "a", Name: "second"}}
			if err := idx.Build(context.Background(), in); err != nil {
				t.Fatal(err)
			}
			if idx.Len() != 2 {
				t.Fatalf("expected 2 items, got %d", idx.Len())
			}
			res, _ := idx.Search([]float32{1, 0}, 10, nil)
			seen := map[string]int{}
			for _, r := range res {
				seen[r.Item.ID]++
			}
			if seen["a"] != 1 {
				t.Errorf("expected a once, got %d", seen["a"])
			}
			if res[0].Item.Name != "first" {
				t.Errorf("expected first occurrence to win, got %q", res[0].Item.Name)
			}
		})
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{"a": {1, 0}}}
	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			idx.Build(context.Background(), items("a"))
			if _, err := idx.Search([]float32{1, 0, 0}, 1, nil); !errors.Is(err, domain.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestSearch_TiesKeepBuildOrder(t *testing.T) {
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{
		"x": {1, 0}, "y": {1, 0}, "z": {1, 0},
	}}
	idx := NewExact(e)
	idx.Build(context.Background(), items("z", "x", "y"))
	res, _ := idx.Search([]float32{1, 0}, 3, nil)
	got := []string{res[0].Item.ID, res[1].Item.ID, res[2].Item.ID}
	if got[0] != "z" || got[1] != "x" || got[2] != "y" {
		t.Errorf("expected build order on ties, got %v", got)
	}
}

func TestSearch_ZeroVectorsSortLast(t *testing.T) {
	// "failed" and "missing" have no embedding; "real" points away from the query.
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{
		"failed": {0, 0},
		"real":   {-0.2, 1},
		"close":  {1, 0.1},
	}}

	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			if err := idx.Build(context.Background(), items("failed", "missing", "real", "close")); err != nil {
				t.Fatal(err)
			}

			res, err := idx.Search([]float32{1, 0}, 4, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(res) != 4 {
				t.Fatalf("expected 4 results, got %d", len(res))
			}
			want := []string{"close", "real", "failed", "missing"}
			for i, id := range want {
				if res[i].Item.ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, res[i].Item.ID)
				}
			}
			if res[1].Score >= 0 {
				t.Errorf("expected negative similarity for real, got %f", res[1].Score)
			}

			top, _ := idx.Search([]float32{1, 0}, 2, nil)
			if len(top) != 2 || top[1].Item.ID != "real" {
				t.Errorf("zero-vector item took a top-k slot: %v", top)
			}
		})
	}
}

func TestBuild_ReplacesContents(t *testing.T) {
	e := &fixedEmbedder{dim: 2, vecs: map[string][]float32{"a": {1, 0}, "b": {0, 1}}}
	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			idx.Build(context.Background(), items("a"))
			idx.Build(context.Background(), items("b"))
			res, _ := idx.Search([]float32{1, 0}, 5, nil)
			if len(res) != 1 || res[0].Item.ID != "b" {
				t.Errorf("expected only b after rebuild, got %v", res)
			}
		})
	}
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	idx := NewExact(&fixedEmbedder{dim: 2})
	if err := idx.Build(ctx, items("a")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func randomVectors(n, dim int, seed uint64) ([]domain.Item, *fixedEmbedder) {
	r := rand.New(rand.NewPCG(seed, seed+1))
	e := &fixedEmbedder{dim: dim, vecs: make(map[string][]float32, n)}
	its := make([]domain.Item, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%04d", i)
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		e.vecs[id] = v
		its[i] = domain.Item{ID: id}
	}
	return its, e
}

func TestHNSW_RecallAgainstExact(t *testing.T) {
	its, e := randomVectors(600, 16, 42)
	exact := NewExact(e)
	approx := NewHNSW(e, Options{M: 16, EfConstruction: 200, EfSearch: 64, Seed: 3})
	ctx := context.Background()
	if err := exact.Build(ctx, its); err != nil {
		t.Fatal(err)
	}
	if err := approx.Build(ctx, its); err != nil {
		t.Fatal(err)
	}

	const k = 10
	var found, total int
	for q := 0; q < 20; q++ {
		query := e.vecs[its[q*7].ID]
		want, _ := exact.Search(query, k, nil)
		got, _ := approx.Search(query, k, nil)

		wantSet := map[string]bool{}
		for _, w := range want {
			wantSet[w.Item.ID] = true
		}
		for _, g := range got {
			if wantSet[g.Item.ID] {
				found++
			}
		}
		total += k
	}

	recall := float64(found) / float64(total)
	if recall < 0.8 {
		t.Errorf("HNSW recall too low: %.2f", recall)
	}
}

func TestHNSW_ExclusionOnLargePopulation(t *testing.T) {
	its, e := randomVectors(300, 8, 9)
	idx := NewHNSW(e, Options{EfSearch: 20, Seed: 1})
	idx.Build(context.Background(), its)

	exclude := map[string]struct{}{}
	for _, it := range its[:50] {
		exclude[it.ID] = struct{}{}
	}
	res, err := idx.Search(e.vecs[its[0].ID], 15, exclude)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) == 0 || len(res) > 15 {
		t.Fatalf("unexpected result count %d", len(res))
	}
	for _, r := range res {
		if _, bad := exclude[r.Item.ID]; bad {
			t.Errorf("excluded id %s returned", r.Item.ID)
		}
	}
}

func TestConcurrentBuildAndSearch(t *testing.T) {
	its, e := randomVectors(100, 8, 5)
	for name, idx := range variants(e) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					idx.Build(context.Background(), its)
				}()
				go func() {
					defer wg.Done()
					res, err := idx.Search(e.vecs[its[1].ID], 5, nil)
					if err != nil {
						t.Error(err)
					}
					if n := idx.Len(); n != 0 && n != len(its) {
						t.Errorf("observed partial index of %d items", n)
					}
					_ = res
				}()
			}
			wg.Wait()
		})
	}
}

func TestNew(t *testing.T) {
	e := &fixedEmbedder{dim: 2}
	if _, err := New("faiss", e, Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}
	idx, err := New("", e, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.(*Exact); !ok {
		t.Errorf("expected exact index by default, got %T", idx)
	}
	mk, err := Factory(KindHNSW, e, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if mk() == mk() {
		t.Error("factory should return fresh indexes")
	}
}
