package retriever

import (
	"context"
	"errors"
	"testing"

	"ragrec/internal/adapter/index"
	"ragrec/internal/domain"
)

func TestSemanticRetriever_Similar(t *testing.T) {
	p := &stubProvider{dim: 2, items: map[string][]float32{
		"a": {1, 0},
		"b": {0.9, 0.2},
		"c": {0, 1},
	}, texts: map[string][]float32{"wide": {0.1, 1}}}
	idx := index.NewExact(p)
	items := []domain.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	if err := idx.Build(context.Background(), items); err != nil {
		t.Fatal(err)
	}

	r := NewSemanticRetriever(idx, p)
	res, err := r.Similar(context.Background(), items[0], 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 || res[0].Item.ID != "b" {
		t.Errorf("expected b first and a excluded, got %v", res)
	}

	res, err = r.Search(context.Background(), "wide", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Item.ID != "c" {
		t.Errorf("expected c for text query, got %v", res)
	}
}

type unavailable struct{ stubProvider }

func (unavailable) Available() bool { return false }

func TestSemanticRetriever_Unavailable(t *testing.T) {
	p := &unavailable{stubProvider{dim: 2}}
	r := NewSemanticRetriever(index.NewExact(p), p)
	if _, err := r.Search(context.Background(), "x", 3); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}
