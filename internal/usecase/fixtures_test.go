package usecase

import (
	"fmt"

	"ragrec/internal/adapter/cache"
	"ragrec/internal/adapter/embedding"
	"ragrec/internal/adapter/index"
	"ragrec/internal/adapter/memstore"
	"ragrec/internal/adapter/retriever"
	"ragrec/internal/domain"
	"ragrec/internal/port"
)

const testDim = 16

func item(id, category, subcategory, brand string, price float64, tags ...string) domain.Item {
	return domain.Item{
		ID:          id,
		Name:        "Item " + id,
		Category:    category,
		Subcategory: subcategory,
		Brand:       brand,
		Price:       price,
		Rating:      4,
		Description: fmt.Sprintf("%s %s by %s", category, subcategory, brand),
		Tags:        tags,
	}
}

// series returns n items of one category with ids prefix1..prefixN.
func series(prefix, category string, n int, price float64) []domain.Item {
	out := make([]domain.Item, n)
	for i := range out {
		out[i] = item(fmt.Sprintf("%s%d", prefix, i+1), category, category+"-sub", "Brand"+prefix, price+float64(i))
	}
	return out
}

func ids(items []domain.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func overlapSelector() *SelectUseCase {
	return NewSelectUseCase(retriever.NewPrefilter(10), nil, nil, nil, nil, 5)
}

func vectorSelector(reranker *retriever.MMRReranker) (*SelectUseCase, *embedding.MockEmbedder) {
	mock := embedding.NewMockEmbedder(testDim)
	provider := embedding.NewProvider(mock, cache.NewMemoryCache(), testDim, 8)
	newIndex, err := index.Factory(index.KindExact, provider, index.Options{})
	if err != nil {
		panic(err)
	}
	composer := retriever.NewInterestComposer(provider, retriever.DefaultHistoryWeight)
	// A nil *MMRReranker must not become a non-nil interface.
	var rr port.DiversityReranker
	if reranker != nil {
		rr = reranker
	}
	return NewSelectUseCase(retriever.NewPrefilter(10), composer, provider, newIndex, rr, 5), mock
}

func newCatalog(items ...domain.Item) *memstore.Catalog {
	return memstore.NewCatalog(items...)
}
