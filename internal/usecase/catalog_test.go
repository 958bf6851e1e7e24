package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragrec/internal/domain"
)

func catalogFixture() *CatalogUseCase {
	return NewCatalogUseCase(newCatalog(
		domain.Item{ID: "p1", Name: "Trail Runner", Category: "Footwear", Subcategory: "Running", Brand: "Stride", Price: 100, Rating: 4.5, Tags: []string{"outdoor", "light"}},
		domain.Item{ID: "p2", Name: "alpine boot", Category: "Footwear", Subcategory: "Hiking", Brand: "Peak", Price: 115, Rating: 4.8, Tags: []string{"outdoor"}},
		domain.Item{ID: "p3", Name: "Rain Shell", Category: "Apparel", Subcategory: "Jackets", Brand: "Stride", Price: 180, Rating: 4.1, Tags: []string{"rain"}},
		domain.Item{ID: "p4", Name: "Cast Pan", Category: "Kitchen", Subcategory: "Cookware", Brand: "Iron", Price: 40, Rating: 3.9, Description: "Great for outdoor cooking"},
		domain.Item{ID: "p5", Name: "Road Runner", Category: "Footwear", Subcategory: "Running", Brand: "Stride", Price: 95, Rating: 4.0},
	))
}

func TestCatalog_Facets(t *testing.T) {
	uc := catalogFixture()
	ctx := context.Background()

	cats, _ := uc.Categories(ctx)
	if strings.Join(cats, ",") != "Apparel,Footwear,Kitchen" {
		t.Errorf("unexpected categories %v", cats)
	}
	subs, _ := uc.Subcategories(ctx, "Footwear")
	if strings.Join(subs, ",") != "Hiking,Running" {
		t.Errorf("unexpected subcategories %v", subs)
	}
	brands, _ := uc.Brands(ctx)
	if strings.Join(brands, ",") != "Iron,Peak,Stride" {
		t.Errorf("unexpected brands %v", brands)
	}
	tags, _ := uc.Tags(ctx)
	if strings.Join(tags, ",") != "light,outdoor,rain" {
		t.Errorf("unexpected tags %v", tags)
	}
	r, _ := uc.PriceRange(ctx)
	if r.Min != 40 || r.Max != 180 {
		t.Errorf("unexpected price range %+v", r)
	}

	empty, _ := NewCatalogUseCase(newCatalog()).PriceRange(ctx)
	if empty != (PriceRange{}) {
		t.Errorf("expected zero range for empty catalog, got %+v", empty)
	}
}

func TestCatalog_Get(t *testing.T) {
	uc := catalogFixture()
	if it, err := uc.Get("p3"); err != nil || it.Name != "Rain Shell" {
		t.Errorf("unexpected lookup: %+v, %v", it, err)
	}
	if _, err := uc.Get("nope"); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestCatalog_Search(t *testing.T) {
	uc := catalogFixture()
	minRating := 4.2
	maxPrice := 120.0

	tests := []struct {
		name string
		q    SearchQuery
		want string
	}{
		{"all", SearchQuery{}, "p1,p2,p3,p4,p5"},
		{"category", SearchQuery{Categories: []string{"Footwear"}}, "p1,p2,p5"},
		{"brand and price", SearchQuery{Brands: []string{"Stride"}, MaxPrice: &maxPrice}, "p1,p5"},
		{"rating", SearchQuery{MinRating: &minRating}, "p1,p2"},
		{"any tag", SearchQuery{Tags: []string{"rain", "light"}}, "p1,p3"},
		{"text in description", SearchQuery{Text: "OUTDOOR"}, "p1,p2,p4"},
		{"sort by name", SearchQuery{SortBy: "name"}, "p2,p4,p3,p5,p1"},
		{"sort by price desc", SearchQuery{SortBy: "price", Desc: true, Limit: 2}, "p3,p2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := uc.Search(context.Background(), tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(ids(items), ","); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := uc.Search(context.Background(), SearchQuery{SortBy: "color"}); err == nil {
		t.Error("expected validation error for unknown sort field")
	}
}

func TestCatalog_Related(t *testing.T) {
	uc := catalogFixture()
	related, err := uc.Related(context.Background(), "p1", 3)
	if err != nil {
		t.Fatal(err)
	}
	// p5: category 3 + subcategory 2 + brand 1 + price 1 = 7
	// p2: category 3 + tag 1 + price 1 = 5
	// p3: brand 1
	want := []struct {
		id    string
		score float64
	}{{"p5", 7}, {"p2", 5}, {"p3", 1}}
	if len(related) != len(want) {
		t.Fatalf("expected %d related items, got %+v", len(want), related)
	}
	for i, w := range want {
		if related[i].Item.ID != w.id || related[i].Score != w.score {
			t.Errorf("position %d: expected %s/%v, got %s/%v", i, w.id, w.score, related[i].Item.ID, related[i].Score)
		}
	}

	if _, err := uc.Related(context.Background(), "missing", 3); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}
