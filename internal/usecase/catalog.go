package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"ragrec/internal/domain"
	"ragrec/internal/port"
	"ragrec/internal/validation"
)

// CatalogUseCase answers browsing queries over the catalog.
type CatalogUseCase struct {
	catalog port.Catalog
}

func NewCatalogUseCase(catalog port.Catalog) *CatalogUseCase {
	return &CatalogUseCase{catalog: catalog}
}

// SearchQuery filters and sorts catalog items. Empty fields do not filter.
type SearchQuery struct {
	Categories    []string `json:"categories"`
	Subcategories []string `json:"subcategories"`
	Brands        []string `json:"brands"`
	// Tags match when the item carries any of them.
	Tags      []string `json:"tags"`
	MinPrice  *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice  *float64 `json:"max_price" validate:"omitempty,gte=0"`
	MinRating *float64 `json:"min_rating" validate:"omitempty,gte=0,lte=5"`
	Text      string   `json:"query"`
	SortBy    string   `json:"sort_by" validate:"omitempty,oneof=name price rating"`
	Desc      bool     `json:"desc"`
	Limit     int      `json:"limit" validate:"gte=0"`
}

// PriceRange is the span of catalog prices.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (u *CatalogUseCase) Get(id string) (domain.Item, error) {
	it, ok := u.catalog.Get(id)
	if !ok {
		return domain.Item{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, id)
	}
	return it, nil
}

// Categories returns the distinct categories in sorted order.
func (u *CatalogUseCase) Categories(ctx context.Context) ([]string, error) {
	return u.distinct(ctx, func(it domain.Item) []string { return []string{it.Category} })
}

// Subcategories returns the distinct subcategories, restricted to category
// when it is non-empty.
func (u *CatalogUseCase) Subcategories(ctx context.Context, category string) ([]string, error) {
	return u.distinct(ctx, func(it domain.Item) []string {
		if category != "" && it.Category != category {
			return nil
		}
		return []string{it.Subcategory}
	})
}

func (u *CatalogUseCase) Brands(ctx context.Context) ([]string, error) {
	return u.distinct(ctx, func(it domain.Item) []string { return []string{it.Brand} })
}

func (u *CatalogUseCase) Tags(ctx context.Context) ([]string, error) {
	return u.distinct(ctx, func(it domain.Item) []string { return it.Tags })
}

func (u *CatalogUseCase) distinct(ctx context.Context, values func(domain.Item) []string) ([]string, error) {
	items, err := u.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, it := range items {
		for _, v := range values(it) {
			if v != "" {
				set[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// PriceRange returns the lowest and highest price, or zeros for an empty catalog.
func (u *CatalogUseCase) PriceRange(ctx context.Context) (PriceRange, error) {
	items, err := u.catalog.Items(ctx)
	if err != nil {
		return PriceRange{}, err
	}
	if len(items) == 0 {
		return PriceRange{}, nil
	}
	r := PriceRange{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, it := range items {
		r.Min = math.Min(r.Min, it.Price)
		r.Max = math.Max(r.Max, it.Price)
	}
	return r, nil
}

// Search returns the items matching q. Without SortBy, catalog order is kept.
func (u *CatalogUseCase) Search(ctx context.Context, q SearchQuery) ([]domain.Item, error) {
	if err := validation.Struct(q); err != nil {
		return nil, err
	}
	items, err := u.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}

	categories := stringSet(q.Categories)
	subcategories := stringSet(q.Subcategories)
	brands := stringSet(q.Brands)
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if !inSet(categories, it.Category) || !inSet(subcategories, it.Subcategory) || !inSet(brands, it.Brand) {
			continue
		}
		if q.MinPrice != nil && it.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && it.Price > *q.MaxPrice {
			continue
		}
		if q.MinRating != nil && it.Rating < *q.MinRating {
			continue
		}
		if len(q.Tags) > 0 && !hasAnyTag(it, q.Tags) {
			continue
		}
		if text != "" && !matchesText(it, text) {
			continue
		}
		out = append(out, it)
	}

	if q.SortBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.Desc {
				return itemLess(out[j], out[i], q.SortBy)
			}
			return itemLess(out[i], out[j], q.SortBy)
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func itemLess(a, b domain.Item, field string) bool {
	switch field {
	case "price":
		return a.Price < b.Price
	case "rating":
		return a.Rating < b.Rating
	default:
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	}
}

func matchesText(it domain.Item, text string) bool {
	if strings.Contains(strings.ToLower(it.Name), text) || strings.Contains(strings.ToLower(it.Description), text) {
		return true
	}
	for _, t := range it.Tags {
		if strings.Contains(strings.ToLower(t), text) {
			return true
		}
	}
	return false
}

func hasAnyTag(it domain.Item, tags []string) bool {
	for _, t := range tags {
		if it.HasTag(t) {
			return true
		}
	}
	return false
}

// Related scores every other item against the item with id: 3 for the same
// category, 2 for the same subcategory, 1 for the same brand, 1 per shared
// tag and 1 when the price is within 20%. Items scoring zero are dropped;
// ties keep catalog order.
func (u *CatalogUseCase) Related(ctx context.Context, id string, limit int) ([]domain.ScoredItem, error) {
	source, err := u.Get(id)
	if err != nil {
		return nil, err
	}
	items, err := u.catalog.Items(ctx)
	if err != nil {
		return nil, err
	}

	sourceTags := stringSet(source.Tags)
	var scored []domain.ScoredItem
	for _, it := range items {
		if it.ID == source.ID {
			continue
		}
		score := 0
		if it.Category == source.Category {
			score += 3
		}
		if it.Subcategory == source.Subcategory {
			score += 2
		}
		if it.Brand == source.Brand {
			score++
		}
		for t := range stringSet(it.Tags) {
			if _, ok := sourceTags[t]; ok {
				score++
			}
		}
		if source.Price > 0 {
			ratio := it.Price / source.Price
			if ratio >= 0.8 && ratio <= 1.2 {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, domain.ScoredItem{Item: it, Score: float64(score)})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func stringSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// inSet reports whether v is allowed by set; a nil set allows everything.
func inSet(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}
