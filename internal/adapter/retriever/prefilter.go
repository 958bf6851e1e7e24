package retriever

import (
	"sort"

	"ragrec/internal/domain"
	"ragrec/internal/metrics"
)

// DefaultMinViable is the smallest candidate pool worth ranking.
const DefaultMinViable = 10

// FilterLevel names the strictest filter set that produced a viable pool.
type FilterLevel string

const (
	LevelFull      FilterLevel = "full"
	LevelPriceOnly FilterLevel = "price_only"
	LevelNone      FilterLevel = "none"
)

// Prefilter narrows the catalog by explicit preferences, loosening the
// filters when they leave fewer than MinViable items.
type Prefilter struct {
	MinViable int
}

func NewPrefilter(minViable int) *Prefilter {
	if minViable <= 0 {
		minViable = DefaultMinViable
	}
	return &Prefilter{MinViable: minViable}
}

// Filter applies category, price range and brand filters in that order.
// Below MinViable it retries with the price range alone, then with no
// filter at all. Item order is preserved.
func (f *Prefilter) Filter(prefs domain.Preferences, items []domain.Item) ([]domain.Item, FilterLevel) {
	level := LevelFull
	out := Apply(prefs, items)

	if len(out) < f.MinViable {
		level = LevelPriceOnly
		out = Apply(prefs.PriceOnly(), items)
	}
	if len(out) < f.MinViable {
		level = LevelNone
		out = append([]domain.Item(nil), items...)
	}

	metrics.PrefilterLevel.WithLabelValues(string(level)).Inc()
	return out, level
}

// Apply filters items without any loosening. Absent or empty preferences
// do not filter.
func Apply(prefs domain.Preferences, items []domain.Item) []domain.Item {
	categories := toSet(prefs.Strings(domain.PrefCategory))
	brands := toSet(prefs.Strings(domain.PrefBrand))
	minPrice, maxPrice := prefs.PriceRange()

	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if len(categories) > 0 {
			if _, ok := categories[it.Category]; !ok {
				continue
			}
		}
		if minPrice != nil && it.Price < *minPrice {
			continue
		}
		if maxPrice != nil && it.Price > *maxPrice {
			continue
		}
		if len(brands) > 0 {
			if _, ok := brands[it.Brand]; !ok {
				continue
			}
		}
		out = append(out, it)
	}
	return out
}

// browsedProfile is the union of attributes across browsed items.
type browsedProfile struct {
	categories    map[string]struct{}
	subcategories map[string]struct{}
	brands        map[string]struct{}
	tags          map[string]struct{}
}

func newBrowsedProfile(browsed []domain.Item) browsedProfile {
	p := browsedProfile{
		categories:    map[string]struct{}{},
		subcategories: map[string]struct{}{},
		brands:        map[string]struct{}{},
		tags:          map[string]struct{}{},
	}
	for _, b := range browsed {
		if b.Category != "" {
			p.categories[b.Category] = struct{}{}
		}
		if b.Subcategory != "" {
			p.subcategories[b.Subcategory] = struct{}{}
		}
		if b.Brand != "" {
			p.brands[b.Brand] = struct{}{}
		}
		for _, t := range b.Tags {
			p.tags[t] = struct{}{}
		}
	}
	return p
}

func (p browsedProfile) score(it domain.Item) int {
	score := 0
	if _, ok := p.categories[it.Category]; ok && it.Category != "" {
		score += 3
	}
	if _, ok := p.subcategories[it.Subcategory]; ok && it.Subcategory != "" {
		score += 2
	}
	if _, ok := p.brands[it.Brand]; ok && it.Brand != "" {
		score += 2
	}
	counted := make(map[string]struct{}, len(it.Tags))
	for _, t := range it.Tags {
		if _, dup := counted[t]; dup {
			continue
		}
		counted[t] = struct{}{}
		if _, ok := p.tags[t]; ok {
			score++
		}
	}
	return score
}

// ScoreByOverlap scores item against the browsing history: 3 for a shared
// category, 2 for a shared subcategory, 2 for a shared brand and 1 per tag
// found on any browsed item.
func ScoreByOverlap(item domain.Item, browsed []domain.Item) int {
	return newBrowsedProfile(browsed).score(item)
}

// RankByOverlap orders items by ScoreByOverlap, highest first. Equal scores
// keep their input order.
func RankByOverlap(items, browsed []domain.Item) []domain.ScoredItem {
	profile := newBrowsedProfile(browsed)
	out := make([]domain.ScoredItem, len(items))
	for i, it := range items {
		out[i] = domain.ScoredItem{Item: it, Score: float64(profile.score(it))}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}
