package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Item is a single catalog entry. Items are read-only once loaded.
type Item struct {
	ID          string   `json:"id" yaml:"id" validate:"required"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Subcategory string   `json:"subcategory" yaml:"subcategory"`
	Brand       string   `json:"brand" yaml:"brand"`
	Price       float64  `json:"price" yaml:"price" validate:"gte=0"`
	Rating      float64  `json:"rating" yaml:"rating" validate:"gte=0,lte=5"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Features    []string `json:"features,omitempty" yaml:"features,omitempty"`
}

// HasTag reports whether the item carries tag.
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Preference keys with filtering semantics. Any other key is free-form.
const (
	PrefCategory   = "category"
	PrefBrand      = "brand"
	PrefPriceRange = "price_range"
)

// Preferences are the shopper's explicit, request-scoped preferences.
// Values are strings, lists of strings, numbers or nested maps
// (price_range: {min, max}).
type Preferences map[string]any

// Keys returns the preference keys in sorted order.
func (p Preferences) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings returns the value under key as a list of non-empty strings.
// A single string becomes a one-element list.
func (p Preferences) Strings(key string) []string {
	v, ok := p[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch val := v.(type) {
	case string:
		if val != "" {
			out = append(out, val)
		}
	case []string:
		for _, s := range val {
			if s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, e := range val {
			if s := scalarString(e); s != "" {
				out = append(out, s)
			}
		}
	default:
		if s := scalarString(val); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PriceRange returns the inclusive price bounds. Either bound may be nil.
func (p Preferences) PriceRange() (min, max *float64) {
	v, ok := p[PrefPriceRange]
	if !ok || v == nil {
		return nil, nil
	}
	var m map[string]any
	switch val := v.(type) {
	case map[string]any:
		m = val
	case map[string]float64:
		m = make(map[string]any, len(val))
		for k, f := range val {
			m[k] = f
		}
	default:
		return nil, nil
	}
	if f, ok := toFloat(m["min"]); ok {
		min = &f
	}
	if f, ok := toFloat(m["max"]); ok {
		max = &f
	}
	return min, max
}

// HasAttributeFilters reports whether category or brand filters are set.
func (p Preferences) HasAttributeFilters() bool {
	return len(p.Strings(PrefCategory)) > 0 || len(p.Strings(PrefBrand)) > 0
}

// PriceOnly returns a copy holding only the price range.
func (p Preferences) PriceOnly() Preferences {
	out := Preferences{}
	if v, ok := p[PrefPriceRange]; ok {
		out[PrefPriceRange] = v
	}
	return out
}

// Render formats the preferences as "key: value" phrases, sorted by key.
// Nested maps render as "key subkey: value" and lists as "key: v1, v2".
// Empty values are skipped.
func (p Preferences) Render() []string {
	var parts []string
	for _, key := range p.Keys() {
		switch val := p[key].(type) {
		case nil:
		case map[string]any:
			subs := make([]string, 0, len(val))
			for sk := range val {
				subs = append(subs, sk)
			}
			sort.Strings(subs)
			for _, sk := range subs {
				if s := scalarString(val[sk]); s != "" {
					parts = append(parts, fmt.Sprintf("%s %s: %s", key, sk, s))
				}
			}
		default:
			if vals := p.Strings(key); len(vals) > 0 {
				parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(vals, ", ")))
			}
		}
	}
	return parts
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}

// ScoredItem is an item with a similarity or overlap score.
type ScoredItem struct {
	Item  Item
	Score float64
}

// Recommendation is a validated entry from the generative step.
type Recommendation struct {
	Item           Item    `json:"product"`
	RelevanceScore float64 `json:"relevance_score"`
	Explanation    string  `json:"explanation"`
}

// Request is a single recommendation request.
type Request struct {
	Preferences     Preferences `json:"preferences" yaml:"preferences"`
	BrowsingHistory []string    `json:"browsing_history" yaml:"browsing_history" validate:"dive,required"`
	MaxCandidates   int         `json:"max_candidates" yaml:"max_candidates" validate:"gte=0,lte=200"`
}
