package domain

import (
	"reflect"
	"testing"
)

func TestPreferencesStrings(t *testing.T) {
	prefs := Preferences{
		"single":  "Shoes",
		"empty":   "",
		"list":    []any{"A", "", 3.0},
		"typed":   []string{"x", "", "y"},
		"number":  42,
		"missing": nil,
	}

	tests := []struct {
		key  string
		want []string
	}{
		{"single", []string{"Shoes"}},
		{"empty", nil},
		{"list", []string{"A", "3"}},
		{"typed", []string{"x", "y"}},
		{"number", []string{"42"}},
		{"missing", nil},
		{"absent", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := prefs.Strings(tt.key)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Strings(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestPreferencesPriceRange(t *testing.T) {
	tests := []struct {
		name    string
		prefs   Preferences
		wantMin *float64
		wantMax *float64
	}{
		{"unset", Preferences{}, nil, nil},
		{"both", Preferences{PrefPriceRange: map[string]any{"min": 10, "max": 50.5}}, ptr(10), ptr(50.5)},
		{"min only", Preferences{PrefPriceRange: map[string]any{"min": "20"}}, ptr(20), nil},
		{"typed map", Preferences{PrefPriceRange: map[string]float64{"max": 99}}, nil, ptr(99)},
		{"wrong type", Preferences{PrefPriceRange: "cheap"}, nil, nil},
		{"bad value", Preferences{PrefPriceRange: map[string]any{"min": "abc"}}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := tt.prefs.PriceRange()
			if !floatPtrEqual(min, tt.wantMin) {
				t.Errorf("min = %v, want %v", deref(min), deref(tt.wantMin))
			}
			if !floatPtrEqual(max, tt.wantMax) {
				t.Errorf("max = %v, want %v", deref(max), deref(tt.wantMax))
			}
		})
	}
}

func TestPreferencesFilters(t *testing.T) {
	prefs := Preferences{
		PrefCategory:   "Shoes",
		PrefPriceRange: map[string]any{"max": 100.0},
		"style":        "casual",
	}
	if !prefs.HasAttributeFilters() {
		t.Error("expected attribute filters")
	}

	loose := prefs.PriceOnly()
	if loose.HasAttributeFilters() {
		t.Error("PriceOnly should drop attribute filters")
	}
	if len(loose) != 1 {
		t.Errorf("expected only price_range, got %v", loose)
	}
	if _, max := loose.PriceRange(); max == nil || *max != 100 {
		t.Errorf("price range not preserved: %v", loose)
	}
	if _, ok := prefs["style"]; !ok {
		t.Error("PriceOnly must not modify the receiver")
	}

	if (Preferences{"brand": []any{}}).HasAttributeFilters() {
		t.Error("empty brand list is not a filter")
	}
	if len(Preferences{}.PriceOnly()) != 0 {
		t.Error("expected empty preferences")
	}
}

func TestPreferencesRender(t *testing.T) {
	prefs := Preferences{
		"style":        "casual",
		PrefCategory:   []any{"Shoes", "Boots"},
		PrefPriceRange: map[string]any{"min": 10.0, "max": 80.0},
		"note":         "",
	}

	want := []string{
		"category: Shoes, Boots",
		"price_range max: 80",
		"price_range min: 10",
		"style: casual",
	}
	if got := prefs.Render(); !reflect.DeepEqual(got, want) {
		t.Errorf("Render() = %v, want %v", got, want)
	}
	if got := (Preferences{}).Render(); len(got) != 0 {
		t.Errorf("expected no phrases, got %v", got)
	}
}

func TestItemHasTag(t *testing.T) {
	it := Item{ID: "p1", Tags: []string{"running", "outdoor"}}
	if !it.HasTag("outdoor") {
		t.Error("expected tag outdoor")
	}
	if it.HasTag("Outdoor") {
		t.Error("tags are case-sensitive")
	}
}

func ptr(f float64) *float64 { return &f }

func deref(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
