package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ragrec/internal/domain"
)

// requestFlags builds a domain.Request from a request file and/or flags.
// Flags override values from the file.
type requestFlags struct {
	file       string
	history    []string
	categories []string
	brands     []string
	minPrice   float64
	maxPrice   float64
	prefs      []string
	max        int
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "request", "r", "", "request file (YAML or JSON) with preferences, browsing_history, max_candidates")
	cmd.Flags().StringSliceVar(&f.history, "history", nil, "browsed item ids, most recent first")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "preferred categories")
	cmd.Flags().StringSliceVar(&f.brands, "brand", nil, "preferred brands")
	cmd.Flags().Float64Var(&f.minPrice, "min-price", -1, "minimum price")
	cmd.Flags().Float64Var(&f.maxPrice, "max-price", -1, "maximum price")
	cmd.Flags().StringArrayVar(&f.prefs, "pref", nil, "free-form preference as key=value (repeatable)")
	cmd.Flags().IntVarP(&f.max, "max", "n", 0, "maximum candidates (default from config)")
}

func (f *requestFlags) build() (domain.Request, error) {
	var req domain.Request
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return req, fmt.Errorf("failed to read request file: %w", err)
		}
		// YAML is a superset of JSON, so one decoder covers both.
		if err := yaml.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse request file: %w", err)
		}
	}
	if req.Preferences == nil {
		req.Preferences = domain.Preferences{}
	}

	if len(f.history) > 0 {
		req.BrowsingHistory = f.history
	}
	if len(f.categories) > 0 {
		req.Preferences[domain.PrefCategory] = f.categories
	}
	if len(f.brands) > 0 {
		req.Preferences[domain.PrefBrand] = f.brands
	}
	if f.minPrice >= 0 || f.maxPrice >= 0 {
		r := map[string]any{}
		if f.minPrice >= 0 {
			r["min"] = f.minPrice
		}
		if f.maxPrice >= 0 {
			r["max"] = f.maxPrice
		}
		req.Preferences[domain.PrefPriceRange] = r
	}
	for _, kv := range f.prefs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return req, fmt.Errorf("invalid --pref %q, expected key=value", kv)
		}
		req.Preferences[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if f.max > 0 {
		req.MaxCandidates = f.max
	}
	return req, nil
}

// resolveItems maps ids to catalog items, skipping unknown and repeated ids.
func resolveItems(a *app, ids []string) []domain.Item {
	out := make([]domain.Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if it, ok := a.catalog.Get(id); ok {
			out = append(out, it)
		}
	}
	return out
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
