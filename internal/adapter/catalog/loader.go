// Package catalog loads item catalogs from JSON and YAML files.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"ragrec/internal/adapter/memstore"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/port"
	"ragrec/internal/validation"
)

// Loader reads every catalog file the walker finds under a root.
type Loader struct {
	walker port.FileWalker
}

func NewLoader(walker port.FileWalker) *Loader {
	return &Loader{walker: walker}
}

// LoadResult summarizes a load.
type LoadResult struct {
	Files      int
	Items      int
	Invalid    int
	Duplicates int
	Errors     []string
}

// Load reads root, which may be a directory or a single file, into an
// in-memory catalog. Files that fail to decode and items that fail
// validation are skipped and reported in the result. The first item with a
// given id wins, in lexical file order.
func (l *Loader) Load(ctx context.Context, root string) (*memstore.Catalog, *LoadResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog root: %w", err)
	}

	var paths []string
	if info.IsDir() {
		files, err := l.walker.Walk(root)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to walk catalog: %w", err)
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	} else {
		paths = []string{root}
	}

	result := &LoadResult{}
	var items []domain.Item
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fileItems, err := ReadFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, err))
			logging.Warn().Err(err).Str("path", path).Msg("skipping catalog file")
			continue
		}
		result.Files++

		for _, it := range fileItems {
			if err := validation.ValidateItem(it); err != nil {
				result.Invalid++
				logging.Warn().Err(err).Str("path", path).Msg("skipping invalid item")
				continue
			}
			items = append(items, it)
		}
	}

	cat := memstore.NewCatalog()
	result.Items = cat.Replace(items)
	result.Duplicates = len(items) - result.Items

	logging.Info().
		Int("files", result.Files).
		Int("items", result.Items).
		Int("invalid", result.Invalid).
		Int("duplicates", result.Duplicates).
		Msg("catalog loaded")

	return cat, result, nil
}

// ReadFile decodes one catalog file. JSON and YAML files may hold either a
// top-level list of items or an object with a "products" list.
func ReadFile(path string) ([]domain.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}

type wrapped struct {
	Products []domain.Item `json:"products" yaml:"products"`
}

// DecodeJSON decodes a JSON catalog document.
func DecodeJSON(data []byte) ([]domain.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []domain.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode item list: %w", err)
		}
		return items, nil
	}
	var w wrapped
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return w.Products, nil
}

// DecodeYAML decodes a YAML catalog document.
func DecodeYAML(data []byte) ([]domain.Item, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var items []domain.Item
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("decode item list: %w", err)
		}
		return items, nil
	}
	var w wrapped
	if err := root.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return w.Products, nil
}
