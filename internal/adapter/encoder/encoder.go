// Package encoder renders catalog items as text for embedding.
package encoder

import (
	"strings"

	"ragrec/internal/domain"
)

// Encode returns the embedding text for item: name, category, subcategory,
// brand, description, tags and features, in that order, separated by single
// spaces. Empty fields still occupy their slot so the layout is fixed.
func Encode(item domain.Item) string {
	var b strings.Builder
	b.Grow(len(item.Name) + len(item.Description) + 64)

	fields := [...]string{item.Name, item.Category, item.Subcategory, item.Brand, item.Description}
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	b.WriteByte(' ')
	b.WriteString(strings.Join(item.Tags, " "))
	b.WriteByte(' ')
	b.WriteString(strings.Join(item.Features, " "))
	return b.String()
}
