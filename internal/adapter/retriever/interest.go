package retriever

import (
	"context"
	"strings"

	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// DefaultHistoryWeight is the share of the interest vector taken from
// browsing history when preferences are also present.
const DefaultHistoryWeight = 0.7

// preferencesMarker prefixes the rendered preference text.
const preferencesMarker = "User preferences: "

// InterestComposer folds browsing history and stated preferences into a
// single user-interest vector.
type InterestComposer struct {
	embeddings    port.EmbeddingProvider
	historyWeight float64
}

func NewInterestComposer(embeddings port.EmbeddingProvider, historyWeight float64) *InterestComposer {
	if historyWeight <= 0 || historyWeight > 1 {
		historyWeight = DefaultHistoryWeight
	}
	return &InterestComposer{embeddings: embeddings, historyWeight: historyWeight}
}

// Compose returns the interest vector. Without history it is the
// preference embedding; without preferences it is the history embedding;
// otherwise the weighted blend, normalized when its norm is positive.
// Compose(nil, nil) is the zero vector.
func (c *InterestComposer) Compose(ctx context.Context, browsed []domain.Item, prefs domain.Preferences) []float32 {
	if len(browsed) == 0 {
		return c.PreferencesEmbedding(ctx, prefs)
	}

	history := c.HistoryEmbedding(ctx, browsed)
	if PreferencesText(prefs) == "" {
		return history
	}
	pref := c.PreferencesEmbedding(ctx, prefs)

	combined := vecmath.Zero(c.embeddings.Dimension())
	vecmath.AddScaled(combined, history, c.historyWeight)
	vecmath.AddScaled(combined, pref, 1-c.historyWeight)
	if vecmath.Norm(combined) > 0 {
		return vecmath.Normalize(combined)
	}
	return combined
}

// HistoryWeights returns per-item weights for a most-recent-first history:
// linear from 1.0 for the most recent item down to 0.5 for the oldest.
func HistoryWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 1 - 0.5*float64(i)/float64(n-1)
	}
	return w
}

// HistoryEmbedding is the recency-weighted, L2-normalized sum of the browsed
// items' embeddings. Items without an embedding contribute nothing.
func (c *InterestComposer) HistoryEmbedding(ctx context.Context, browsed []domain.Item) []float32 {
	dim := c.embeddings.Dimension()
	sum := vecmath.Zero(dim)
	if len(browsed) == 0 {
		return sum
	}

	vecs := c.embeddings.EmbedItems(ctx, browsed)
	for i, w := range HistoryWeights(len(browsed)) {
		vecmath.AddScaled(sum, vecs[i], w)
	}
	return vecmath.Normalize(sum)
}

// PreferencesText renders preferences for embedding, or "" when nothing
// renderable is present.
func PreferencesText(prefs domain.Preferences) string {
	parts := prefs.Render()
	if len(parts) == 0 {
		return ""
	}
	return preferencesMarker + strings.Join(parts, ". ")
}

// PreferencesEmbedding embeds the rendered preferences. Empty preferences
// give a zero vector without calling the embedder.
func (c *InterestComposer) PreferencesEmbedding(ctx context.Context, prefs domain.Preferences) []float32 {
	text := PreferencesText(prefs)
	if text == "" {
		return vecmath.Zero(c.embeddings.Dimension())
	}
	return c.embeddings.Embed(ctx, text)
}
