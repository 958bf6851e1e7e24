package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"ragrec/internal/adapter/encoder"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/metrics"
	"ragrec/internal/port"
)

// Provider serves embeddings from a cache, calling the embedder on a miss.
// It never returns an error: when the embedder is missing or fails, the
// result is a zero vector of the configured dimension, which downstream
// code treats as "no information". Failed lookups are not cached.
//
// Returned vectors are shared with the cache and must not be modified.
type Provider struct {
	embedder  port.Embedder
	cache     port.EmbeddingCache
	dimension int
	batchSize int
	timeout   time.Duration
	group     singleflight.Group
}

const defaultCallTimeout = 30 * time.Second

// NewProvider wires an embedder to a cache. A nil embedder makes every
// lookup that misses the cache return a zero vector.
func NewProvider(embedder port.Embedder, cache port.EmbeddingCache, dimension, batchSize int) *Provider {
	if embedder != nil && dimension <= 0 {
		dimension = embedder.Dimension()
	}
	if batchSize <= 0 {
		batchSize = openAIMaxBatch
	}
	return &Provider{
		embedder:  embedder,
		cache:     cache,
		dimension: dimension,
		batchSize: batchSize,
		timeout:   defaultCallTimeout,
	}
}

// SetTimeout bounds each shared single-text embedder call. Non-positive
// values keep the default.
func (p *Provider) SetTimeout(d time.Duration) {
	if d > 0 {
		p.timeout = d
	}
}

// Available reports whether an embedder is configured.
func (p *Provider) Available() bool {
	return p.embedder != nil
}

func (p *Provider) Dimension() int {
	return p.dimension
}

// NormalizeText trims and lowercases text before lookup.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// TextKey is the cache key for free text.
func TextKey(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return "text:" + hex.EncodeToString(sum[:])
}

// ItemKey is the cache key for a catalog item.
func ItemKey(id string) string {
	return "item:" + id
}

// Embed returns the embedding of text.
func (p *Provider) Embed(ctx context.Context, text string) []float32 {
	return p.lookup(ctx, "text", TextKey(text), NormalizeText(text))
}

// EmbedItem returns the embedding of item's encoded text, cached by item id.
func (p *Provider) EmbedItem(ctx context.Context, item domain.Item) []float32 {
	return p.lookup(ctx, "item", ItemKey(item.ID), NormalizeText(encoder.Encode(item)))
}

func (p *Provider) lookup(ctx context.Context, kind, key, text string) []float32 {
	if p.cache != nil {
		if vec, ok := p.cache.Get(ctx, key); ok {
			metrics.EmbeddingCacheHits.WithLabelValues(kind).Inc()
			return vec
		}
	}
	metrics.EmbeddingCacheMisses.WithLabelValues(kind).Inc()

	if p.embedder == nil {
		return vecZero(p.dimension)
	}

	// The call is shared by every caller waiting on key, so it must not die
	// with whichever request happened to start it.
	ch := p.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		vecs, err := p.call(callCtx, []string{text})
		if err != nil {
			return nil, err
		}
		p.store(callCtx, key, vecs[0])
		return vecs[0], nil
	})

	select {
	case <-ctx.Done():
		logging.Ctx(ctx).Warn().Err(ctx.Err()).Str("key", key).Msg("embedding abandoned, using zero vector")
		return vecZero(p.dimension)
	case r := <-ch:
		if r.Err != nil {
			logging.Ctx(ctx).Warn().Err(r.Err).Str("key", key).Msg("embedding unavailable, using zero vector")
			return vecZero(p.dimension)
		}
		return r.Val.([]float32)
	}
}

// EmbedItems embeds items in order, batching cache misses. Items that fail
// to embed get zero vectors.
func (p *Provider) EmbedItems(ctx context.Context, items []domain.Item) [][]float32 {
	out := make([][]float32, len(items))

	type miss struct {
		key  string
		text string
		pos  []int
	}
	var misses []*miss
	pending := make(map[string]*miss)

	for i, it := range items {
		key := ItemKey(it.ID)
		if p.cache != nil {
			if vec, ok := p.cache.Get(ctx, key); ok {
				metrics.EmbeddingCacheHits.WithLabelValues("item").Inc()
				out[i] = vec
				continue
			}
		}
		if m, ok := pending[key]; ok {
			m.pos = append(m.pos, i)
			continue
		}
		metrics.EmbeddingCacheMisses.WithLabelValues("item").Inc()
		m := &miss{key: key, text: NormalizeText(encoder.Encode(it)), pos: []int{i}}
		pending[key] = m
		misses = append(misses, m)
	}

	for start := 0; start < len(misses); start += p.batchSize {
		batch := misses[start:min(start+p.batchSize, len(misses))]

		var vecs [][]float32
		var err error
		if p.embedder == nil {
			err = domain.ErrEmbeddingUnavailable
		} else {
			texts := make([]string, len(batch))
			for i, m := range batch {
				texts[i] = m.text
			}
			vecs, err = p.call(ctx, texts)
		}
		if err != nil && p.embedder != nil {
			logging.Ctx(ctx).Warn().Err(err).Int("items", len(batch)).Msg("batch embedding failed, using zero vectors")
		}

		for i, m := range batch {
			vec := vecZero(p.dimension)
			if err == nil {
				vec = vecs[i]
				p.store(ctx, m.key, vec)
			}
			for _, pos := range m.pos {
				out[pos] = vec
			}
		}
	}
	return out
}

// call invokes the embedder and checks the shape of its answer.
func (p *Provider) call(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := p.embedder.Embed(ctx, texts)
	metrics.ObserveSince(metrics.EmbeddingDuration, start)

	if err == nil {
		err = p.checkShape(vecs, len(texts))
	}
	if err != nil {
		metrics.EmbeddingFailures.Inc()
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return vecs, nil
}

func (p *Provider) checkShape(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) != p.dimension {
			return fmt.Errorf("vector %d: %w: got %d, want %d", i, domain.ErrDimensionMismatch, len(v), p.dimension)
		}
	}
	return nil
}

func (p *Provider) store(ctx context.Context, key string, vec []float32) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Put(ctx, key, vec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache embedding")
	}
}

func vecZero(dim int) []float32 {
	return make([]float32, dim)
}
