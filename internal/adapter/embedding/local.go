package embedding

import (
	"context"
	"math"

	"github.com/cespare/xxhash/v2"

	"ragrec/internal/adapter/analyzer"
	"ragrec/internal/port"
)

// HashingEmbedder is an offline embedder that projects unigram and bigram
// features into a fixed number of buckets with signed feature hashing.
// Texts sharing vocabulary get high cosine similarity, which is enough to
// run the pipeline without an embedding API.
type HashingEmbedder struct {
	dimension int
	tokenizer port.Tokenizer
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashingEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(true),
	}
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := e.tokenizer.Tokenize(text)

	add := func(feature string, weight float32) {
		h := xxhash.Sum64String(feature)
		idx := int(h % uint64(e.dimension))
		if h&(1<<63) != 0 {
			weight = -weight
		}
		vec[idx] += weight
	}
	for _, tok := range tokens {
		add(tok, 1)
	}
	for _, bg := range analyzer.Bigrams(tokens) {
		add(bg, 0.5)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return "local-hashing"
}
