package embedding

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"ragrec/internal/adapter/resilience"
	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// GuardedEmbedder rate limits calls to an embedder and stops calling it
// while it keeps failing.
type GuardedEmbedder struct {
	inner   port.Embedder
	cb      *gobreaker.CircuitBreaker[[][]float32]
	limiter *rate.Limiter
}

// NewGuardedEmbedder wraps inner. A non-positive rps disables rate limiting.
func NewGuardedEmbedder(inner port.Embedder, rps float64, cfg resilience.BreakerConfig) *GuardedEmbedder {
	g := &GuardedEmbedder{
		inner: inner,
		cb:    resilience.NewBreaker[[][]float32]("embedder", cfg),
	}
	if rps > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
	return g
}

func (g *GuardedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	vecs, err := g.cb.Execute(func() ([][]float32, error) {
		return g.inner.Embed(ctx, texts)
	})
	if resilience.IsOpen(err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return vecs, err
}

func (g *GuardedEmbedder) Dimension() int {
	return g.inner.Dimension()
}

func (g *GuardedEmbedder) ModelName() string {
	return g.inner.ModelName()
}
