package llm

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"ragrec/internal/adapter/resilience"
	"ragrec/internal/domain"
	"ragrec/internal/port"
)

// GuardedLLM stops calling a model that keeps failing.
type GuardedLLM struct {
	inner port.LLM
	cb    *gobreaker.CircuitBreaker[string]
}

func NewGuardedLLM(inner port.LLM, cfg resilience.BreakerConfig) *GuardedLLM {
	return &GuardedLLM{
		inner: inner,
		cb:    resilience.NewBreaker[string]("llm", cfg),
	}
}

func (g *GuardedLLM) GenerateWithSystem(ctx context.Context, system, user string) (string, error) {
	out, err := g.cb.Execute(func() (string, error) {
		return g.inner.GenerateWithSystem(ctx, system, user)
	})
	if resilience.IsOpen(err) {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerativeCallFailed, err)
	}
	return out, err
}

func (g *GuardedLLM) ModelName() string {
	return g.inner.ModelName()
}
