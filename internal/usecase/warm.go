package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/port"
)

// WarmUseCase precomputes item embeddings so later requests hit the cache.
type WarmUseCase struct {
	embeddings port.ItemEmbedder
	batchSize  int
	workers    int
}

func NewWarmUseCase(embeddings port.ItemEmbedder, batchSize, workers int) *WarmUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 4
	}
	return &WarmUseCase{
		embeddings: embeddings,
		batchSize:  batchSize,
		workers:    workers,
	}
}

// WarmResult summarizes a warm-up run.
type WarmResult struct {
	Items    int
	Batches  int
	Failed   int // items left with a zero vector
	Duration time.Duration
}

// Warm embeds items in concurrent batches. progress, if set, is called
// with the number of items done after each batch; calls are serialized.
func (u *WarmUseCase) Warm(ctx context.Context, items []domain.Item, progress func(done, total int)) (*WarmResult, error) {
	start := time.Now()
	result := &WarmResult{Items: len(items)}

	var failed atomic.Int64
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i := 0; i < len(items); i += u.batchSize {
		batch := items[i:min(i+u.batchSize, len(items))]
		result.Batches++

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vecs := u.embeddings.EmbedItems(gctx, batch)
			for _, v := range vecs {
				if vecmath.IsZero(v) {
					failed.Add(1)
				}
			}

			mu.Lock()
			done += len(batch)
			if progress != nil {
				progress(done, len(items))
			}
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	result.Failed = int(failed.Load())
	result.Duration = time.Since(start)

	logging.Info().
		Int("items", result.Items).
		Int("batches", result.Batches).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("embedding warm-up finished")

	return result, err
}
