package usecase

import (
	"context"
	"errors"
	"fmt"

	"ragrec/internal/adapter/retriever"
	"ragrec/internal/adapter/vecmath"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/metrics"
	"ragrec/internal/port"
)

const (
	DefaultMaxCandidates  = 10
	DefaultRecommendCount = 5

	// primaryShare is the fraction of overlap candidates taken by score
	// before the category diversity backfill, in tenths.
	primaryShare = 7
)

// Strategy names how candidates were ranked.
type Strategy string

const (
	StrategyVector  Strategy = "vector"
	StrategyOverlap Strategy = "overlap"
)

// Selection is the output of candidate selection.
type Selection struct {
	Candidates []domain.ScoredItem
	Strategy   Strategy
	Level      retriever.FilterLevel
	// Loosened is set when the price-only retry produced the candidates.
	Loosened bool
	Prompt   Prompt
}

// Items returns the candidate items in rank order.
func (s *Selection) Items() []domain.Item {
	out := make([]domain.Item, len(s.Candidates))
	for i, c := range s.Candidates {
		out[i] = c.Item
	}
	return out
}

// SelectUseCase narrows the catalog to a short, ranked candidate list for
// the generative step.
type SelectUseCase struct {
	prefilter      *retriever.Prefilter
	composer       *retriever.InterestComposer
	embeddings     port.EmbeddingProvider
	newIndex       func() port.VectorIndex
	reranker       port.DiversityReranker
	recommendCount int
}

// NewSelectUseCase wires the selector. newIndex returns an empty index for
// each selection; a nil embeddings provider or newIndex disables the vector
// strategy. A nil reranker disables diversification.
func NewSelectUseCase(
	prefilter *retriever.Prefilter,
	composer *retriever.InterestComposer,
	embeddings port.EmbeddingProvider,
	newIndex func() port.VectorIndex,
	reranker port.DiversityReranker,
	recommendCount int,
) *SelectUseCase {
	if prefilter == nil {
		prefilter = retriever.NewPrefilter(retriever.DefaultMinViable)
	}
	if recommendCount <= 0 {
		recommendCount = DefaultRecommendCount
	}
	return &SelectUseCase{
		prefilter:      prefilter,
		composer:       composer,
		embeddings:     embeddings,
		newIndex:       newIndex,
		reranker:       reranker,
		recommendCount: recommendCount,
	}
}

// SelectCandidates returns at most max candidates from all, never including
// a browsed item, plus the rendered prompt. browsed is most-recent-first.
func (u *SelectUseCase) SelectCandidates(
	ctx context.Context,
	prefs domain.Preferences,
	browsed []domain.Item,
	all []domain.Item,
	max int,
) (*Selection, error) {
	if len(all) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	if max <= 0 {
		max = DefaultMaxCandidates
	}
	log := logging.Ctx(ctx)

	sel := u.selectOnce(ctx, prefs, browsed, all, max)

	if len(sel.Candidates) < u.prefilter.MinViable && prefs.HasAttributeFilters() {
		log.Debug().
			Err(domain.ErrInsufficientCandidates).
			Int("candidates", len(sel.Candidates)).
			Msg("retrying selection with price filter only")

		retry := u.selectOnce(ctx, prefs.PriceOnly(), browsed, all, max)
		if len(retry.Candidates) > len(sel.Candidates) {
			sel = retry
			sel.Loosened = true
		}
	}

	prompt, err := RenderPrompt(PromptData{
		Browsed:     browsed,
		Preferences: prefs.Render(),
		Candidates:  sel.Items(),
		Count:       u.recommendCount,
	})
	if err != nil {
		return nil, err
	}
	sel.Prompt = prompt

	metrics.CandidateCount.WithLabelValues(string(sel.Strategy)).Observe(float64(len(sel.Candidates)))
	log.Info().
		Str("strategy", string(sel.Strategy)).
		Str("filter_level", string(sel.Level)).
		Bool("loosened", sel.Loosened).
		Int("candidates", len(sel.Candidates)).
		Msg("candidates selected")

	return sel, nil
}

func (u *SelectUseCase) selectOnce(
	ctx context.Context,
	prefs domain.Preferences,
	browsed []domain.Item,
	all []domain.Item,
	max int,
) *Selection {
	filtered, level := u.prefilter.Filter(prefs, all)
	exclude := idSet(browsed)

	if len(browsed) > 0 && u.vectorEnabled() {
		hits, err := u.vectorSearch(ctx, prefs, browsed, filtered, exclude, max)
		if err == nil {
			return &Selection{Candidates: hits, Strategy: StrategyVector, Level: level}
		}
		logging.Ctx(ctx).Debug().Err(err).Msg("vector selection unavailable, ranking by overlap")
	}

	return &Selection{
		Candidates: OverlapSelect(filtered, browsed, exclude, max),
		Strategy:   StrategyOverlap,
		Level:      level,
	}
}

func (u *SelectUseCase) vectorEnabled() bool {
	return u.composer != nil && u.newIndex != nil && u.embeddings != nil && u.embeddings.Available()
}

var errNoInterest = errors.New("interest vector is zero")

func (u *SelectUseCase) vectorSearch(
	ctx context.Context,
	prefs domain.Preferences,
	browsed, filtered []domain.Item,
	exclude map[string]struct{},
	max int,
) ([]domain.ScoredItem, error) {
	interest := u.composer.Compose(ctx, browsed, prefs)
	if vecmath.IsZero(interest) {
		return nil, errNoInterest
	}

	idx := u.newIndex()
	if err := idx.Build(ctx, filtered); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	k := max
	if u.reranker != nil {
		k = 2 * max
	}
	hits, err := idx.Search(interest, k, exclude)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if u.reranker != nil {
		hits = u.reranker.Rerank(hits, max)
	}
	if len(hits) > max {
		hits = hits[:max]
	}
	return hits, nil
}

// OverlapSelect ranks items by attribute overlap with the browsed items.
// The top 70% of max are taken by score, then one item from each category
// not yet represented, then the remaining items in rank order. Browsed ids
// in exclude and duplicate ids are skipped.
func OverlapSelect(items, browsed []domain.Item, exclude map[string]struct{}, max int) []domain.ScoredItem {
	eligible := make([]domain.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, skip := exclude[it.ID]; skip {
			continue
		}
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		eligible = append(eligible, it)
	}

	ranked := retriever.RankByOverlap(eligible, browsed)
	primary := max * primaryShare / 10

	out := make([]domain.ScoredItem, 0, min(max, len(ranked)))
	used := make([]bool, len(ranked))
	categories := make(map[string]struct{})
	take := func(i int) {
		used[i] = true
		categories[ranked[i].Item.Category] = struct{}{}
		out = append(out, ranked[i])
	}

	for i := 0; i < len(ranked) && len(out) < primary; i++ {
		take(i)
	}
	for i := range ranked {
		if len(out) >= max {
			break
		}
		if used[i] {
			continue
		}
		if _, ok := categories[ranked[i].Item.Category]; ok {
			continue
		}
		take(i)
	}
	for i := range ranked {
		if len(out) >= max {
			break
		}
		if !used[i] {
			take(i)
		}
	}
	return out
}

func idSet(items []domain.Item) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it.ID] = struct{}{}
	}
	return out
}
