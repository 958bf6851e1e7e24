package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ragrec/internal/adapter/parser"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/metrics"
	"ragrec/internal/port"
	"ragrec/internal/validation"
)

// Outcome is the terminal state of the generation loop.
type Outcome string

const (
	OutcomeParsed Outcome = "parsed"
	OutcomeFailed Outcome = "failed"
)

// RecommendOptions tunes the generation loop.
type RecommendOptions struct {
	MaxCandidates int
	MaxRetries    int
	Timeout       time.Duration
}

// Result is the answer to one recommendation request.
type Result struct {
	RequestID       string                  `json:"request_id"`
	Recommendations []domain.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
	Outcome         Outcome                 `json:"outcome"`
	Attempts        int                     `json:"attempts"`
	Strategy        Strategy                `json:"strategy,omitempty"`
	Candidates      int                     `json:"candidates"`
	Error           string                  `json:"error,omitempty"`
	Err             error                   `json:"-"`
}

func (r *Result) fail(err error) *Result {
	r.Outcome = OutcomeFailed
	r.Err = err
	r.Error = err.Error()
	if r.Recommendations == nil {
		r.Recommendations = []domain.Recommendation{}
	}
	r.Count = len(r.Recommendations)
	return r
}

// RecommendUseCase runs selection followed by the generative call.
type RecommendUseCase struct {
	catalog  port.Catalog
	selector *SelectUseCase
	llm      port.LLM
	opts     RecommendOptions
}

func NewRecommendUseCase(catalog port.Catalog, selector *SelectUseCase, llm port.LLM, opts RecommendOptions) *RecommendUseCase {
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &RecommendUseCase{
		catalog:  catalog,
		selector: selector,
		llm:      llm,
		opts:     opts,
	}
}

// Recommend answers req. Pipeline failures (empty catalog, model errors,
// unparseable output) are reported in Result.Error; the returned error is
// reserved for invalid requests and catalog read failures.
func (u *RecommendUseCase) Recommend(ctx context.Context, req domain.Request) (*Result, error) {
	if err := validation.ValidateRequest(req); err != nil {
		return nil, err
	}
	if logging.RequestIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewRequestID(ctx)
	}
	log := logging.Ctx(ctx)
	res := &Result{RequestID: logging.RequestIDFromContext(ctx)}

	all, err := u.catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if len(all) == 0 {
		return res.fail(domain.ErrEmptyCatalog), nil
	}

	browsed := u.resolveHistory(ctx, req.BrowsingHistory)

	max := req.MaxCandidates
	if max <= 0 {
		max = u.opts.MaxCandidates
	}
	sel, err := u.selector.SelectCandidates(ctx, req.Preferences, browsed, all, max)
	if err != nil {
		return res.fail(err), nil
	}
	res.Strategy = sel.Strategy
	res.Candidates = len(sel.Candidates)
	if len(sel.Candidates) == 0 {
		return res.fail(domain.ErrInsufficientCandidates), nil
	}

	recs, attempts, err := u.generate(ctx, sel.Prompt)
	res.Attempts = attempts
	if err != nil {
		log.Warn().Err(err).Int("attempts", attempts).Msg("generation failed")
		return res.fail(err), nil
	}

	res.Outcome = OutcomeParsed
	res.Recommendations = recs
	res.Count = len(recs)
	log.Info().Int("recommendations", res.Count).Int("attempts", attempts).Msg("recommendations ready")
	return res, nil
}

// resolveHistory maps browsed ids to catalog items, keeping order and
// dropping ids the catalog does not know.
func (u *RecommendUseCase) resolveHistory(ctx context.Context, ids []string) []domain.Item {
	out := make([]domain.Item, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		it, ok := u.catalog.Get(id)
		if !ok {
			logging.Ctx(ctx).Debug().Str("item_id", id).Msg("browsed item not in catalog")
			continue
		}
		out = append(out, it)
	}
	return out
}

// generate calls the model at most 1+MaxRetries times. Each retry uses a
// stricter prompt. It returns the parsed list, the number of calls made,
// and the last error when every attempt failed.
func (u *RecommendUseCase) generate(ctx context.Context, base Prompt) ([]domain.Recommendation, int, error) {
	log := logging.Ctx(ctx)
	var lastErr error

	attempts := 0
	for attempt := 0; attempt <= u.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = fmt.Errorf("%w: %v", domain.ErrGenerativeCallFailed, err)
			}
			break
		}

		prompt := StrictPrompt(base, attempt)
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, u.opts.Timeout)
		start := time.Now()
		raw, err := u.llm.GenerateWithSystem(callCtx, prompt.System, prompt.User)
		cancel()

		if err != nil {
			metrics.RecordGeneration("call_failed", time.Since(start))
			if !errors.Is(err, domain.ErrGenerativeCallFailed) {
				err = fmt.Errorf("%w: %v", domain.ErrGenerativeCallFailed, err)
			}
			lastErr = err
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("generative call failed")
			continue
		}

		parsed := parser.Parse(raw, u.catalog)
		if parsed.Failed() {
			metrics.RecordGeneration("parse_failed", time.Since(start))
			lastErr = parsed.Err
			log.Warn().Err(parsed.Err).Int("attempt", attempt+1).Msg("could not parse model response")
			continue
		}
		if len(parsed.Recommendations) == 0 {
			metrics.RecordGeneration("parse_failed", time.Since(start))
			lastErr = &parser.ParseError{Reason: "no recommended id matched the catalog"}
			log.Warn().Int("attempt", attempt+1).Msg("model response had no usable recommendations")
			continue
		}

		metrics.RecordGeneration(string(OutcomeParsed), time.Since(start))
		return parsed.Recommendations, attempts, nil
	}
	return nil, attempts, lastErr
}
