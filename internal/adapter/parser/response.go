// Package parser validates and repairs the generative model's ranked
// recommendation output against the catalog.
package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/kaptinlin/jsonrepair"

	"ragrec/internal/domain"
	"ragrec/internal/logging"
	"ragrec/internal/metrics"
)

// DefaultScore is assigned when an entry has no usable relevance score.
const DefaultScore = 0.5

var (
	arrayPattern = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
	fencePattern = regexp.MustCompile("```[a-zA-Z]*")
)

// Lookup resolves product ids against the catalog.
type Lookup interface {
	Get(id string) (domain.Item, bool)
}

// ParseError describes why no recommendation list could be extracted.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse recommendations: %s: %v", e.Reason, e.Err)
	}
	return "parse recommendations: " + e.Reason
}

// Unwrap lets errors.Is match domain.ErrResponseParseFailed.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{domain.ErrResponseParseFailed, e.Err}
	}
	return []error{domain.ErrResponseParseFailed}
}

// ParseResult is the outcome of Parse. Err is nil when a list was decoded,
// even if every entry was dropped.
type ParseResult struct {
	Recommendations []domain.Recommendation
	Err             error
}

// Failed reports whether the response could not be decoded at all.
func (r ParseResult) Failed() bool {
	return r.Err != nil
}

// Error returns the failure message, or "" on success.
func (r ParseResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Parse extracts recommendations from raw model output. It never panics and
// never returns a Go error; failures are reported through ParseResult.Err.
func Parse(raw string, catalog Lookup) (res ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ParseResult{Err: &ParseError{Reason: fmt.Sprintf("panic: %v", r)}}
		}
	}()

	payload, ok := extractArray(raw)
	if !ok {
		return ParseResult{Err: &ParseError{Reason: "no JSON array in response"}}
	}

	entries, err := decode(payload)
	if err != nil {
		return ParseResult{Err: &ParseError{Reason: "invalid JSON", Err: err}}
	}

	seen := make(map[string]struct{}, len(entries))
	recs := make([]domain.Recommendation, 0, len(entries))
	for _, e := range entries {
		obj, ok := e.(map[string]any)
		if !ok {
			metrics.ParseDropped.WithLabelValues("malformed").Inc()
			continue
		}
		id := idString(obj["product_id"])
		item, found := catalog.Get(id)
		if id == "" || !found {
			metrics.ParseDropped.WithLabelValues("unknown_id").Inc()
			logging.Debug().Str("product_id", id).Msg("dropping unknown product id")
			continue
		}
		if _, dup := seen[id]; dup {
			metrics.ParseDropped.WithLabelValues("duplicate").Inc()
			continue
		}
		seen[id] = struct{}{}

		explanation, _ := obj["explanation"].(string)
		recs = append(recs, domain.Recommendation{
			Item:           item,
			RelevanceScore: NormalizeScore(obj["relevance_score"]),
			Explanation:    strings.TrimSpace(explanation),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].RelevanceScore > recs[j].RelevanceScore
	})
	return ParseResult{Recommendations: recs}
}

func extractArray(raw string) (string, bool) {
	text := fencePattern.ReplaceAllString(raw, "")
	if m := arrayPattern.FindString(text); m != "" {
		return m, true
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// decode unmarshals the array, repairing common model mistakes (trailing
// commas, single quotes, unquoted keys) on a first failure.
func decode(payload string) ([]any, error) {
	var entries []any
	err := json.Unmarshal([]byte(payload), &entries)
	if err == nil {
		return entries, nil
	}
	fixed, rerr := jsonrepair.JSONRepair(payload)
	if rerr != nil {
		return nil, err
	}
	entries = nil
	if err := json.Unmarshal([]byte(fixed), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func idString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}

// NormalizeScore maps a raw relevance score into [0,1]. Numbers and numeric
// strings are accepted, a trailing "%" is stripped, and values above 1 are
// read as percentages. Anything else yields DefaultScore.
func NormalizeScore(v any) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(val), "%")
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return DefaultScore
		}
		f = parsed
	default:
		return DefaultScore
	}
	if f != f { // NaN
		return DefaultScore
	}
	if f > 1 {
		f /= 100
	}
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
