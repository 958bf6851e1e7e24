package retriever

import (
	"ragrec/internal/domain"
)

// MMRReranker diversifies similarity results with Maximal Marginal
// Relevance, using attribute overlap between items as the redundancy term.
type MMRReranker struct {
	lambda float64
}

func NewMMRReranker(lambda float64) *MMRReranker {
	return &MMRReranker{lambda: lambda}
}

// Rerank greedily picks k items maximizing
// λ·relevance(c) − (1−λ)·max similarity(c, selected).
func (r *MMRReranker) Rerank(candidates []domain.ScoredItem, k int) []domain.ScoredItem {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	k = min(k, len(candidates))

	maxScore := candidates[0].Score
	for _, c := range candidates {
		maxScore = max(maxScore, c.Score)
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	features := make([][]string, len(candidates))
	for i, c := range candidates {
		features[i] = itemFeatures(c.Item)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))
	for len(selected) < k {
		best, bestMMR := -1, -1e9
		for i, c := range candidates {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				maxSim = max(maxSim, JaccardSimilarity(features[i], features[s]))
			}
			mmr := r.lambda*(c.Score/maxScore) - (1-r.lambda)*maxSim
			if mmr > bestMMR {
				best, bestMMR = i, mmr
			}
		}
		used[best] = true
		selected = append(selected, best)
	}

	out := make([]domain.ScoredItem, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

// itemFeatures lists the attributes compared for redundancy.
func itemFeatures(it domain.Item) []string {
	f := make([]string, 0, len(it.Tags)+3)
	if it.Category != "" {
		f = append(f, "cat:"+it.Category)
	}
	if it.Subcategory != "" {
		f = append(f, "sub:"+it.Subcategory)
	}
	if it.Brand != "" {
		f = append(f, "brand:"+it.Brand)
	}
	for _, t := range it.Tags {
		f = append(f, "tag:"+t)
	}
	return f
}

// JaccardSimilarity computes |a∩b| / |a∪b| over the two sets.
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
