package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ragrec/internal/adapter/llm"
	"ragrec/internal/domain"
	"ragrec/internal/logging"
)

func recommendFixture(replies ...llm.Reply) (*RecommendUseCase, *llm.MockLLM) {
	all := append(series("e", "Electronics", 12, 100), series("k", "Books", 4, 10)...)
	model := llm.NewMockLLM(replies...)
	uc := NewRecommendUseCase(newCatalog(all...), overlapSelector(), model, RecommendOptions{
		MaxRetries: 2,
		Timeout:    time.Second,
	})
	return uc, model
}

func TestRecommend_EndToEnd(t *testing.T) {
	uc, model := recommendFixture()
	req := domain.Request{
		Preferences:     domain.Preferences{domain.PrefCategory: "Electronics"},
		BrowsingHistory: []string{"e2", "unknown", "e2"},
	}

	res, err := uc.Recommend(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeParsed || res.Error != "" {
		t.Fatalf("expected parsed outcome, got %+v", res)
	}
	if res.Attempts != 1 || model.Calls() != 1 {
		t.Errorf("expected one attempt, got %d", res.Attempts)
	}
	if res.Count != 5 || len(res.Recommendations) != 5 {
		t.Fatalf("expected 5 recommendations, got %d", res.Count)
	}
	if res.RequestID == "" {
		t.Error("expected a request id")
	}
	for i, r := range res.Recommendations {
		if r.Item.ID == "e2" {
			t.Error("browsed item recommended")
		}
		if r.Item.Category != "Electronics" {
			t.Errorf("unexpected category %q", r.Item.Category)
		}
		if i > 0 && r.RelevanceScore > res.Recommendations[i-1].RelevanceScore {
			t.Error("recommendations not sorted by score")
		}
	}
}

func TestRecommend_RetriesWithStricterPrompt(t *testing.T) {
	uc, model := recommendFixture(
		llm.Reply{Err: errors.New("timeout")},
		llm.Reply{Text: "I think you will love the e5!"},
		llm.Reply{Text: `[{"product_id": "e5", "relevance_score": "90%", "explanation": "fits"}]`},
	)
	res, err := uc.Recommend(context.Background(), domain.Request{BrowsingHistory: []string{"e1"}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeParsed {
		t.Fatalf("expected parsed outcome, got %+v", res)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0].RelevanceScore != 0.9 {
		t.Errorf("unexpected recommendations: %+v", res.Recommendations)
	}

	prompts := model.Prompts()
	if strings.Contains(prompts[0], "FORMAT CORRECTION") {
		t.Error("first attempt should use the base prompt")
	}
	if !strings.Contains(prompts[1], "attempt 1") || !strings.Contains(prompts[2], "attempt 2") {
		t.Error("retries should use stricter prompts")
	}
}

func TestRecommend_ExhaustsRetries(t *testing.T) {
	uc, model := recommendFixture(
		llm.Reply{Err: errors.New("500")},
		llm.Reply{Err: errors.New("500")},
		llm.Reply{Err: errors.New("500")},
		llm.Reply{Text: "[]"},
	)
	res, err := uc.Recommend(context.Background(), domain.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", res.Outcome)
	}
	if model.Calls() != 3 {
		t.Errorf("expected 1+2 calls, got %d", model.Calls())
	}
	if !errors.Is(res.Err, domain.ErrGenerativeCallFailed) {
		t.Errorf("expected ErrGenerativeCallFailed, got %v", res.Err)
	}
	if res.Recommendations == nil || len(res.Recommendations) != 0 {
		t.Errorf("expected an empty list, got %v", res.Recommendations)
	}
}

func TestRecommend_ParseFailureSurfaced(t *testing.T) {
	uc, _ := recommendFixture(
		llm.Reply{Text: "no"},
		llm.Reply{Text: `[{"product_id": "ghost"}]`},
		llm.Reply{Text: "still no"},
	)
	res, err := uc.Recommend(context.Background(), domain.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.Err, domain.ErrResponseParseFailed) {
		t.Errorf("expected ErrResponseParseFailed, got %v", res.Err)
	}
	if res.Error == "" {
		t.Error("expected error message in result")
	}
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	model := llm.NewMockLLM()
	uc := NewRecommendUseCase(newCatalog(), overlapSelector(), model, RecommendOptions{})

	res, err := uc.Recommend(context.Background(), domain.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.Err, domain.ErrEmptyCatalog) || res.Outcome != OutcomeFailed {
		t.Errorf("expected empty catalog failure, got %+v", res)
	}
	if model.Calls() != 0 {
		t.Error("model should not be called for an empty catalog")
	}
}

func TestRecommend_InvalidRequest(t *testing.T) {
	uc, _ := recommendFixture()
	_, err := uc.Recommend(context.Background(), domain.Request{MaxCandidates: 1000})
	if err == nil {
		t.Error("expected validation error")
	}
}

func TestRecommend_KeepsRequestID(t *testing.T) {
	uc, _ := recommendFixture()
	ctx := logging.ContextWithRequestID(context.Background(), "req-42")
	res, err := uc.Recommend(ctx, domain.Request{})
	if err != nil {
		t.Fatal(err)
	}
	if res.RequestID != "req-42" {
		t.Errorf("expected caller's request id, got %q", res.RequestID)
	}
}
