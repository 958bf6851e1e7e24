package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragrec/internal/adapter/resilience"
	"ragrec/internal/domain"
)

func TestMockLLM_ScriptThenEcho(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockLLM(Reply{Err: boom}, Reply{Text: "not json"})
	ctx := context.Background()

	if _, err := m.GenerateWithSystem(ctx, "", "p"); !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if out, _ := m.GenerateWithSystem(ctx, "", "p"); out != "not json" {
		t.Fatalf("expected scripted text, got %q", out)
	}

	prompt := strings.Join([]string{
		"# USER BROWSING HISTORY",
		"- Trail Shoe (ID: b1)",
		"Product 1: Rain Jacket (ID: p2)",
		"Product 2: Wool (Merino) Socks (ID: p3)",
	}, "\n")
	out, err := m.GenerateWithSystem(ctx, "", prompt)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, `"b1"`) {
		t.Errorf("browsed item should not be echoed: %s", out)
	}
	if !strings.Contains(out, `"product_id":"p2"`) || !strings.Contains(out, `"product_id":"p3"`) {
		t.Errorf("expected both candidates echoed: %s", out)
	}
	if m.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", m.Calls())
	}
	if len(m.Prompts()) != 3 {
		t.Errorf("expected 3 recorded prompts, got %d", len(m.Prompts()))
	}
}

func TestMockLLM_EchoEmptyPrompt(t *testing.T) {
	out, err := NewMockLLM().GenerateWithSystem(context.Background(), "", "nothing here")
	if err != nil {
		t.Fatal(err)
	}
	if out != "[]" {
		t.Errorf("expected empty array, got %q", out)
	}
}

func TestGuardedLLM_OpensAfterFailures(t *testing.T) {
	replies := make([]Reply, 10)
	for i := range replies {
		replies[i] = Reply{Err: errors.New("upstream 500")}
	}
	inner := NewMockLLM(replies...)
	g := NewGuardedLLM(inner, resilience.BreakerConfig{MinRequests: 3, FailureRatio: 0.5})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := g.GenerateWithSystem(ctx, "", "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	_, err := g.GenerateWithSystem(ctx, "", "x")
	if !errors.Is(err, domain.ErrGenerativeCallFailed) {
		t.Fatalf("expected open breaker to report ErrGenerativeCallFailed, got %v", err)
	}
	if inner.Calls() != 3 {
		t.Errorf("open breaker should not call the model, got %d calls", inner.Calls())
	}
	if g.ModelName() != "mock" {
		t.Errorf("unexpected model name %q", g.ModelName())
	}
}
