package usecase

import (
	"strings"
	"testing"

	"ragrec/internal/domain"
)

func TestRenderPrompt(t *testing.T) {
	shoe := item("p1", "Footwear", "Running", "Stride", 89.5, "outdoor", "light")
	shoe.Features = []string{"mesh", "foam", "grip", "reflective"}

	p, err := RenderPrompt(PromptData{
		Browsed:     []domain.Item{item("b1", "Footwear", "Trail", "Stride", 120)},
		Preferences: domain.Preferences{"brand": []any{"Stride", "Peak"}}.Render(),
		Candidates:  []domain.Item{shoe},
		Count:       3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.System == "" {
		t.Error("expected a system prompt")
	}

	for _, want := range []string{
		"- Item b1 (ID: b1)",
		"- brand: Stride, Peak",
		"Product 1: Item p1 (ID: p1)",
		"Price: $89.50",
		"- Features: mesh, foam, grip\n",
		"- Tags: outdoor, light",
		"recommend 3 products",
		`"product_id"`,
	} {
		if !strings.Contains(p.User, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.User)
		}
	}
	if strings.Contains(p.User, "reflective") {
		t.Error("only the first three features should be listed")
	}
}

func TestRenderPrompt_Empty(t *testing.T) {
	p, err := RenderPrompt(PromptData{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.User, "No browsing history available.") {
		t.Error("expected empty-history notice")
	}
	if !strings.Contains(p.User, "No specific preferences provided.") {
		t.Error("expected empty-preferences notice")
	}
	if !strings.Contains(p.User, "recommend 5 products") {
		t.Error("expected default recommendation count")
	}
}

func TestStrictPrompt(t *testing.T) {
	base := Prompt{System: "sys", User: "base prompt\n"}

	if got := StrictPrompt(base, 0); got != base {
		t.Errorf("attempt 0 should return base unchanged, got %+v", got)
	}

	first := StrictPrompt(base, 1)
	second := StrictPrompt(base, 2)
	if first.System != "sys" || !strings.HasPrefix(first.User, base.User) {
		t.Errorf("strict prompt must extend the base: %+v", first)
	}
	if !strings.Contains(first.User, "attempt 1") || !strings.Contains(second.User, "attempt 2") {
		t.Error("expected the attempt number in the correction")
	}
	if len(second.User) <= len(first.User) {
		t.Error("later attempts should add stricter instructions")
	}
	if base.User != "base prompt\n" {
		t.Error("base prompt was modified")
	}
}
