package resilience

import (
	"errors"
	"testing"
)

func TestBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewBreaker[int]("test-open", BreakerConfig{MinRequests: 3, FailureRatio: 0.5})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !IsOpen(err) {
		t.Errorf("expected open breaker, got %v", err)
	}
}

func TestBreaker_PassesResults(t *testing.T) {
	cb := NewBreaker[string]("test-pass", BreakerConfig{})
	got, err := cb.Execute(func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("expected ok, got %q %v", got, err)
	}
	if IsOpen(errors.New("other")) {
		t.Error("plain error should not count as open")
	}
}
