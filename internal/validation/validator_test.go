package validation

import (
	"errors"
	"testing"

	"ragrec/internal/domain"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		item    domain.Item
		wantErr bool
		field   string
	}{
		{"valid", domain.Item{ID: "p1", Price: 10, Rating: 4.5}, false, ""},
		{"missing id", domain.Item{Price: 10}, true, "id"},
		{"negative price", domain.Item{ID: "p1", Price: -1}, true, "price"},
		{"rating too high", domain.Item{ID: "p1", Rating: 6}, true, "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.item)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr {
				return
			}
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Fields[0].Field)
			}
		})
	}
}

func TestValidateRequest(t *testing.T) {
	ok := domain.Request{BrowsingHistory: []string{"p1", "p2"}, MaxCandidates: 10}
	if err := ValidateRequest(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := domain.Request{BrowsingHistory: []string{"p1", ""}, MaxCandidates: 10}
	if err := ValidateRequest(bad); err == nil {
		t.Error("expected error for empty history id")
	}

	tooMany := domain.Request{MaxCandidates: 500}
	if err := ValidateRequest(tooMany); err == nil {
		t.Error("expected error for max_candidates above limit")
	}
}

func TestGetIsSingleton(t *testing.T) {
	if Get() != Get() {
		t.Error("expected the same validator instance")
	}
}
