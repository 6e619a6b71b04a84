package zerrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"validation", Validation("op", "bad input"), IsValidation},
		{"engine", Engine("op", errors.New("engine said no"), "fallback"), IsEngine},
		{"compilation", Compilation("op", errors.New("line 1: nope")), IsCompilation},
		{"allocation", Allocation("op", nil, "context"), IsAllocation},
	}

	preds := []func(error) bool{IsValidation, IsEngine, IsCompilation, IsAllocation}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate for %s returned false", tt.name)
			}
			matches := 0
			for _, p := range preds {
				if p(tt.err) {
					matches++
				}
			}
			if matches != 1 {
				t.Errorf("%d predicates matched, want exactly 1", matches)
			}
		})
	}
}

func TestPredicatesOnForeignErrors(t *testing.T) {
	if IsValidation(nil) || IsEngine(errors.New("plain")) {
		t.Error("predicates matched non-layer errors")
	}
}

func TestEngineMessagePreference(t *testing.T) {
	withCtx := Engine("compress", errors.New("dictionary mismatch"), "compression failed")
	if !strings.Contains(withCtx.Error(), "dictionary mismatch") {
		t.Errorf("Error() = %q, want engine context", withCtx.Error())
	}
	withoutCtx := Engine("compress", nil, "compression failed")
	if !strings.Contains(withoutCtx.Error(), "compression failed") {
		t.Errorf("Error() = %q, want fallback message", withoutCtx.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Engine("op", cause, "fallback")
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the wrapped cause")
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsEngine(wrapped) {
		t.Error("IsEngine did not see through an outer wrap")
	}
}

func TestErrorFormat(t *testing.T) {
	err := Validation("compress_column", "element width must be 1, 2, 4, or 8, got %d", 3)
	got := err.Error()
	for _, want := range []string{"validation", "compress_column", "got 3"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}
