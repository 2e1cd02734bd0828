package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCooldownActiveDetail(t *testing.T) {
	err := CooldownActive(3)
	if err.RemainingDays != 3 {
		t.Errorf("RemainingDays = %d, want 3", err.RemainingDays)
	}
	want := "chore is in cooldown, available again in 3 days"
	if err.Detail != want {
		t.Errorf("Detail = %q, want %q", err.Detail, want)
	}
	if got := CooldownActive(1).Detail; got != "chore is in cooldown, available again in 1 day" {
		t.Errorf("singular detail = %q", got)
	}
}

func TestIsMatchesWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("approve: %w", ErrAlreadyApproved)
	if !errors.Is(wrapped, ErrAlreadyApproved) {
		t.Error("expected wrapped sentinel to match")
	}
	if errors.Is(wrapped, ErrNotCompleted) {
		t.Error("different detail should not match")
	}
	if !errors.Is(wrapped, &Error{Kind: KindInvalidState}) {
		t.Error("kind-only target should match")
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(fmt.Errorf("x: %w", NotFound("chore not found"))); k != KindNotFound {
		t.Errorf("KindOf = %q, want %q", k, KindNotFound)
	}
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("KindOf(plain) = %q, want empty", k)
	}
}
