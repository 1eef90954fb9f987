package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("confirm booking: %w", Conflict("Only pending bookings can be confirmed"))
	if got := KindOf(err); got != KindConflict {
		t.Fatalf("expected conflict, got %s", got)
	}
	if !errors.Is(err, Conflict("")) {
		t.Fatal("expected errors.Is to match by kind")
	}
	if errors.Is(err, NotFound("")) {
		t.Fatal("expected errors.Is not to match a different kind")
	}
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("expected internal, got %s", got)
	}
}

func TestMessageOf_HidesUnknownErrors(t *testing.T) {
	if got := MessageOf(errors.New("pq: relation does not exist")); got != "Internal server error" {
		t.Fatalf("unexpected message: %q", got)
	}
	cause := errors.New("dial tcp: timeout")
	err := External("Chat provider unavailable", cause)
	if got := MessageOf(err); got != "Chat provider unavailable" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to be reachable through Unwrap")
	}
}
