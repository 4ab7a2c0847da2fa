package session

import (
	"errors"
	"testing"

	"github.com/Strob0t/AgentForge/internal/domain"
)

func TestRegistryReserveIsExclusive(t *testing.T) {
	r := NewRegistry()
	first := &session{}

	if err := r.reserve("bob", first); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := r.reserve("bob", &session{}); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("second reserve = %v, want ErrSessionExists", err)
	}

	got, ok := r.get("bob")
	if !ok || got != first {
		t.Fatal("failed reserve must leave the original session in place")
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegistryRemoveOnlyMatchingSession(t *testing.T) {
	r := NewRegistry()
	live := &session{}
	if err := r.reserve("bob", live); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// A stale exit from a replaced session must not evict the live one.
	r.remove("bob", &session{})
	if _, ok := r.get("bob"); !ok {
		t.Fatal("removing a different session must not evict the live one")
	}

	r.remove("bob", live)
	if _, ok := r.get("bob"); ok {
		t.Fatal("session should be gone after matching remove")
	}
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}
