package extract

import (
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(NewHeuristic()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	t.Run("duplicate capability rejected", func(t *testing.T) {
		err := r.Register(NewHeuristic())
		if !errors.Is(err, ErrCapabilityRegistered) {
			t.Errorf("Register() error = %v, want ErrCapabilityRegistered", err)
		}
	})

	t.Run("lookup by name", func(t *testing.T) {
		e, err := r.Get(HeuristicName)
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if e.Name() != HeuristicName {
			t.Errorf("Name() = %q, want %q", e.Name(), HeuristicName)
		}
	})

	t.Run("unknown capability", func(t *testing.T) {
		_, err := r.Get("nope")
		if !errors.Is(err, ErrCapabilityNotFound) {
			t.Errorf("Get() error = %v, want ErrCapabilityNotFound", err)
		}
	})

	t.Run("names in registration order", func(t *testing.T) {
		names := r.Names()
		if len(names) != 1 || names[0] != HeuristicName {
			t.Errorf("Names() = %v", names)
		}
	})
}
