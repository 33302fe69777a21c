package summary

import (
	"testing"

	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ls, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return NewStore(ls)
}

func TestGetDefaultWhenMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != DefaultSummary {
		t.Errorf("Get() = %q, want default", got)
	}
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("bob", "Covered slices and maps; weak on channels."); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := s.Get("bob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "Covered slices and maps; weak on channels." {
		t.Errorf("Get() = %q", got)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set("carol", "something"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Clear("carol"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	got, err := s.Get("carol")
	if err != nil {
		t.Fatalf("Get() after clear error = %v", err)
	}
	if got != DefaultSummary {
		t.Errorf("Get() = %q, want default after clear", got)
	}

	// Clearing twice is fine.
	if err := s.Clear("carol"); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
}
