package profile

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
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

func TestGetOrCreateFirstContact(t *testing.T) {
	s := newTestStore(t)

	p, err := s.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if p.KnowledgeLevel != domain.LevelBeginner {
		t.Errorf("level = %q, want Beginner", p.KnowledgeLevel)
	}
	if p.CurrentSessionID == "" {
		t.Error("expected a session id")
	}

	// Second call returns the persisted profile, not a new one.
	again, err := s.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("second GetOrCreate() error = %v", err)
	}
	if again.CurrentSessionID != p.CurrentSessionID {
		t.Error("GetOrCreate created a second profile for the same user")
	}
}

func TestGetUnknownUser(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("nobody"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("Get() error = %v, want ErrProfileNotFound", err)
	}
}

func TestUpdatePersists(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	_, err := s.Update("bob", func(p *domain.UserProfile) error {
		RecordOutcome(p, "Recursion", 1.0, now)
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	p, err := s.Get("bob")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Topics["Recursion"] == nil || p.Topics["Recursion"].Attempted != 1 {
		t.Errorf("update not persisted: %+v", p.Topics)
	}
}

func TestUpdateSerializedPerUser(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update("carol", func(p *domain.UserProfile) error {
				RecordOutcome(p, "Sorting", 1.0, now)
				return nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	p, err := s.Get("carol")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := p.Topics["Sorting"].Attempted; got != 20 {
		t.Errorf("attempted = %d, want 20 (lost updates)", got)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	before, err := s.Update("dave", func(p *domain.UserProfile) error {
		RecordOutcome(p, "Trees", 0.0, now)
		p.ConfidenceScore = 0.9
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	fresh, err := s.Reset("dave")
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(fresh.Topics) != 0 {
		t.Errorf("reset profile has %d topics, want 0", len(fresh.Topics))
	}
	if fresh.CurrentSessionID == before.CurrentSessionID {
		t.Error("reset did not rotate the session id")
	}
	if fresh.ConfidenceScore != 0.5 {
		t.Errorf("confidence = %v, want default 0.5", fresh.ConfidenceScore)
	}

	stored, err := s.Get("dave")
	if err != nil {
		t.Fatalf("Get() after reset error = %v", err)
	}
	if len(stored.Topics) != 0 {
		t.Error("reset not persisted")
	}
}
