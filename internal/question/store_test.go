package question

import (
	"errors"
	"testing"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

func TestPutAndGet(t *testing.T) {
	s := NewStore()
	q := &domain.Question{ID: "q1", Type: domain.TypeMCQ, Topic: "Slices", Question: "Which grows a slice?"}

	s.Put(q)

	got, err := s.Get("q1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Topic != "Slices" {
		t.Errorf("topic = %q", got.Topic)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestGetUnknown(t *testing.T) {
	s := NewStore()

	if _, err := s.Get("missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Errorf("Get() error = %v, want ErrQuestionNotFound", err)
	}
}

func TestGetTyped(t *testing.T) {
	s := NewStore()
	s.Put(&domain.Question{ID: "mcq1", Type: domain.TypeMCQ})
	s.Put(&domain.Question{ID: "qa1", Type: domain.TypeQA})

	if _, err := s.GetTyped("mcq1", domain.TypeMCQ); err != nil {
		t.Errorf("GetTyped(mcq as mcq) error = %v", err)
	}
	if _, err := s.GetTyped("qa1", domain.TypeMCQ); !errors.Is(err, domain.ErrQuestionTypeMismatch) {
		t.Errorf("GetTyped(qa as mcq) error = %v, want ErrQuestionTypeMismatch", err)
	}
}
