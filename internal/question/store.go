// Package question holds generated assessment questions between the
// generate and submit halves of an assessment round.
package question

import (
	"fmt"
	"sync"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// Store is an in-memory registry of outstanding questions keyed by id.
// Questions live until process exit; an answer can arrive long after the
// batch that produced it.
type Store struct {
	mu        sync.RWMutex
	questions map[string]*domain.Question
}

func NewStore() *Store {
	return &Store{questions: make(map[string]*domain.Question)}
}

// Put registers a question under its id.
func (s *Store) Put(q *domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

// Get returns the question with the given id.
func (s *Store) Get(id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, id)
	}
	return q, nil
}

// GetTyped returns the question with the given id, failing when its type
// does not match. A QA answer graded against an MCQ's answer key would
// be nonsense, so the mismatch is surfaced instead.
func (s *Store) GetTyped(id string, typ domain.QuestionType) (*domain.Question, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if q.Type != typ {
		return nil, fmt.Errorf("%w: %s is %s, not %s", domain.ErrQuestionTypeMismatch, id, q.Type, typ)
	}
	return q, nil
}

// Len reports how many questions are registered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}
