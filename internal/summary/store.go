// Package summary keeps the rolling learning summary shown to the model
// at the start of every tutoring turn.
package summary

import (
	"errors"
	"fmt"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
)

const collectionSummaries = "summaries"

// DefaultSummary is returned for users with no stored summary, so prompts
// always carry a well-formed summary line.
const DefaultSummary = "No previous learning summary available."

type record struct {
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists one summary per user.
type Store struct {
	store *local.Store
}

func NewStore(store *local.Store) *Store {
	return &Store{store: store}
}

// Get returns the user's summary, or DefaultSummary when none is stored.
func (s *Store) Get(userID string) (string, error) {
	var r record
	if err := s.store.Load(collectionSummaries, userID, &r); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return DefaultSummary, nil
		}
		return "", fmt.Errorf("load summary: %w", err)
	}
	if r.Summary == "" {
		return DefaultSummary, nil
	}
	return r.Summary, nil
}

// Set stores the user's summary, replacing any previous one.
func (s *Store) Set(userID, text string) error {
	r := record{UserID: userID, Summary: text, UpdatedAt: time.Now()}
	if err := s.store.Save(collectionSummaries, userID, r); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Clear removes the user's summary. Clearing an absent summary is a no-op.
func (s *Store) Clear(userID string) error {
	err := s.store.Delete(collectionSummaries, userID)
	if err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("clear summary: %w", err)
	}
	return nil
}
