// Package history archives completed conversation turns per user.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
)

const (
	collectionHistory = "history"
	subdirSessions    = "sessions"
)

// Store persists session transcripts as one JSON document per session
// under the user's history directory.
type Store struct {
	store *local.Store
}

func NewStore(store *local.Store) *Store {
	return &Store{store: store}
}

// Save writes a session snapshot, replacing any previous snapshot for the
// same session id.
func (s *Store) Save(h *domain.SessionHistory) error {
	if h.SessionID == "" || h.UserID == "" {
		return fmt.Errorf("%w: session and user ids required", domain.ErrInvalidInput)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	if err := s.store.SaveDir(collectionHistory, h.UserID, subdirSessions, h.SessionID, h); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads one session snapshot.
func (s *Store) Get(userID, sessionID string) (*domain.SessionHistory, error) {
	var h domain.SessionHistory
	if err := s.store.LoadDir(collectionHistory, userID, subdirSessions, sessionID, &h); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &h, nil
}

// Append merges new messages into a session snapshot, creating it on first
// use. The snapshot's profile-derived fields are refreshed from the given
// profile so each archive reflects the state at its last turn. The saved
// snapshot is returned for mirroring to secondary stores.
func (s *Store) Append(p *domain.UserProfile, sessionID string, msgs ...domain.ChatMessage) (*domain.SessionHistory, error) {
	h, err := s.Get(p.UserID, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		h = &domain.SessionHistory{
			SessionID: sessionID,
			UserID:    p.UserID,
			CreatedAt: time.Now(),
		}
	}

	h.Messages = append(h.Messages, msgs...)
	h.MasteredConcepts = p.KnownConcepts
	h.WeakAreas = p.WeakAreas
	h.TopicMastery = p.TopicMastery()

	if err := s.Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// List returns all of a user's sessions, newest first. A user with no
// history gets an empty slice, not an error.
func (s *Store) List(userID string) ([]*domain.SessionHistory, error) {
	ids, err := s.store.ListDir(collectionHistory, userID, subdirSessions)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*domain.SessionHistory, 0, len(ids))
	for _, id := range ids {
		h, err := s.Get(userID, id)
		if err != nil {
			continue
		}
		sessions = append(sessions, h)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

// Clear removes all stored sessions for a user. Clearing a user with no
// history is a no-op.
func (s *Store) Clear(userID string) error {
	if err := s.store.DeleteTree(collectionHistory, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Transcript renders recent turns as "User: .../Assistant: ..." lines for
// prompt embedding.
func Transcript(msgs []domain.ChatMessage) string {
	var sb strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case "user":
			sb.WriteString("User: ")
		case "assistant":
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString(m.Role + ": ")
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
