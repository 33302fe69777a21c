package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// ArchiveStore mirrors profile snapshots and session records into Postgres.
// The local JSON store stays authoritative; the archive is written after the
// fact and read for reporting, so writes here are idempotent upserts.
type ArchiveStore struct {
	conn *Connection
}

// NewArchiveStore creates a new archive store
func NewArchiveStore(conn *Connection) *ArchiveStore {
	return &ArchiveStore{conn: conn}
}

// SaveProfile upserts the latest profile snapshot for a user.
func (s *ArchiveStore) SaveProfile(ctx context.Context, p *domain.UserProfile) error {
	topics, err := json.Marshal(p.Topics)
	if err != nil {
		return fmt.Errorf("marshal topics: %w", err)
	}
	known, err := json.Marshal(p.KnownConcepts)
	if err != nil {
		return fmt.Errorf("marshal known concepts: %w", err)
	}
	weak, err := json.Marshal(p.WeakAreas)
	if err != nil {
		return fmt.Errorf("marshal weak areas: %w", err)
	}

	_, err = s.conn.pool.Exec(ctx, `
		INSERT INTO profiles (
			user_id, knowledge_level, explanation_preference, confidence_score,
			current_session_id, topics, known_concepts, weak_areas, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			knowledge_level = EXCLUDED.knowledge_level,
			explanation_preference = EXCLUDED.explanation_preference,
			confidence_score = EXCLUDED.confidence_score,
			current_session_id = EXCLUDED.current_session_id,
			topics = EXCLUDED.topics,
			known_concepts = EXCLUDED.known_concepts,
			weak_areas = EXCLUDED.weak_areas,
			updated_at = EXCLUDED.updated_at
	`,
		p.UserID,
		string(p.KnowledgeLevel),
		p.ExplanationPreference,
		p.ConfidenceScore,
		p.CurrentSessionID,
		topics,
		known,
		weak,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile loads the archived profile snapshot for a user.
func (s *ArchiveStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		p          domain.UserProfile
		level      string
		topicsJSON []byte
		knownJSON  []byte
		weakJSON   []byte
	)

	err := s.conn.pool.QueryRow(ctx, `
		SELECT user_id, knowledge_level, explanation_preference, confidence_score,
		       current_session_id, topics, known_concepts, weak_areas, updated_at
		FROM profiles WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		&level,
		&p.ExplanationPreference,
		&p.ConfidenceScore,
		&p.CurrentSessionID,
		&topicsJSON,
		&knownJSON,
		&weakJSON,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.KnowledgeLevel = domain.KnowledgeLevel(level)
	if err := json.Unmarshal(topicsJSON, &p.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal(knownJSON, &p.KnownConcepts); err != nil {
		return nil, fmt.Errorf("decode known concepts: %w", err)
	}
	if err := json.Unmarshal(weakJSON, &p.WeakAreas); err != nil {
		return nil, fmt.Errorf("decode weak areas: %w", err)
	}
	return &p, nil
}

// SaveSession appends one session record.
func (s *ArchiveStore) SaveSession(ctx context.Context, h *domain.SessionHistory) error {
	messages, err := json.Marshal(h.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	mastered, err := json.Marshal(h.MasteredConcepts)
	if err != nil {
		return fmt.Errorf("marshal mastered concepts: %w", err)
	}
	weak, err := json.Marshal(h.WeakAreas)
	if err != nil {
		return fmt.Errorf("marshal weak areas: %w", err)
	}
	mastery, err := json.Marshal(h.TopicMastery)
	if err != nil {
		return fmt.Errorf("marshal topic mastery: %w", err)
	}

	_, err = s.conn.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, messages, mastered_concepts, weak_areas, topic_mastery, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.SessionID, h.UserID, messages, mastered, weak, mastery, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListSessions returns up to limit archived sessions for a user, newest
// first. A non-positive limit returns everything.
func (s *ArchiveStore) ListSessions(ctx context.Context, userID string, limit int) ([]*domain.SessionHistory, error) {
	query := `
		SELECT session_id, user_id, messages, mastered_concepts, weak_areas, topic_mastery, created_at
		FROM sessions WHERE user_id = $1 ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*domain.SessionHistory
	for rows.Next() {
		var (
			h            domain.SessionHistory
			messagesJSON []byte
			masteredJSON []byte
			weakJSON     []byte
			masteryJSON  []byte
		)
		if err := rows.Scan(&h.SessionID, &h.UserID, &messagesJSON, &masteredJSON, &weakJSON, &masteryJSON, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal(messagesJSON, &h.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
		if err := json.Unmarshal(masteredJSON, &h.MasteredConcepts); err != nil {
			return nil, fmt.Errorf("decode mastered concepts: %w", err)
		}
		if err := json.Unmarshal(weakJSON, &h.WeakAreas); err != nil {
			return nil, fmt.Errorf("decode weak areas: %w", err)
		}
		if err := json.Unmarshal(masteryJSON, &h.TopicMastery); err != nil {
			return nil, fmt.Errorf("decode topic mastery: %w", err)
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// DeleteUser removes all archived rows for a user. Used on reset so the
// archive mirrors the local wipe.
func (s *ArchiveStore) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.conn.pool.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if _, err := s.conn.pool.Exec(ctx, "DELETE FROM profiles WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
