package domain

import "time"

// ChatMessage is a single turn in a session transcript.
type ChatMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionHistory is an immutable per-turn record: the exchanged messages
// plus a snapshot of the mastery state at the time of writing. Records are
// append-only and never edited after the initial write.
type SessionHistory struct {
	SessionID        string             `json:"session_id"`
	UserID           string             `json:"user_id"`
	Messages         []ChatMessage      `json:"messages"`
	MasteredConcepts []string           `json:"mastered_concepts"`
	WeakAreas        []string           `json:"weak_areas"`
	TopicMastery     map[string]float64 `json:"topic_mastery"`
	CreatedAt        time.Time          `json:"created_at"`
}
