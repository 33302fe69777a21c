package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// TopicStatus classifies a topic based on assessment outcomes.
// It is always derived from attempt count and mastery, never set directly.
type TopicStatus string

const (
	StatusUnassessed TopicStatus = "unassessed"
	StatusWeak       TopicStatus = "weak"
	StatusStrong     TopicStatus = "strong"
)

// WeakThreshold is the mastery boundary between weak and strong topics.
// Exactly 0.40 counts as strong.
const WeakThreshold = 0.40

// KnowledgeLevel is the learner's overall level. Promotions are one-way;
// a level is never downgraded automatically.
type KnowledgeLevel string

const (
	LevelBeginner     KnowledgeLevel = "Beginner"
	LevelIntermediate KnowledgeLevel = "Intermediate"
	LevelAdvanced     KnowledgeLevel = "Advanced"
)

// TopicState tracks assessment bookkeeping for a single topic.
// Mastery, status and the counters are mutated only through the mastery
// engine (internal/profile); everything else treats this as read-only.
type TopicState struct {
	TopicID      string      `json:"topic_id"`
	Name         string      `json:"name"`
	Mastery      float64     `json:"mastery"`
	Attempted    int         `json:"attempted"`
	Correct      float64     `json:"correct"` // fractional credit allowed
	Status       TopicStatus `json:"status"`
	LastAssessed *time.Time  `json:"last_assessed,omitempty"`
}

// NewTopicState creates an unassessed topic with a fresh id.
func NewTopicState(name string) *TopicState {
	return &TopicState{
		TopicID: uuid.New().String(),
		Name:    name,
		Status:  StatusUnassessed,
	}
}

// StatusFor derives the topic status from attempt count and mastery.
func StatusFor(attempted int, mastery float64) TopicStatus {
	switch {
	case attempted == 0:
		return StatusUnassessed
	case mastery < WeakThreshold:
		return StatusWeak
	default:
		return StatusStrong
	}
}

// UserProfile is the durable per-user learning record.
//
// KnownConcepts and WeakAreas are a derived projection of topic statuses:
// a topic name appears in KnownConcepts iff its status is strong, in
// WeakAreas iff weak, and in neither while unassessed. Every mutation path
// re-derives them via DeriveLists; they are never an independent source of
// truth.
type UserProfile struct {
	UserID                string                 `json:"user_id"`
	KnowledgeLevel        KnowledgeLevel         `json:"knowledge_level"`
	KnownConcepts         []string               `json:"known_concepts"`
	WeakAreas             []string               `json:"weak_areas"`
	ExplanationPreference string                 `json:"explanation_preference"`
	ConfidenceScore       float64                `json:"confidence_score"`
	Topics                map[string]*TopicState `json:"topics"`
	CurrentSessionID      string                 `json:"current_session_id"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// NewUserProfile creates an empty profile with a fresh session id.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:                userID,
		KnowledgeLevel:        LevelBeginner,
		KnownConcepts:         []string{},
		WeakAreas:             []string{},
		ExplanationPreference: "Analogy-based",
		ConfidenceScore:       0.5,
		Topics:                map[string]*TopicState{},
		CurrentSessionID:      uuid.New().String(),
		UpdatedAt:             time.Now(),
	}
}

// Topic returns the state for a topic name, creating an unassessed entry
// if the topic is not yet tracked.
func (p *UserProfile) Topic(name string) *TopicState {
	if p.Topics == nil {
		p.Topics = map[string]*TopicState{}
	}
	t, ok := p.Topics[name]
	if !ok {
		t = NewTopicState(name)
		p.Topics[name] = t
	}
	return t
}

// DeriveLists recomputes KnownConcepts and WeakAreas from topic statuses.
// The lists come back sorted so persisted profiles are stable.
func (p *UserProfile) DeriveLists() {
	known := []string{}
	weak := []string{}
	for name, t := range p.Topics {
		switch t.Status {
		case StatusStrong:
			known = append(known, name)
		case StatusWeak:
			weak = append(weak, name)
		}
	}
	sort.Strings(known)
	sort.Strings(weak)
	p.KnownConcepts = known
	p.WeakAreas = weak
}

// TopicMastery returns the name → mastery projection used by prompts and
// session history snapshots.
func (p *UserProfile) TopicMastery() map[string]float64 {
	out := make(map[string]float64, len(p.Topics))
	for name, t := range p.Topics {
		out[name] = t.Mastery
	}
	return out
}
