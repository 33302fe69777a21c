package profile

import (
	"math"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

// Bounds for a single analysis-driven adjustment. One conversation turn
// must not swing mastery or confidence more than this in either direction.
const MaxDelta = 0.2

// Confidence thresholds for one-way knowledge level promotion.
const (
	intermediateThreshold = 0.8
	advancedThreshold     = 0.95
)

// RecordOutcome folds one graded answer into the topic's running state:
// the attempt counter advances, earned points accumulate, and mastery is
// recomputed as the lifetime correct/attempted ratio rounded to four
// decimal places. Status and the derived concept lists follow from the
// new numbers alone.
func RecordOutcome(p *domain.UserProfile, topic string, points float64, now time.Time) *domain.TopicState {
	t := p.Topic(topic)
	t.Attempted++
	t.Correct += points
	t.Mastery = round4(t.Correct / float64(t.Attempted))
	t.Status = domain.StatusFor(t.Attempted, t.Mastery)
	t.LastAssessed = &now

	p.DeriveLists()
	p.UpdatedAt = now
	return t
}

// Nudge shifts a topic's mastery by a bounded delta from conversation
// analysis. The delta is clamped to ±MaxDelta and the result to [0, 1].
// Attempt counters are untouched; a nudge is a hint, not an assessment.
func Nudge(p *domain.UserProfile, topic string, delta float64) {
	t := p.Topic(topic)
	t.Mastery = clamp01(t.Mastery + clampDelta(delta))
	t.Status = domain.StatusFor(t.Attempted, t.Mastery)
	p.DeriveLists()
}

// AdjustConfidence shifts the overall confidence score by a bounded delta
// and applies one-way knowledge level promotion. Levels never demote: a
// bad week does not un-learn a subject.
func AdjustConfidence(p *domain.UserProfile, delta float64) {
	p.ConfidenceScore = clamp01(p.ConfidenceScore + clampDelta(delta))

	switch p.KnowledgeLevel {
	case domain.LevelBeginner:
		if p.ConfidenceScore > intermediateThreshold {
			p.KnowledgeLevel = domain.LevelIntermediate
		}
	case domain.LevelIntermediate:
		if p.ConfidenceScore > advancedThreshold {
			p.KnowledgeLevel = domain.LevelAdvanced
		}
	}
}

// Seed mastery for topics first surfaced by conversation analysis rather
// than by a graded answer.
const (
	seedKnownMastery = 0.5
	seedWeakMastery  = 0.2
)

// ApplyAnalysis merges a conversation gap analysis into the profile:
// newly surfaced concepts and reported weak areas become tracked topics
// with seeded mastery, per-topic nudges and the confidence shift are
// applied with clamping. Status always follows from the attempted count
// and mastery value; analysis never sets it directly.
func ApplyAnalysis(p *domain.UserProfile, ga *domain.GapAnalysis, now time.Time) {
	for _, name := range ga.NewConcepts {
		t := p.Topic(name)
		if t.Mastery == 0 {
			t.Mastery = seedKnownMastery
		} else if t.Mastery < domain.WeakThreshold {
			t.Mastery = domain.WeakThreshold
		}
		t.Status = domain.StatusFor(t.Attempted, t.Mastery)
	}
	for _, name := range ga.WeakAreas {
		t := p.Topic(name)
		if t.Mastery == 0 {
			t.Mastery = seedWeakMastery
		} else if t.Mastery > 0.3 {
			t.Mastery = 0.3
		}
		t.Status = domain.StatusFor(t.Attempted, t.Mastery)
	}
	for topic, delta := range ga.TopicMasteryUpdates {
		t := p.Topic(topic)
		t.Mastery = clamp01(t.Mastery + clampDelta(delta))
		t.Status = domain.StatusFor(t.Attempted, t.Mastery)
	}

	AdjustConfidence(p, ga.ConfidenceDelta)

	p.DeriveLists()
	p.UpdatedAt = now
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func clampDelta(d float64) float64 {
	if d > MaxDelta {
		return MaxDelta
	}
	if d < -MaxDelta {
		return -MaxDelta
	}
	return d
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
