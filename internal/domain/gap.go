package domain

// GapAnalysis is the classification output of the gap-detection call after a
// chat turn: topics the learner appears to understand, topics showing
// confusion, an overall confidence adjustment, and bounded per-topic mastery
// nudges. All deltas are heuristic and flow through the mastery engine's
// soft-update path, never the assessment counters.
type GapAnalysis struct {
	NewConcepts         []string           `json:"new_concepts"`
	WeakAreas           []string           `json:"weak_areas"`
	ConfidenceDelta     float64            `json:"confidence_delta"`
	TopicMasteryUpdates map[string]float64 `json:"topic_mastery_updates"`
}
