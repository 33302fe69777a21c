package domain

// QuestionType distinguishes the two assessment formats.
type QuestionType string

const (
	TypeMCQ QuestionType = "MCQ"
	TypeQA  QuestionType = "QA"
)

// Question is a generated assessment item. MCQ questions carry exactly four
// options plus the correct option index; QA questions carry the suggested
// answer key points used by the grading rubric. Questions live only in the
// in-memory question store for the lifetime of the process.
type Question struct {
	ID       string       `json:"id,omitempty"`
	Type     QuestionType `json:"type,omitempty"`
	Topic    string       `json:"topic,omitempty"`
	Question string       `json:"question"`

	// MCQ fields
	Options       []string `json:"options,omitempty"`
	CorrectAnswer int      `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`

	// QA fields
	KeyPoints string `json:"suggested_answer_key_points,omitempty"`
}

// MCQGrade is the result of grading a single multiple-choice submission.
type MCQGrade struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectOption int    `json:"correct_option"`
	Explanation   string `json:"explanation"`
}

// PassingScore is the rubric total at or above which a free-text answer
// earns full credit.
const PassingScore = 4.0

// GradingResult is the rubric outcome for a free-text answer. It is consumed
// once to compute a mastery delta and is not persisted.
type GradingResult struct {
	CorrectnessScore  float64 `json:"correctness_score"` // 0–5
	CompletenessScore float64 `json:"completeness_score"` // 0–3
	ClarityScore      float64 `json:"clarity_score"`      // 0–2
	TotalScore        float64 `json:"total_score"`        // 0–10
	Feedback          string  `json:"feedback"`
}

// Passed reports whether the total score earns assessment credit.
func (g *GradingResult) Passed() bool {
	return g.TotalScore >= PassingScore
}
