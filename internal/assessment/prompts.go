package assessment

import (
	"strconv"
	"strings"
)

// mcqGenerationTemplate produces a JSON list of four-option questions
// grounded in the supplied context.
const mcqGenerationTemplate = `Generate {count} multiple-choice questions based EXCLUSIVELY on the following topic/query: {topics}.

CRITICAL REQUIREMENTS:
1. TOPIC ADHERENCE: All questions must be strictly relevant to the specified topic/query. Do not drift into related but separate fields.
2. COHESION: The questions must be interrelated, forming a cohesive assessment that explores different facets of the same topic.
3. CONTEXTUAL GROUNDING: Use the provided context as the primary source of truth: {context}.
4. CONNECTIVITY: Where possible, design questions that build upon each other or compare different aspects within the topic.
5. NO OUT-OF-SCOPE CONTENT: If the context or topic doesn't provide enough information for {count} unique questions, generate fewer but higher-quality on-topic questions instead of introducing irrelevant ones.
6. FORMAT: DO NOT include any preamble, postamble, or explanations outside the JSON. Return ONLY the JSON list.

FORMAT:
- 4 options per question.
- 1 correct answer.
- Return EXACTLY {count} questions.
- Return a JSON list of objects.
JSON structure:
[
  {
    "question": "...",
    "options": ["...", "...", "...", "..."],
    "correct_answer": 0,
    "explanation": "..."
  }
]
`

// qaGenerationTemplate produces a JSON list of free-text questions with
// grading key points.
const qaGenerationTemplate = `Generate {count} {size} questions based EXCLUSIVELY on the following topic/query: {topics}.

CRITICAL REQUIREMENTS:
1. TOPIC ADHERENCE: All questions must be strictly relevant to the specified topic/query. Do not drift into related but separate fields.
2. COHESION: The questions must be interrelated, forming a cohesive assessment that explores different facets of the same topic.
3. CONTEXTUAL GROUNDING: Use the provided context as the primary source of truth: {context}.
4. CONNECTIVITY: Where possible, design questions that build upon each other or compare different aspects within the topic.
5. NO OUT-OF-SCOPE CONTENT: If the context or topic doesn't provide enough information for {count} unique questions, generate fewer but higher-quality on-topic questions instead of introducing irrelevant ones.
6. FORMAT: DO NOT include any preamble, postamble, or explanations outside the JSON. Return ONLY the JSON list.

Return a JSON list containing EXACTLY {count} objects.
JSON structure:
[
  {
    "question": "...",
    "suggested_answer_key_points": "..."
  }
]
`

// gradingTemplate applies the 0-10 rubric to a free-text answer.
const gradingTemplate = `Grade the user's answer for the following question using the strict rubric below.

Question: {question}
Suggested Key Points: {key_points}
User Answer: {user_answer}

Rubric (0-10):
- Correctness (0-5): How factually accurate is the answer?
- Completeness (0-3): Does it cover all key points?
- Clarity (0-2): Is the explanation clear and well-structured?

Return a JSON object with:
- "correctness_score": float (0-5)
- "completeness_score": float (0-3)
- "clarity_score": float (0-2)
- "total_score": float (0-10)
- "feedback": Brief explanation of the grade.
`

const revisionTemplate = `Explain the following topics in detail to help a student revise. Focus on areas where they might be weak. Topics: {topics}. Context: {context}`

// Prompter renders the assessment prompts
type Prompter struct{}

// NewPrompter creates a new prompter
func NewPrompter() *Prompter {
	return &Prompter{}
}

// MCQPrompt renders the MCQ generation prompt.
func (p *Prompter) MCQPrompt(count int, topics, context string) string {
	return strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{topics}", topics,
		"{context}", context,
	).Replace(mcqGenerationTemplate)
}

// QAPrompt renders the free-text generation prompt. Size describes the
// expected answer length, e.g. "short" or "medium".
func (p *Prompter) QAPrompt(count int, size, topics, context string) string {
	return strings.NewReplacer(
		"{count}", strconv.Itoa(count),
		"{size}", size,
		"{topics}", topics,
		"{context}", context,
	).Replace(qaGenerationTemplate)
}

// GradingPrompt renders the rubric prompt for a submitted answer.
func (p *Prompter) GradingPrompt(question, keyPoints, userAnswer string) string {
	return strings.NewReplacer(
		"{question}", question,
		"{key_points}", keyPoints,
		"{user_answer}", userAnswer,
	).Replace(gradingTemplate)
}

// RevisionPrompt renders the revision-material prompt.
func (p *Prompter) RevisionPrompt(topics []string, context string) string {
	return strings.NewReplacer(
		"{topics}", strings.Join(topics, ", "),
		"{context}", context,
	).Replace(revisionTemplate)
}

// TopicsLabel builds the topic/query label the generation prompts refer to.
// A free-form query narrows the listed topics when both are present.
func TopicsLabel(topics []string, query string) string {
	if query != "" {
		if len(topics) > 0 {
			return query + " (within topics: " + strings.Join(topics, ", ") + ")"
		}
		return query
	}
	return strings.Join(topics, ", ")
}

// SearchQuery builds the retrieval query from topics plus the optional
// free-form query.
func SearchQuery(topics []string, query string) string {
	joined := strings.Join(topics, " ")
	if query == "" {
		return joined
	}
	if joined == "" {
		return query
	}
	return joined + " " + query
}
