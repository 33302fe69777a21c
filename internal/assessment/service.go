// Package assessment generates question batches, grades submissions, and
// feeds the outcomes into the mastery engine.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/extract"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/question"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// Defaults applied when a request leaves the knobs unset.
const (
	DefaultMCQCount = 5
	DefaultQACount  = 3
	DefaultQASize   = "medium"
)

// fallbackTopic stamps questions generated without an explicit topic list.
const fallbackTopic = "General"

// Retriever supplies study-material context for a query.
type Retriever interface {
	RetrieveContext(ctx context.Context, query string) string
}

// Service handles assessment operations
type Service struct {
	registry  *llm.Registry
	profiles  *profile.Store
	questions *question.Store
	retriever Retriever
	uploads   *upload.Cache
	parser    *extract.Parser
	prompter  *Prompter
	logger    *slog.Logger
}

// NewService creates a new assessment service
func NewService(
	registry *llm.Registry,
	profiles *profile.Store,
	questions *question.Store,
	retriever Retriever,
	uploads *upload.Cache,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:  registry,
		profiles:  profiles,
		questions: questions,
		retriever: retriever,
		uploads:   uploads,
		parser:    extract.NewParser(),
		prompter:  NewPrompter(),
		logger:    logger,
	}
}

// GenerateMCQs produces a batch of multiple-choice questions for the given
// topics. Uploaded content, when present, replaces retrieval as the
// grounding context. Generated questions are registered in the question
// store so submissions can be graded later.
func (s *Service) GenerateMCQs(ctx context.Context, userID string, topics []string, count int, query string) ([]*domain.Question, error) {
	if count <= 0 {
		count = DefaultMCQCount
	}

	contextText := s.resolveContext(ctx, userID, SearchQuery(topics, query))
	prompt := s.prompter.MCQPrompt(count, TopicsLabel(topics, query), contextText)

	s.logger.Info("generating MCQs", "user_id", userID, "count", count, "topics", topics)
	items, err := s.generateItems(ctx, prompt, 0.7)
	if err != nil {
		return nil, err
	}
	return s.registerQuestions(items, topics, domain.TypeMCQ), nil
}

// GenerateQA produces a batch of free-text questions with grading key
// points. Size describes the expected answer length.
func (s *Service) GenerateQA(ctx context.Context, userID string, topics []string, size string, count int, query string) ([]*domain.Question, error) {
	if count <= 0 {
		count = DefaultQACount
	}
	if size == "" {
		size = DefaultQASize
	}

	contextText := s.resolveContext(ctx, userID, SearchQuery(topics, query))
	prompt := s.prompter.QAPrompt(count, size, TopicsLabel(topics, query), contextText)

	s.logger.Info("generating QA questions", "user_id", userID, "count", count, "size", size, "topics", topics)
	items, err := s.generateItems(ctx, prompt, 0.7)
	if err != nil {
		return nil, err
	}
	return s.registerQuestions(items, topics, domain.TypeQA), nil
}

// GradeMCQ grades a single multiple-choice submission against the stored
// question and records the outcome on the question's topic.
func (s *Service) GradeMCQ(ctx context.Context, userID, questionID string, selected int) (*domain.MCQGrade, error) {
	q, err := s.questions.GetTyped(questionID, domain.TypeMCQ)
	if err != nil {
		return nil, err
	}

	isCorrect := selected == q.CorrectAnswer
	points := 0.0
	if isCorrect {
		points = 1.0
	}

	if _, err := s.recordOutcome(userID, q.Topic, points); err != nil {
		return nil, err
	}

	return &domain.MCQGrade{
		IsCorrect:     isCorrect,
		CorrectOption: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}

// GradeAnswerRequest is a free-text grading submission. Either QuestionID
// references a stored question, or Question and KeyPoints supply an ad-hoc
// one directly.
type GradeAnswerRequest struct {
	UserID     string
	QuestionID string
	Topic      string
	Question   string
	KeyPoints  string
	UserAnswer string
}

// GradeAnswer grades a free-text answer with the rubric. A stored question
// id hydrates the question text, key points, and topic; full credit is one
// point when the rubric total reaches the passing score. Outcomes are
// recorded only when a topic is known.
func (s *Service) GradeAnswer(ctx context.Context, req GradeAnswerRequest) (*domain.GradingResult, error) {
	if req.QuestionID != "" {
		q, err := s.questions.GetTyped(req.QuestionID, domain.TypeQA)
		if err != nil {
			return nil, err
		}
		req.Question = q.Question
		req.KeyPoints = q.KeyPoints
		req.Topic = q.Topic
	}
	if req.Question == "" || req.KeyPoints == "" {
		return nil, fmt.Errorf("%w: question and key points are required", domain.ErrInvalidInput)
	}

	provider, err := s.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("get LLM provider: %w", err)
	}
	resp, err := provider.Generate(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: s.prompter.GradingPrompt(req.Question, req.KeyPoints, req.UserAnswer)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("grade answer: %w", err)
	}

	raw, err := s.parser.Object(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse grading result: %w", err)
	}
	var result domain.GradingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode grading result: %w", err)
	}

	if req.Topic != "" {
		points := 0.0
		if result.Passed() {
			points = 1.0
		}
		if _, err := s.recordOutcome(req.UserID, req.Topic, points); err != nil {
			return nil, err
		}
	}
	return &result, nil
}

// BatchSubmitMCQ grades a whole MCQ batch. Submissions that fail to grade
// are omitted from the result rather than failing the batch.
func (s *Service) BatchSubmitMCQ(ctx context.Context, userID string, answers map[string]int) map[string]*domain.MCQGrade {
	results := make(map[string]*domain.MCQGrade, len(answers))
	for id, selected := range answers {
		grade, err := s.GradeMCQ(ctx, userID, id, selected)
		if err != nil {
			s.logger.Warn("MCQ grading skipped", "question_id", id, "error", err)
			continue
		}
		results[id] = grade
	}
	return results
}

// BatchSubmitQA grades a whole free-text batch. Submissions that fail to
// grade are omitted from the result.
func (s *Service) BatchSubmitQA(ctx context.Context, userID string, answers map[string]string) map[string]*domain.GradingResult {
	results := make(map[string]*domain.GradingResult, len(answers))
	for id, answer := range answers {
		result, err := s.GradeAnswer(ctx, GradeAnswerRequest{
			UserID:     userID,
			QuestionID: id,
			UserAnswer: answer,
		})
		if err != nil {
			s.logger.Warn("answer grading skipped", "question_id", id, "error", err)
			continue
		}
		results[id] = result
	}
	return results
}

// Revision generates explanatory revision material for the given topics,
// grounded in retrieved study material.
func (s *Service) Revision(ctx context.Context, topics []string) (string, error) {
	contextText := s.retriever.RetrieveContext(ctx, SearchQuery(topics, ""))

	provider, err := s.registry.Default()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}
	resp, err := provider.Generate(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: s.prompter.RevisionPrompt(topics, contextText)},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("generate revision material: %w", err)
	}
	return resp.Content, nil
}

// resolveContext prefers uploaded content over retrieval.
func (s *Service) resolveContext(ctx context.Context, userID, searchQuery string) string {
	if uploaded := s.uploads.Content(userID); uploaded != "" {
		s.logger.Debug("using uploaded content as context", "user_id", userID)
		return uploaded
	}
	contextText := s.retriever.RetrieveContext(ctx, searchQuery)
	if contextText == "" {
		s.logger.Warn("no context found for generation", "user_id", userID, "query", searchQuery)
	}
	return contextText
}

// generateItems runs a generation prompt and parses the response into raw
// JSON items.
func (s *Service) generateItems(ctx context.Context, prompt string, temperature float64) ([]json.RawMessage, error) {
	provider, err := s.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("get LLM provider: %w", err)
	}
	resp, err := provider.Generate(ctx, &llm.Request{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	return s.parser.Items(resp.Content)
}

// registerQuestions decodes, stamps, and stores generated questions.
// Items that fail to decode are dropped; the rest of the batch survives.
func (s *Service) registerQuestions(items []json.RawMessage, topics []string, typ domain.QuestionType) []*domain.Question {
	topic := fallbackTopic
	if len(topics) > 0 {
		topic = topics[0]
	}

	out := make([]*domain.Question, 0, len(items))
	for _, item := range items {
		var q domain.Question
		if err := json.Unmarshal(item, &q); err != nil {
			s.logger.Warn("dropping malformed question", "error", err)
			continue
		}
		q.ID = uuid.New().String()
		q.Type = typ
		q.Topic = topic
		s.questions.Put(&q)
		out = append(out, &q)
	}
	return out
}

func (s *Service) recordOutcome(userID, topic string, points float64) (*domain.UserProfile, error) {
	return s.profiles.Update(userID, func(p *domain.UserProfile) error {
		profile.RecordOutcome(p, topic, points, time.Now())
		return nil
	})
}
