// Package mcp exposes the tutoring engine as MCP tools so editor agents
// can chat, quiz, and inspect progress without going through the HTTP API.
package mcp

import (
	"context"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/tutor"
)

// Server wraps the MCP server with studybuddy functionality
type Server struct {
	mcpServer   *server.Server
	tutoring    *tutor.Service
	assessments *assessment.Service
	profiles    *profile.Store
}

// Config contains configuration for the MCP server
type Config struct {
	Tutoring    *tutor.Service
	Assessments *assessment.Service
	Profiles    *profile.Store
}

// NewServer creates a new MCP server for studybuddy
func NewServer(cfg Config) *Server {
	s := &Server{
		tutoring:    cfg.Tutoring,
		assessments: cfg.Assessments,
		profiles:    cfg.Profiles,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "studybuddy",
		Version: "0.1.0",
	}, server.WithInstructions(`
Studybuddy is a personalized AI tutor that tracks topic mastery across
sessions and adapts its explanations to the learner's profile.

Available tools:
- studybuddy_chat: Ask the tutor a question
- studybuddy_quiz: Generate a quiz batch (MCQ or free-text)
- studybuddy_submit: Submit an answer for grading
- studybuddy_revision: Get revision material for a set of topics
- studybuddy_profile: Inspect a learner's mastery profile
- studybuddy_reset: Start a fresh session, archiving previous progress

Mastery is tracked per topic. Topics at or above 0.40 mastery count as
known concepts; assessed topics below that are weak areas.
`))

	// Register tools
	s.registerTools()

	return s
}

// registerTools registers all studybuddy MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("studybuddy_chat").
		Description("Ask the tutor a question. Responses adapt to the learner's mastery profile.").
		Handler(s.handleChat)

	s.mcpServer.Tool("studybuddy_quiz").
		Description("Generate a quiz batch for the given topics. Format is mcq or qa.").
		Handler(s.handleQuiz)

	s.mcpServer.Tool("studybuddy_submit").
		Description("Submit an answer to a generated question for grading.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("studybuddy_revision").
		Description("Generate revision material covering the given topics.").
		Handler(s.handleRevision)

	s.mcpServer.Tool("studybuddy_profile").
		Description("Get a learner's profile: level, known concepts, weak areas, topic mastery.").
		Handler(s.handleProfile)

	s.mcpServer.Tool("studybuddy_reset").
		Description("Start a fresh session. Previous progress is archived, not deleted.").
		Handler(s.handleReset)
}

// Input/Output types for tools

type ChatInput struct {
	UserID  string `json:"user_id" jsonschema:"description=Learner identifier"`
	Message string `json:"message" jsonschema:"description=Question for the tutor"`
}

type ChatOutput struct {
	Response       string             `json:"response"`
	MasteryUpdates map[string]float64 `json:"mastery_updates,omitempty"`
}

type QuizInput struct {
	UserID string   `json:"user_id" jsonschema:"description=Learner identifier"`
	Topics []string `json:"topics,omitempty" jsonschema:"description=Topics to quiz on"`
	Format string   `json:"format,omitempty" jsonschema:"description=Question format,enum=mcq,enum=qa"`
	Count  int      `json:"count,omitempty" jsonschema:"description=Number of questions"`
	Query  string   `json:"query,omitempty" jsonschema:"description=Free-text focus for the quiz"`
}

type QuizOutput struct {
	Questions []*domain.Question `json:"questions"`
}

type SubmitInput struct {
	UserID     string `json:"user_id" jsonschema:"description=Learner identifier"`
	QuestionID string `json:"question_id" jsonschema:"description=Question ID from studybuddy_quiz"`
	Selected   *int   `json:"selected_answer,omitempty" jsonschema:"description=Selected option index for MCQ questions"`
	Answer     string `json:"answer,omitempty" jsonschema:"description=Free-text answer for QA questions"`
}

type SubmitOutput struct {
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score,omitempty"`
	Feedback string  `json:"feedback"`
}

type RevisionInput struct {
	Topics []string `json:"topics" jsonschema:"description=Topics to revise"`
}

type RevisionOutput struct {
	RevisionMaterial string `json:"revision_material"`
}

type ProfileInput struct {
	UserID string `json:"user_id" jsonschema:"description=Learner identifier"`
}

type ProfileOutput struct {
	UserID         string             `json:"user_id"`
	KnowledgeLevel string             `json:"knowledge_level"`
	KnownConcepts  []string           `json:"known_concepts"`
	WeakAreas      []string           `json:"weak_areas"`
	TopicMastery   map[string]float64 `json:"topic_mastery"`
}

type ResetInput struct {
	UserID string `json:"user_id" jsonschema:"description=Learner identifier"`
}

type ResetOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleChat(ctx context.Context, input ChatInput) (ChatOutput, error) {
	if input.UserID == "" || input.Message == "" {
		return ChatOutput{}, fmt.Errorf("user_id and message are required")
	}

	result, err := s.tutoring.Respond(ctx, input.UserID, input.Message, "")
	if err != nil {
		return ChatOutput{}, fmt.Errorf("failed to generate response: %w", err)
	}

	return ChatOutput{
		Response:       result.Response,
		MasteryUpdates: result.MasteryUpdates,
	}, nil
}

func (s *Server) handleQuiz(ctx context.Context, input QuizInput) (QuizOutput, error) {
	if input.UserID == "" {
		return QuizOutput{}, fmt.Errorf("user_id is required")
	}

	var questions []*domain.Question
	var err error
	switch strings.ToLower(input.Format) {
	case "", "mcq":
		questions, err = s.assessments.GenerateMCQs(ctx, input.UserID, input.Topics, input.Count, input.Query)
	case "qa":
		questions, err = s.assessments.GenerateQA(ctx, input.UserID, input.Topics, "", input.Count, input.Query)
	default:
		return QuizOutput{}, fmt.Errorf("unknown format %q", input.Format)
	}
	if err != nil {
		if err == domain.ErrUnparsable {
			return QuizOutput{Questions: []*domain.Question{}}, nil
		}
		return QuizOutput{}, fmt.Errorf("failed to generate quiz: %w", err)
	}

	return QuizOutput{Questions: questions}, nil
}

func (s *Server) handleSubmit(ctx context.Context, input SubmitInput) (SubmitOutput, error) {
	if input.UserID == "" || input.QuestionID == "" {
		return SubmitOutput{}, fmt.Errorf("user_id and question_id are required")
	}

	// An option index means an MCQ submission; otherwise grade as free text.
	if input.Selected != nil {
		grade, err := s.assessments.GradeMCQ(ctx, input.UserID, input.QuestionID, *input.Selected)
		if err != nil {
			return SubmitOutput{}, fmt.Errorf("failed to grade answer: %w", err)
		}
		return SubmitOutput{
			Correct:  grade.IsCorrect,
			Feedback: grade.Explanation,
		}, nil
	}

	result, err := s.assessments.GradeAnswer(ctx, assessment.GradeAnswerRequest{
		UserID:     input.UserID,
		QuestionID: input.QuestionID,
		UserAnswer: input.Answer,
	})
	if err != nil {
		return SubmitOutput{}, fmt.Errorf("failed to grade answer: %w", err)
	}

	return SubmitOutput{
		Correct:  result.Passed(),
		Score:    result.TotalScore,
		Feedback: result.Feedback,
	}, nil
}

func (s *Server) handleRevision(ctx context.Context, input RevisionInput) (RevisionOutput, error) {
	material, err := s.assessments.Revision(ctx, input.Topics)
	if err != nil {
		return RevisionOutput{}, fmt.Errorf("failed to generate revision material: %w", err)
	}

	return RevisionOutput{RevisionMaterial: material}, nil
}

func (s *Server) handleProfile(ctx context.Context, input ProfileInput) (ProfileOutput, error) {
	if input.UserID == "" {
		return ProfileOutput{}, fmt.Errorf("user_id is required")
	}

	p, err := s.profiles.GetOrCreate(input.UserID)
	if err != nil {
		return ProfileOutput{}, fmt.Errorf("failed to load profile: %w", err)
	}

	return ProfileOutput{
		UserID:         p.UserID,
		KnowledgeLevel: string(p.KnowledgeLevel),
		KnownConcepts:  p.KnownConcepts,
		WeakAreas:      p.WeakAreas,
		TopicMastery:   p.TopicMastery(),
	}, nil
}

func (s *Server) handleReset(ctx context.Context, input ResetInput) (ResetOutput, error) {
	if input.UserID == "" {
		return ResetOutput{}, fmt.Errorf("user_id is required")
	}

	if err := s.tutoring.Reset(ctx, input.UserID); err != nil {
		return ResetOutput{}, fmt.Errorf("failed to reset session: %w", err)
	}

	return ResetOutput{
		Message: "New session started. All previous progress archived.",
	}, nil
}

// ServeStdio starts the MCP server on stdio (for editor integration)
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
