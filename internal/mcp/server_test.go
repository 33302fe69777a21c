package mcp

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/question"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/tutor"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// mockProvider replays scripted responses.
type mockProvider struct {
	mu        sync.Mutex
	responses []string
}

func (m *mockProvider) Name() string            { return "mock" }
func (m *mockProvider) SupportsStreaming() bool { return true }

func (m *mockProvider) next() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return "Mock response"
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp
}

func (m *mockProvider) Generate(_ context.Context, _ *llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: m.next()}, nil
}

func (m *mockProvider) GenerateStream(_ context.Context, _ *llm.Request) (<-chan llm.StreamChunk, error) {
	text := m.next()
	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for _, word := range strings.SplitAfter(text, " ") {
			ch <- llm.StreamChunk{Content: word}
		}
		ch <- llm.StreamChunk{Done: true}
	}()
	return ch, nil
}

type emptyRetriever struct{}

func (emptyRetriever) RetrieveContext(_ context.Context, _ string) string { return "" }

// setupTestServer creates a test MCP server backed by a scripted provider
func setupTestServer(t *testing.T) (*Server, *mockProvider) {
	t.Helper()

	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create data store: %v", err)
	}

	provider := &mockProvider{}
	registry := llm.NewRegistry()
	registry.Register("mock", provider)

	profiles := profile.NewStore(store)
	summaries := summary.NewStore(store)
	histories := history.NewStore(store)
	questions := question.NewStore()
	uploads := upload.NewCache()

	tutoring := tutor.NewService(registry, profiles, summaries, histories, emptyRetriever{}, uploads, nil)
	assessments := assessment.NewService(registry, profiles, questions, emptyRetriever{}, uploads, nil)

	s := NewServer(Config{
		Tutoring:    tutoring,
		Assessments: assessments,
		Profiles:    profiles,
	})

	return s, provider
}

func TestNewServer(t *testing.T) {
	s, _ := setupTestServer(t)

	if s == nil {
		t.Fatal("expected non-nil server")
	}
	if s.mcpServer == nil {
		t.Fatal("expected non-nil MCP server")
	}
	if s.tutoring == nil {
		t.Fatal("expected non-nil tutoring service")
	}
	if s.assessments == nil {
		t.Fatal("expected non-nil assessment service")
	}
}

func TestGetMCPServer(t *testing.T) {
	s, _ := setupTestServer(t)

	if s.GetMCPServer() == nil {
		t.Fatal("expected non-nil underlying MCP server")
	}
}

func TestHandleChat(t *testing.T) {
	s, provider := setupTestServer(t)
	provider.responses = []string{"A goroutine is a lightweight thread.", "{}"}

	out, err := s.handleChat(context.Background(), ChatInput{
		UserID:  "alice",
		Message: "What is a goroutine?",
	})
	if err != nil {
		t.Fatalf("handleChat() error = %v", err)
	}
	if out.Response != "A goroutine is a lightweight thread." {
		t.Errorf("response = %q", out.Response)
	}
}

func TestHandleChatMissingFields(t *testing.T) {
	s, _ := setupTestServer(t)

	if _, err := s.handleChat(context.Background(), ChatInput{UserID: "alice"}); err == nil {
		t.Error("expected error for missing message")
	}
}

func TestHandleQuizAndSubmit(t *testing.T) {
	s, provider := setupTestServer(t)
	provider.responses = []string{`[{"question": "What does len() return?", "options": ["capacity", "length", "pointer", "type"], "correct_answer": 1, "explanation": "len reports the element count."}]`}

	quiz, err := s.handleQuiz(context.Background(), QuizInput{
		UserID: "alice",
		Topics: []string{"Slices"},
		Count:  1,
	})
	if err != nil {
		t.Fatalf("handleQuiz() error = %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(quiz.Questions))
	}

	selected := 1
	result, err := s.handleSubmit(context.Background(), SubmitInput{
		UserID:     "alice",
		QuestionID: quiz.Questions[0].ID,
		Selected:   &selected,
	})
	if err != nil {
		t.Fatalf("handleSubmit() error = %v", err)
	}
	if !result.Correct {
		t.Error("Correct = false, want true")
	}
}

func TestHandleQuizUnparsableReturnsEmptyBatch(t *testing.T) {
	s, provider := setupTestServer(t)
	provider.responses = []string{"no structured data here"}

	quiz, err := s.handleQuiz(context.Background(), QuizInput{
		UserID: "alice",
		Topics: []string{"Slices"},
	})
	if err != nil {
		t.Fatalf("handleQuiz() error = %v", err)
	}
	if len(quiz.Questions) != 0 {
		t.Errorf("got %d questions, want 0", len(quiz.Questions))
	}
}

func TestHandleQuizUnknownFormat(t *testing.T) {
	s, _ := setupTestServer(t)

	if _, err := s.handleQuiz(context.Background(), QuizInput{UserID: "alice", Format: "essay"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestHandleProfile(t *testing.T) {
	s, _ := setupTestServer(t)

	out, err := s.handleProfile(context.Background(), ProfileInput{UserID: "alice"})
	if err != nil {
		t.Fatalf("handleProfile() error = %v", err)
	}
	if out.UserID != "alice" {
		t.Errorf("user_id = %q, want alice", out.UserID)
	}
	if out.KnowledgeLevel != string(domain.LevelBeginner) {
		t.Errorf("knowledge_level = %q, want Beginner", out.KnowledgeLevel)
	}
}

func TestHandleReset(t *testing.T) {
	s, _ := setupTestServer(t)

	out, err := s.handleReset(context.Background(), ResetInput{UserID: "alice"})
	if err != nil {
		t.Fatalf("handleReset() error = %v", err)
	}
	if out.Message != "New session started. All previous progress archived." {
		t.Errorf("message = %q", out.Message)
	}
}
