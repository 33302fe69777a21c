package tutor

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

func TestSystemPrompt(t *testing.T) {
	p := domain.NewUserProfile("alice")
	p.KnowledgeLevel = domain.LevelIntermediate
	goroutines := p.Topic("Goroutines")
	goroutines.Mastery = 0.75
	goroutines.Attempted = 4
	goroutines.Status = domain.StatusStrong
	p.DeriveLists()

	got := NewPrompter().SystemPrompt(p, "Covered concurrency basics.", "Channels block until both sides are ready.")

	for _, want := range []string{
		"Level: Intermediate",
		"Known: Goroutines",
		"Preference: Analogy-based",
		`"mastery":0.75`,
		"Summary: Covered concurrency basics.",
		"Context: Channels block until both sides are ready.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if strings.Contains(got, "{knowledge_level}") || strings.Contains(got, "{topic_mastery}") {
		t.Error("unexpanded placeholder left in prompt")
	}
}

func TestSystemPromptEmptyProfile(t *testing.T) {
	got := NewPrompter().SystemPrompt(domain.NewUserProfile("bob"), "", "")
	if !strings.Contains(got, "Topic Mastery: {}") {
		t.Error("empty profile should render an empty mastery object")
	}
}

func TestFilePrompt(t *testing.T) {
	got := NewPrompter().FilePrompt("chapter one text")

	if !strings.Contains(got, `"The answer is not available in your uploaded file."`) {
		t.Error("file prompt missing the mandatory refusal sentence")
	}
	if !strings.Contains(got, "chapter one text") {
		t.Error("file prompt missing uploaded content")
	}
	if strings.Contains(got, "{context}") {
		t.Error("unexpanded placeholder left in prompt")
	}
}

func TestGapPrompt(t *testing.T) {
	got := NewPrompter().GapPrompt("what is a mutex", "User: what is a mutex\nAssistant: a lock")

	if !strings.Contains(got, "User Message: what is a mutex") {
		t.Error("gap prompt missing user message")
	}
	if !strings.Contains(got, "History: User: what is a mutex") {
		t.Error("gap prompt missing transcript")
	}
	// The JSON shape description must survive placeholder expansion.
	if !strings.Contains(got, `{"topic_name": mastery_increment_or_decrement}`) {
		t.Error("gap prompt schema mangled")
	}
}

func TestMemoryWindow(t *testing.T) {
	m := NewMemory(2)

	for i := 0; i < 5; i++ {
		m.Commit("alice", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	got := m.History("alice")
	if len(got) != 4 {
		t.Fatalf("window length = %d, want 4", len(got))
	}
	if got[0].Content != "q3" || got[3].Content != "a4" {
		t.Errorf("window kept wrong turns: first=%q last=%q", got[0].Content, got[3].Content)
	}
}

func TestMemoryIsolatedPerUser(t *testing.T) {
	m := NewMemory(0)
	m.Commit("alice", "q", "a")

	if m.Len("bob") != 0 {
		t.Error("windows leaked across users")
	}
	m.Clear("alice")
	if m.Len("alice") != 0 {
		t.Error("Clear() left messages behind")
	}
}

func TestMemoryHistoryCopy(t *testing.T) {
	m := NewMemory(0)
	m.Commit("alice", "q", "a")

	h := m.History("alice")
	h[0].Content = "mutated"

	if m.History("alice")[0].Content != "q" {
		t.Error("History() returned a view into the window")
	}
}
