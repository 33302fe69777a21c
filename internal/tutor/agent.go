package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
)

// RunRequest carries one chat turn plus the gathered context it runs
// against.
type RunRequest struct {
	UserID  string
	Input   string
	Profile *domain.UserProfile
	Summary string
	Context string

	// FileMode switches to the restricted file-analysis prompt. Context
	// then holds the uploaded content instead of retrieved material.
	FileMode bool
}

// Agent drives chat turns against the LLM: it assembles the system prompt,
// replays the conversation window, and commits the exchange back to the
// window once the full response is known.
type Agent struct {
	registry *llm.Registry
	prompter *Prompter
	memory   *Memory
	logger   *slog.Logger
}

// NewAgent creates a new chat agent
func NewAgent(registry *llm.Registry, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		registry: registry,
		prompter: NewPrompter(),
		memory:   NewMemory(DefaultWindowPairs),
		logger:   logger,
	}
}

// ClearMemory drops the user's conversation window.
func (a *Agent) ClearMemory(userID string) {
	a.memory.Clear(userID)
}

// Run performs a whole-response chat turn and commits it to the window.
func (a *Agent) Run(ctx context.Context, req *RunRequest) (string, error) {
	provider, err := a.registry.Default()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}

	resp, err := provider.Generate(ctx, a.buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}

	a.memory.Commit(req.UserID, req.Input, resp.Content)
	return resp.Content, nil
}

// Stream performs a streaming chat turn. The exchange is committed to the
// window only after the provider stream is exhausted without error; onDone,
// if non-nil, then receives the accumulated response. A stream that errors
// mid-flight commits nothing and onDone is not called.
func (a *Agent) Stream(ctx context.Context, req *RunRequest, onDone func(full string)) (<-chan llm.StreamChunk, error) {
	provider, err := a.registry.Default()
	if err != nil {
		return nil, fmt.Errorf("get LLM provider: %w", err)
	}

	upstream, err := provider.GenerateStream(ctx, a.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("start stream: %w", err)
	}

	out := make(chan llm.StreamChunk)
	go func() {
		defer close(out)
		var sb strings.Builder
		failed := false
		for chunk := range upstream {
			if chunk.Error != nil {
				failed = true
			} else if !chunk.Done {
				sb.WriteString(chunk.Content)
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if failed {
			return
		}
		a.memory.Commit(req.UserID, req.Input, sb.String())
		if onDone != nil {
			onDone(sb.String())
		}
	}()
	return out, nil
}

func (a *Agent) buildRequest(req *RunRequest) *llm.Request {
	var system string
	if req.FileMode {
		system = a.prompter.FilePrompt(req.Context)
	} else {
		system = a.prompter.SystemPrompt(req.Profile, req.Summary, req.Context)
	}

	messages := append(a.memory.History(req.UserID), llm.Message{
		Role:    llm.RoleUser,
		Content: req.Input,
	})

	return &llm.Request{
		System:      system,
		Messages:    messages,
		Temperature: 0.7,
	}
}
