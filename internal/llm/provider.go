// Package llm abstracts over chat-completion backends. Providers share one
// request/response shape; callers pick whole-response or streaming delivery
// and never see transport details.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrNoDefaultProvider = errors.New("no default provider configured")
)

// Provider is a chat-completion backend.
type Provider interface {
	// Name returns the provider name used for registry lookup.
	Name() string

	// Generate performs a whole-response completion request.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GenerateStream performs a streaming completion request. The returned
	// channel is closed after the final chunk.
	GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error)

	// SupportsStreaming reports whether GenerateStream is usable.
	SupportsStreaming() bool
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	StopSeqs    []string
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Role identifies the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is a completed generation.
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamChunk is one increment of a streaming response. Exactly one of
// Content, Done, or Error is meaningful per chunk.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// Collect drains a stream into a single response. Used when a caller needs
// the full text after the stream has been consumed, e.g. to persist the
// assistant turn. Returns the partial content alongside any stream error.
func Collect(ctx context.Context, ch <-chan StreamChunk) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return sb.String(), nil
			}
			if chunk.Error != nil {
				return sb.String(), chunk.Error
			}
			if chunk.Done {
				return sb.String(), nil
			}
			sb.WriteString(chunk.Content)
		}
	}
}

// Registry holds named providers and tracks the default.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaultP  string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	r.defaultP = name
	return nil
}

func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Default returns the configured default provider, falling back to any
// registered provider when the default is "auto" or unset.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultP != "" && r.defaultP != "auto" {
		if p, ok := r.providers[r.defaultP]; ok {
			return p, nil
		}
	}

	for _, p := range r.providers {
		return p, nil
	}

	return nil, ErrNoDefaultProvider
}

func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultP
}
