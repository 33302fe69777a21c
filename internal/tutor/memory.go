package tutor

import (
	"sync"

	"github.com/sauravyadav1008/studybuddy/internal/llm"
)

// DefaultWindowPairs is the number of message pairs kept in the
// conversation window per user.
const DefaultWindowPairs = 10

// Memory holds each user's rolling conversation window. Only the last N
// user/assistant pairs survive; older turns fall off the front. The window
// is process-local and rebuilt empty on restart; the durable record lives
// in the history store.
type Memory struct {
	mu      sync.Mutex
	pairs   int
	windows map[string][]llm.Message
}

// NewMemory creates a memory keeping the given number of message pairs
// per user. Non-positive values fall back to DefaultWindowPairs.
func NewMemory(pairs int) *Memory {
	if pairs <= 0 {
		pairs = DefaultWindowPairs
	}
	return &Memory{
		pairs:   pairs,
		windows: make(map[string][]llm.Message),
	}
}

// History returns a copy of the user's current window in chronological
// order. The copy is safe to append to.
func (m *Memory) History(userID string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := m.windows[userID]
	out := make([]llm.Message, len(window))
	copy(out, window)
	return out
}

// Commit records a completed exchange. Called exactly once per turn, after
// the full response is known; a streamed turn commits only when the stream
// has been exhausted.
func (m *Memory) Commit(userID, input, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	window := append(m.windows[userID],
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleAssistant, Content: output},
	)
	if max := m.pairs * 2; len(window) > max {
		window = window[len(window)-max:]
	}
	m.windows[userID] = window
}

// Clear drops the user's window entirely.
func (m *Memory) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, userID)
}

// Len reports the number of messages currently windowed for the user.
func (m *Memory) Len(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows[userID])
}
