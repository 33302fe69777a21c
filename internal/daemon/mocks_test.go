package daemon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/config"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/question"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/tutor"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// fakeProvider replays scripted responses and records every request.
type fakeProvider struct {
	mu        sync.Mutex
	responses []string
	requests  []*llm.Request
}

func (f *fakeProvider) Name() string            { return "fake" }
func (f *fakeProvider) SupportsStreaming() bool { return true }

func (f *fakeProvider) next(req *llm.Request) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return "ok"
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp
}

func (f *fakeProvider) recorded() []*llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*llm.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeProvider) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: f.next(req), FinishReason: "stop"}, nil
}

func (f *fakeProvider) GenerateStream(_ context.Context, req *llm.Request) (<-chan llm.StreamChunk, error) {
	text := f.next(req)
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

// fixedRetriever returns the same context for every query.
type fixedRetriever struct {
	context string
}

func (r *fixedRetriever) RetrieveContext(_ context.Context, _ string) string {
	return r.context
}

// syncDispatcher runs post-chat jobs inline so tests observe their effects
// without sleeping.
type syncDispatcher struct {
	svc *tutor.Service
}

func (d *syncDispatcher) DispatchPostChat(job tutor.PostChatJob) error {
	return d.svc.PostProcess(context.Background(), job)
}

type testServer struct {
	*Server
	provider  *fakeProvider
	uploads   *upload.Cache
	profiles  *profile.Store
	histories *history.Store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a server around a scripted provider, skipping the
// material index and network listener.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	provider := &fakeProvider{}
	registry := llm.NewRegistry()
	registry.Register("fake", provider)

	profiles := profile.NewStore(store)
	summaries := summary.NewStore(store)
	histories := history.NewStore(store)
	questions := question.NewStore()
	uploads := upload.NewCache()
	retriever := &fixedRetriever{context: "Goroutines are lightweight threads."}

	tutoring := tutor.NewService(registry, profiles, summaries, histories, retriever, uploads, testLogger())
	tutoring.SetDispatcher(&syncDispatcher{svc: tutoring})
	assessments := assessment.NewService(registry, profiles, questions, retriever, uploads, testLogger())

	s := &Server{
		cfg:         config.DefaultLocalConfig(),
		router:      http.NewServeMux(),
		startedAt:   time.Now(),
		llmRegistry: registry,
		tutoring:    tutoring,
		assessments: assessments,
		profiles:    profiles,
		histories:   histories,
		uploads:     uploads,
	}
	s.setupRoutes()

	return &testServer{
		Server:    s,
		provider:  provider,
		uploads:   uploads,
		profiles:  profiles,
		histories: histories,
	}
}
