package tutor

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
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

// fixedRetriever returns the same context for every query and records them.
type fixedRetriever struct {
	mu      sync.Mutex
	context string
	queries []string
}

func (r *fixedRetriever) RetrieveContext(_ context.Context, query string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	return r.context
}

// captureDispatcher queues jobs instead of running them.
type captureDispatcher struct {
	jobs chan PostChatJob
}

func (d *captureDispatcher) DispatchPostChat(job PostChatJob) error {
	d.jobs <- job
	return nil
}

type testEnv struct {
	svc       *Service
	provider  *fakeProvider
	retriever *fixedRetriever
	uploads   *upload.Cache
	profiles  *profile.Store
	summaries *summary.Store
	histories *history.Store
	jobs      chan PostChatJob
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	provider := &fakeProvider{}
	registry := llm.NewRegistry()
	registry.Register("fake", provider)

	env := &testEnv{
		provider:  provider,
		retriever: &fixedRetriever{context: "Goroutines are lightweight threads."},
		uploads:   upload.NewCache(),
		profiles:  profile.NewStore(store),
		summaries: summary.NewStore(store),
		histories: history.NewStore(store),
		jobs:      make(chan PostChatJob, 4),
	}
	env.svc = NewService(registry, env.profiles, env.summaries, env.histories, env.retriever, env.uploads, testLogger())
	env.svc.SetDispatcher(&captureDispatcher{jobs: env.jobs})
	return env
}

func (e *testEnv) waitJob(t *testing.T) PostChatJob {
	t.Helper()
	select {
	case job := <-e.jobs:
		return job
	case <-time.After(2 * time.Second):
		t.Fatal("no post-turn job scheduled")
		return PostChatJob{}
	}
}

func TestRespond(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{"A goroutine is a lightweight thread."}

	result, err := env.svc.Respond(context.Background(), "alice", "What is a goroutine?", "")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if result.Response != "A goroutine is a lightweight thread." {
		t.Errorf("Response = %q", result.Response)
	}

	reqs := env.provider.recorded()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(reqs))
	}
	req := reqs[0]
	if !strings.Contains(req.System, "Study Buddy Agent") {
		t.Error("system prompt missing identity")
	}
	if !strings.Contains(req.System, "Goroutines are lightweight threads.") {
		t.Error("system prompt missing retrieved context")
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "What is a goroutine?" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}

	job := env.waitJob(t)
	if job.SessionID != DefaultSessionID {
		t.Errorf("SessionID = %q, want %q", job.SessionID, DefaultSessionID)
	}
	if job.Output != result.Response {
		t.Errorf("job output = %q", job.Output)
	}
}

func TestRespondCarriesConversationWindow(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{"first answer", "second answer"}

	ctx := context.Background()
	if _, err := env.svc.Respond(ctx, "alice", "first question", "s1"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	env.waitJob(t)
	if _, err := env.svc.Respond(ctx, "alice", "second question", "s1"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	reqs := env.provider.recorded()
	second := reqs[len(reqs)-1]
	if len(second.Messages) != 3 {
		t.Fatalf("expected prior pair + new message, got %d messages", len(second.Messages))
	}
	if second.Messages[0].Content != "first question" || second.Messages[1].Content != "first answer" {
		t.Errorf("window not replayed: %+v", second.Messages[:2])
	}
}

func TestRespondFileMode(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{"from the file"}
	env.uploads.Put("alice", "notes.txt", "The capital of France is Paris.")

	if _, err := env.svc.Respond(context.Background(), "alice", "What is the capital?", ""); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	req := env.provider.recorded()[0]
	if !strings.Contains(req.System, "File Analysis Mode") {
		t.Error("expected file-analysis prompt")
	}
	if !strings.Contains(req.System, "The capital of France is Paris.") {
		t.Error("uploaded content missing from prompt")
	}

	env.retriever.mu.Lock()
	queries := len(env.retriever.queries)
	env.retriever.mu.Unlock()
	if queries != 0 {
		t.Errorf("retrieval ran despite uploaded content, %d queries", queries)
	}
}

func TestRespondStream(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{"streamed answer here"}

	ch, err := env.svc.RespondStream(context.Background(), "alice", "stream it", "s1")
	if err != nil {
		t.Fatalf("RespondStream() error = %v", err)
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Error != nil {
			t.Fatalf("stream error: %v", chunk.Error)
		}
		sb.WriteString(chunk.Content)
	}
	if sb.String() != "streamed answer here" {
		t.Errorf("streamed content = %q", sb.String())
	}

	job := env.waitJob(t)
	if job.Output != "streamed answer here" {
		t.Errorf("job output = %q", job.Output)
	}
}

func TestPostProcess(t *testing.T) {
	env := newTestEnv(t)
	// Gap detection response for the turn being processed.
	env.provider.responses = []string{
		`{"new_concepts": ["Goroutines"], "weak_areas": ["Channels"], "confidence_delta": 0.05, "topic_mastery_updates": {}}`,
	}

	job := PostChatJob{
		UserID:    "alice",
		SessionID: "s1",
		Message:   "Explain goroutines vs channels",
		Output:    "Goroutines run code, channels move data.",
	}
	if err := env.svc.PostProcess(context.Background(), job); err != nil {
		t.Fatalf("PostProcess() error = %v", err)
	}

	// Gap prompt carried the turn transcript.
	req := env.provider.recorded()[0]
	if !strings.Contains(req.Messages[0].Content, "User: Explain goroutines vs channels") {
		t.Error("gap prompt missing transcript")
	}
	if req.Temperature != 0 {
		t.Errorf("gap detection temperature = %v, want 0", req.Temperature)
	}

	p, err := env.profiles.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.Topics["Goroutines"] == nil || p.Topics["Goroutines"].Mastery != 0.5 {
		t.Errorf("new concept not seeded: %+v", p.Topics["Goroutines"])
	}
	if p.Topics["Channels"] == nil || p.Topics["Channels"].Mastery != 0.2 {
		t.Errorf("weak area not seeded: %+v", p.Topics["Channels"])
	}
	if p.ConfidenceScore != 0.55 {
		t.Errorf("ConfidenceScore = %v, want 0.55", p.ConfidenceScore)
	}

	sessions, err := env.histories.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 archived session, got %d", len(sessions))
	}
	got := sessions[0]
	if len(got.Messages) != 2 || got.Messages[1].Content != job.Output {
		t.Errorf("archived messages = %+v", got.Messages)
	}
	if got.TopicMastery["Goroutines"] != 0.5 {
		t.Errorf("archived mastery snapshot = %+v", got.TopicMastery)
	}
}

// fakeArchiver records mirrored snapshots.
type fakeArchiver struct {
	mu       sync.Mutex
	profiles []*domain.UserProfile
	sessions []*domain.SessionHistory
}

func (a *fakeArchiver) SaveProfile(_ context.Context, p *domain.UserProfile) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profiles = append(a.profiles, p)
	return nil
}

func (a *fakeArchiver) SaveSession(_ context.Context, h *domain.SessionHistory) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions = append(a.sessions, h)
	return nil
}

func TestPostProcessMirrorsToArchiver(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{`{}`}
	archiver := &fakeArchiver{}
	env.svc.SetArchiver(archiver)

	job := PostChatJob{
		UserID:    "alice",
		SessionID: "s1",
		Message:   "What is a mutex?",
		Output:    "A mutex serializes access to shared state.",
	}
	if err := env.svc.PostProcess(context.Background(), job); err != nil {
		t.Fatalf("PostProcess() error = %v", err)
	}

	if len(archiver.profiles) != 1 || archiver.profiles[0].UserID != "alice" {
		t.Errorf("mirrored profiles = %+v", archiver.profiles)
	}
	if len(archiver.sessions) != 1 || archiver.sessions[0].SessionID != "s1" {
		t.Fatalf("mirrored sessions = %+v", archiver.sessions)
	}
	if len(archiver.sessions[0].Messages) != 2 {
		t.Errorf("mirrored message count = %d, want 2", len(archiver.sessions[0].Messages))
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.provider.responses = []string{"answer", "answer after reset"}
	ctx := context.Background()

	if _, err := env.svc.Respond(ctx, "alice", "hello", "s1"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	env.waitJob(t)
	env.uploads.Put("alice", "a.txt", "notes")
	if err := env.summaries.Set("alice", "knows goroutines"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	before, _ := env.profiles.Get("alice")

	if err := env.svc.Reset(ctx, "alice"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	// Fresh profile with a rotated session id.
	after, err := env.profiles.Get("alice")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if after.CurrentSessionID == before.CurrentSessionID {
		t.Error("session id not rotated")
	}
	if len(after.Topics) != 0 {
		t.Errorf("topics survived reset: %v", after.Topics)
	}

	// Summary back to the default, uploads gone.
	s, _ := env.summaries.Get("alice")
	if s != summary.DefaultSummary {
		t.Errorf("summary = %q", s)
	}
	if env.uploads.Content("alice") != "" {
		t.Error("upload cache survived reset")
	}

	// Conversation window cleared: next turn starts with one message.
	if _, err := env.svc.Respond(ctx, "alice", "hello again", "s2"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	reqs := env.provider.recorded()
	if got := len(reqs[len(reqs)-1].Messages); got != 1 {
		t.Errorf("window survived reset, %d messages", got)
	}
}

func TestGatherDegradesOnTimeout(t *testing.T) {
	env := newTestEnv(t)
	slow := &slowRetriever{delay: time.Second}
	agg := NewAggregator(env.profiles, env.summaries, slow, env.uploads, testLogger())
	agg.timeout = 50 * time.Millisecond

	bundle, err := agg.Gather(context.Background(), "alice", "anything")
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if bundle.Profile == nil {
		t.Fatal("degraded bundle missing profile")
	}
	if bundle.Summary != "" || bundle.Context != "" {
		t.Errorf("degraded bundle not empty: summary=%q context=%q", bundle.Summary, bundle.Context)
	}
}

type slowRetriever struct{ delay time.Duration }

func (r *slowRetriever) RetrieveContext(ctx context.Context, _ string) string {
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
	}
	return "too late"
}
