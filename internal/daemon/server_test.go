package daemon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
)

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	decodeBody(t, w, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]interface{}
	decodeBody(t, w, &body)
	if body["version"] != Version {
		t.Errorf("version = %v, want %s", body["version"], Version)
	}
	providers, ok := body["llm_providers"].([]interface{})
	if !ok || len(providers) != 1 {
		t.Errorf("llm_providers = %v, want one entry", body["llm_providers"])
	}
}

func TestChat(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{"A goroutine is a lightweight thread.", "{}"}

	w := s.do(t, http.MethodPost, "/chat", map[string]interface{}{
		"user_id": "alice",
		"message": "What is a goroutine?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Response       string             `json:"response"`
		MasteryUpdates map[string]float64 `json:"mastery_updates"`
	}
	decodeBody(t, w, &body)
	if body.Response != "A goroutine is a lightweight thread." {
		t.Errorf("response = %q", body.Response)
	}

	// Post-turn work ran inline, so the exchange is archived.
	sessions, err := s.histories.List("alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d archived sessions, want 1", len(sessions))
	}
	if len(sessions[0].Messages) != 2 {
		t.Errorf("got %d messages, want 2", len(sessions[0].Messages))
	}
}

func TestChatMissingFields(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/chat", map[string]interface{}{
		"user_id": "alice",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestChatStream(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{"Channels synchronize goroutines.", "{}"}

	w := s.do(t, http.MethodPost, "/chat", map[string]interface{}{
		"user_id": "alice",
		"message": "What are channels?",
		"stream":  true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "event: content") {
		t.Errorf("body missing content events: %q", body)
	}
	if !strings.Contains(body, "Channels ") {
		t.Errorf("body missing streamed text: %q", body)
	}
	if !strings.Contains(body, "event: done") {
		t.Errorf("body missing done event: %q", body)
	}
}

func TestUploadSwitchesChatToFileMode(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	fmt.Fprint(fw, "Photosynthesis converts light into chemical energy.")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload?user_id=alice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Filename      string `json:"filename"`
		Message       string `json:"message"`
		ContentLength int    `json:"content_length"`
	}
	decodeBody(t, w, &body)
	if body.Filename != "notes.txt" {
		t.Errorf("filename = %q", body.Filename)
	}
	if body.ContentLength == 0 {
		t.Error("content_length = 0")
	}

	// The next chat turn must run against the uploaded file, not retrieval.
	s.provider.responses = []string{"It converts light into energy.", "{}"}
	cw := s.do(t, http.MethodPost, "/chat", map[string]interface{}{
		"user_id": "alice",
		"message": "What does photosynthesis do?",
	})
	if cw.Code != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", cw.Code)
	}

	reqs := s.provider.recorded()
	if len(reqs) == 0 {
		t.Fatal("provider never called")
	}
	if !strings.Contains(reqs[0].System, "Photosynthesis converts light") {
		t.Error("system prompt does not carry uploaded content")
	}
}

func TestUploadMissingUserID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetProfile(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/user/alice/profile", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var p domain.UserProfile
	decodeBody(t, w, &p)
	if p.UserID != "alice" {
		t.Errorf("user_id = %q, want alice", p.UserID)
	}
	if p.KnowledgeLevel != domain.LevelBeginner {
		t.Errorf("knowledge_level = %q, want Beginner", p.KnowledgeLevel)
	}
}

func TestReset(t *testing.T) {
	s := newTestServer(t)

	if _, err := s.profiles.GetOrCreate("alice"); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	w := s.do(t, http.MethodPost, "/user/alice/reset", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["status"] != "success" {
		t.Errorf("status = %q, want success", body["status"])
	}
	if body["message"] != "New session started. All previous progress archived." {
		t.Errorf("message = %q", body["message"])
	}
}

func TestHistory(t *testing.T) {
	s := newTestServer(t)

	p, err := s.profiles.GetOrCreate("alice")
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	_, err = s.histories.Append(p, "s1",
		domain.ChatMessage{Role: "user", Content: "hi", Timestamp: time.Now()},
		domain.ChatMessage{Role: "assistant", Content: "hello", Timestamp: time.Now()},
	)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	w := s.do(t, http.MethodGet, "/history/alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		UserID   string                   `json:"user_id"`
		Sessions []*domain.SessionHistory `json:"sessions"`
	}
	decodeBody(t, w, &body)
	if body.UserID != "alice" {
		t.Errorf("user_id = %q", body.UserID)
	}
	if len(body.Sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(body.Sessions))
	}
}

const mcqBatch = `[
  {"question": "What does len() return for a slice?", "options": ["capacity", "length", "pointer", "type"], "correct_answer": 1, "explanation": "len reports the element count."},
  {"question": "What does cap() return?", "options": ["length", "capacity", "stride", "size in bytes"], "correct_answer": 1, "explanation": "cap reports the backing array capacity."}
]`

func generateMCQs(t *testing.T, s *testServer) []*domain.Question {
	t.Helper()
	s.provider.responses = append(s.provider.responses, "```json\n"+mcqBatch+"\n```")

	w := s.do(t, http.MethodPost, "/assessment/mcq/generate", map[string]interface{}{
		"user_id": "alice",
		"topics":  []string{"Slices"},
		"count":   2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Questions []*domain.Question `json:"questions"`
	}
	decodeBody(t, w, &body)
	return body.Questions
}

func TestGenerateMCQs(t *testing.T) {
	s := newTestServer(t)

	questions := generateMCQs(t, s)
	if len(questions) != 2 {
		t.Fatalf("got %d questions, want 2", len(questions))
	}
	for _, q := range questions {
		if q.ID == "" {
			t.Error("question missing id")
		}
		if q.Type != domain.TypeMCQ {
			t.Errorf("type = %q, want MCQ", q.Type)
		}
	}
}

func TestGenerateMCQsUnparsableReturnsEmptyBatch(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{"I could not come up with questions, sorry."}

	w := s.do(t, http.MethodPost, "/assessment/mcq/generate", map[string]interface{}{
		"user_id": "alice",
		"topics":  []string{"Slices"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Questions []*domain.Question `json:"questions"`
	}
	decodeBody(t, w, &body)
	if len(body.Questions) != 0 {
		t.Errorf("got %d questions, want 0", len(body.Questions))
	}
}

func TestGenerateQA(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{`[{"question": "Explain slice growth.", "suggested_answer_key_points": "doubling, reallocation, copy"}]`}

	w := s.do(t, http.MethodPost, "/assessment/qa/generate", map[string]interface{}{
		"user_id": "alice",
		"topics":  []string{"Slices"},
		"count":   1,
		"size":    "short",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body struct {
		Questions []*domain.Question `json:"questions"`
	}
	decodeBody(t, w, &body)
	if len(body.Questions) != 1 {
		t.Fatalf("got %d questions, want 1", len(body.Questions))
	}
	if body.Questions[0].Type != domain.TypeQA {
		t.Errorf("type = %q, want QA", body.Questions[0].Type)
	}
}

func TestSubmitMCQ(t *testing.T) {
	s := newTestServer(t)
	questions := generateMCQs(t, s)

	w := s.do(t, http.MethodPost, "/assessment/mcq/submit", map[string]interface{}{
		"user_id":         "alice",
		"question_id":     questions[0].ID,
		"selected_answer": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var grade domain.MCQGrade
	decodeBody(t, w, &grade)
	if !grade.IsCorrect {
		t.Error("IsCorrect = false, want true")
	}
	if grade.CorrectOption != 1 {
		t.Errorf("CorrectOption = %d, want 1", grade.CorrectOption)
	}
}

func TestSubmitMCQUnknownQuestion(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/assessment/mcq/submit", map[string]interface{}{
		"user_id":         "alice",
		"question_id":     "missing",
		"selected_answer": 0,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestBatchSubmitMCQ(t *testing.T) {
	s := newTestServer(t)
	questions := generateMCQs(t, s)

	w := s.do(t, http.MethodPost, "/assessment/mcq/batch-submit", map[string]interface{}{
		"user_id": "alice",
		"answers": map[string]int{
			questions[0].ID: 1,
			"missing":       0,
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body struct {
		Results map[string]*domain.MCQGrade `json:"results"`
	}
	decodeBody(t, w, &body)
	if len(body.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(body.Results))
	}
	if _, ok := body.Results[questions[0].ID]; !ok {
		t.Error("graded question missing from results")
	}
}

const passingGrade = `{"correctness_score": 4.5, "completeness_score": 2.0, "clarity_score": 1.5, "total_score": 8.0, "feedback": "Solid answer."}`

func TestGradeAdHoc(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{passingGrade}

	w := s.do(t, http.MethodPost, "/assessment/grade", map[string]interface{}{
		"user_id":     "alice",
		"question":    "Explain append aliasing.",
		"key_points":  "shared backing array",
		"user_answer": "Appending within capacity writes to the shared backing array.",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result domain.GradingResult
	decodeBody(t, w, &result)
	if result.TotalScore != 8.0 {
		t.Errorf("TotalScore = %v, want 8.0", result.TotalScore)
	}
	if !result.Passed() {
		t.Error("Passed() = false, want true")
	}
}

func TestGradeAdHocMissingKeyPoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/assessment/grade", map[string]interface{}{
		"user_id":     "alice",
		"question":    "Explain append aliasing.",
		"user_answer": "It aliases.",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRevision(t *testing.T) {
	s := newTestServer(t)
	s.provider.responses = []string{"Slices share a backing array; append may reallocate."}

	w := s.do(t, http.MethodPost, "/assessment/revision", map[string]interface{}{
		"topics": []string{"Slices"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var body map[string]string
	decodeBody(t, w, &body)
	if body["revision_material"] == "" {
		t.Error("revision_material is empty")
	}
}
