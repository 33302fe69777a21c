package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// maxUploadBytes bounds uploaded file size (10 MB).
const maxUploadBytes = 10 << 20

// Chat handlers

type chatRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.UserID == "" || req.Message == "" {
		s.jsonError(w, http.StatusBadRequest, "user_id and message are required", nil)
		return
	}

	if req.Stream {
		s.handleChatStream(w, r, req)
		return
	}

	result, err := s.tutoring.Respond(r.Context(), req.UserID, req.Message, req.SessionID)
	if err != nil {
		slog.Error("chat turn failed", "user_id", req.UserID, "error", err)
		s.jsonError(w, http.StatusInternalServerError, "failed to generate response", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handleChatStream delivers a chat response via SSE
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request, req chatRequest) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.jsonError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	stream, err := s.tutoring.RespondStream(r.Context(), req.UserID, req.Message, req.SessionID)
	if err != nil {
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
		flusher.Flush()
		return
	}

	doneSent := false
	for chunk := range stream {
		switch {
		case chunk.Error != nil:
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", chunk.Error.Error())
		case chunk.Done:
			fmt.Fprintf(w, "event: done\ndata: {}\n\n")
			doneSent = true
		default:
			fmt.Fprintf(w, "event: content\ndata: %s\n\n", sseData(chunk.Content))
		}
		flusher.Flush()
	}

	if !doneSent {
		fmt.Fprintf(w, "event: done\ndata: {}\n\n")
		flusher.Flush()
	}
}

// sseData makes a content chunk safe for single-frame SSE delivery.
// Newlines inside a chunk would otherwise terminate the data field early.
func sseData(content string) string {
	return strings.ReplaceAll(content, "\n", "\ndata: ")
}

// Upload handler

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.jsonError(w, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "file field is required", err)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to read file", err)
		return
	}

	text, err := upload.ExtractText(content, header.Filename)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFile) {
			s.jsonError(w, http.StatusBadRequest, "unsupported file format", err)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to extract text", err)
		return
	}

	s.uploads.Put(userID, header.Filename, text)
	slog.Info("file uploaded", "user_id", userID, "filename", header.Filename, "content_length", len(text))

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"filename":       header.Filename,
		"message":        "File uploaded successfully. Chat responses will now be grounded in this file.",
		"content_length": len(text),
	})
}

// User handlers

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	p, err := s.profiles.GetOrCreate(userID)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to load profile", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	if err := s.tutoring.Reset(r.Context(), userID); err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to reset session", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "New session started. All previous progress archived.",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")

	sessions, err := s.histories.List(userID)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to load history", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"sessions": sessions,
	})
}

// Assessment handlers

type generateRequest struct {
	UserID string   `json:"user_id"`
	Topics []string `json:"topics,omitempty"`
	Count  int      `json:"count,omitempty"`
	Size   string   `json:"size,omitempty"`
	Query  string   `json:"query,omitempty"`
}

func (s *Server) handleGenerateMCQs(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	questions, err := s.assessments.GenerateMCQs(r.Context(), req.UserID, req.Topics, req.Count, req.Query)
	s.respondQuestions(w, questions, err)
}

func (s *Server) handleGenerateQA(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	questions, err := s.assessments.GenerateQA(r.Context(), req.UserID, req.Topics, req.Size, req.Count, req.Query)
	s.respondQuestions(w, questions, err)
}

// respondQuestions renders a generation result. Unparsable generator output
// is reported as an empty batch, not a server error, so clients can simply
// retry.
func (s *Server) respondQuestions(w http.ResponseWriter, questions []*domain.Question, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrUnparsable) {
			slog.Warn("generation output unparsable, returning empty batch")
			s.jsonResponse(w, http.StatusOK, map[string]interface{}{
				"questions": []*domain.Question{},
			})
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to generate questions", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
	})
}

func (s *Server) handleSubmitMCQ(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		QuestionID string `json:"question_id"`
		Selected   int    `json:"selected_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	grade, err := s.assessments.GradeMCQ(r.Context(), req.UserID, req.QuestionID, req.Selected)
	if err != nil {
		s.gradingError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, grade)
}

func (s *Server) handleBatchSubmitMCQ(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string         `json:"user_id"`
		Answers map[string]int `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	results := s.assessments.BatchSubmitMCQ(r.Context(), req.UserID, req.Answers)
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func (s *Server) handleSubmitQA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		QuestionID string `json:"question_id"`
		Answer     string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := s.assessments.GradeAnswer(r.Context(), assessment.GradeAnswerRequest{
		UserID:     req.UserID,
		QuestionID: req.QuestionID,
		UserAnswer: req.Answer,
	})
	if err != nil {
		s.gradingError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleBatchSubmitQA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string            `json:"user_id"`
		Answers map[string]string `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	results := s.assessments.BatchSubmitQA(r.Context(), req.UserID, req.Answers)
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		Topic      string `json:"topic,omitempty"`
		Question   string `json:"question"`
		KeyPoints  string `json:"key_points"`
		UserAnswer string `json:"user_answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := s.assessments.GradeAnswer(r.Context(), assessment.GradeAnswerRequest{
		UserID:     req.UserID,
		Topic:      req.Topic,
		Question:   req.Question,
		KeyPoints:  req.KeyPoints,
		UserAnswer: req.UserAnswer,
	})
	if err != nil {
		s.gradingError(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleRevision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topics []string `json:"topics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	material, err := s.assessments.Revision(r.Context(), req.Topics)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to generate revision material", err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"revision_material": material,
	})
}

// gradingError maps grading failures onto HTTP statuses.
func (s *Server) gradingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuestionNotFound):
		s.jsonError(w, http.StatusNotFound, "question not found", nil)
	case errors.Is(err, domain.ErrQuestionTypeMismatch):
		s.jsonError(w, http.StatusBadRequest, "question type mismatch", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		s.jsonError(w, http.StatusBadRequest, "question and key points are required", nil)
	default:
		s.jsonError(w, http.StatusInternalServerError, "grading failed", err)
	}
}
