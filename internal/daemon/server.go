// Package daemon exposes the tutoring engine over a local HTTP API: chat
// (whole-response or SSE), assessment generation and grading, uploads,
// profile inspection, and session reset.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/config"
	"github.com/sauravyadav1008/studybuddy/internal/docindex"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/question"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
	"github.com/sauravyadav1008/studybuddy/internal/storage/sqlite"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/tutor"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// Version is reported by the status endpoint.
const Version = "0.1.0"

// Server represents the studybuddy daemon HTTP server
type Server struct {
	cfg    *config.LocalConfig
	server *http.Server
	router *http.ServeMux

	// Services
	llmRegistry *llm.Registry
	tutoring    *tutor.Service
	assessments *assessment.Service
	profiles    *profile.Store
	histories   *history.Store
	uploads     *upload.Cache
	materials   *docindex.Service

	db        *sqlite.DB
	startedAt time.Time
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config        *config.LocalConfig
	DataPath      string // Path for user data storage
	MaterialsPath string // Path holding study materials to index
	IndexPath     string // Path for the SQLite material index
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	s := &Server{
		cfg:       cfg.Config,
		router:    http.NewServeMux(),
		startedAt: time.Now(),
	}

	// Initialize LLM registry
	registry := llm.NewRegistry()
	if err := s.setupLLMProviders(registry); err != nil {
		return nil, fmt.Errorf("setup llm providers: %w", err)
	}
	s.llmRegistry = registry

	// Get studybuddy directory for data storage
	dataDir, err := config.StudybuddyDir()
	if err != nil {
		return nil, fmt.Errorf("get studybuddy dir: %w", err)
	}

	dataPath := cfg.DataPath
	if dataPath == "" {
		dataPath = filepath.Join(dataDir, "userdata")
	}

	store, err := local.NewStore(dataPath)
	if err != nil {
		return nil, fmt.Errorf("create data store: %w", err)
	}

	s.profiles = profile.NewStore(store)
	summaries := summary.NewStore(store)
	s.histories = history.NewStore(store)
	questions := question.NewStore()
	s.uploads = upload.NewCache()

	// Material index (SQLite)
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath = filepath.Join(dataDir, "index.db")
	}
	db, err := sqlite.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open material index: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate material index: %w", err)
	}
	s.db = db
	s.materials = docindex.NewService(db.DB, nil, slog.Default())

	materialsPath := cfg.MaterialsPath
	if materialsPath == "" {
		materialsPath = cfg.Config.Materials.Path
		if !filepath.IsAbs(materialsPath) {
			materialsPath = filepath.Join(dataDir, materialsPath)
		}
	}
	if result, err := s.materials.IndexDirectory(ctx, materialsPath); err != nil {
		slog.Warn("material indexing failed", "path", materialsPath, "error", err)
	} else {
		slog.Info("materials indexed",
			"found", result.MaterialsFound,
			"indexed", result.MaterialsIndexed,
			"skipped", result.MaterialsSkipped,
			"sections_embedded", result.SectionsEmbedded,
		)
	}

	s.tutoring = tutor.NewService(registry, s.profiles, summaries, s.histories, s.materials, s.uploads, slog.Default())
	s.assessments = assessment.NewService(registry, s.profiles, questions, s.materials, s.uploads, slog.Default())

	// Setup routes
	s.setupRoutes()

	// Create HTTP server with middleware chain
	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	handler := recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(s.router)))
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Long for SSE
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// SetDispatcher routes post-chat jobs through the given dispatcher instead
// of an in-process goroutine.
func (s *Server) SetDispatcher(d tutor.Dispatcher) {
	s.tutoring.SetDispatcher(d)
}

// Tutoring exposes the chat service, for wiring the queue consumer to
// post-turn processing.
func (s *Server) Tutoring() *tutor.Service {
	return s.tutoring
}

// setupLLMProviders initializes configured LLM providers
func (s *Server) setupLLMProviders(registry *llm.Registry) error {
	for name, providerCfg := range s.cfg.LLM.Providers {
		if !providerCfg.Enabled {
			continue
		}

		var provider llm.Provider
		switch name {
		case "claude":
			if providerCfg.APIKey == "" {
				slog.Debug("Claude provider enabled but no API key set")
				continue
			}
			provider = llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})

		case "openai":
			if providerCfg.APIKey == "" {
				slog.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})

		case "ollama":
			provider = llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})

		default:
			slog.Warn("unknown LLM provider in config", "name", name)
			continue
		}

		resilientCfg := llm.DefaultResilientConfig()
		resilientCfg.Logger = slog.Default()
		registry.Register(name, llm.NewResilientProvider(provider, resilientCfg))
		slog.Info("registered LLM provider", "name", name, "model", providerCfg.Model)
	}

	if dp := s.cfg.LLM.DefaultProvider; dp != "" && dp != "auto" {
		if err := registry.SetDefault(dp); err != nil {
			slog.Warn("default LLM provider not registered", "name", dp)
		}
	}

	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /status", s.handleStatus)

	// Chat
	s.router.HandleFunc("POST /chat", s.handleChat)

	// Uploads
	s.router.HandleFunc("POST /upload", s.handleUpload)

	// Users
	s.router.HandleFunc("GET /user/{user}/profile", s.handleGetProfile)
	s.router.HandleFunc("POST /user/{user}/reset", s.handleReset)
	s.router.HandleFunc("GET /history/{user}", s.handleHistory)

	// Assessments
	s.router.HandleFunc("POST /assessment/mcq/generate", s.handleGenerateMCQs)
	s.router.HandleFunc("POST /assessment/qa/generate", s.handleGenerateQA)
	s.router.HandleFunc("POST /assessment/mcq/submit", s.handleSubmitMCQ)
	s.router.HandleFunc("POST /assessment/mcq/batch-submit", s.handleBatchSubmitMCQ)
	s.router.HandleFunc("POST /assessment/qa/submit", s.handleSubmitQA)
	s.router.HandleFunc("POST /assessment/qa/batch-submit", s.handleBatchSubmitQA)
	s.router.HandleFunc("POST /assessment/grade", s.handleGrade)
	s.router.HandleFunc("POST /assessment/revision", s.handleRevision)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting studybuddy daemon",
		"addr", s.server.Addr,
		"llm_providers", s.llmRegistry.List(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("failed to close material index", "error", err)
		}
	}

	return s.server.Shutdown(ctx)
}

// Handler implementations

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":           "running",
		"version":          Version,
		"llm_providers":    s.llmRegistry.List(),
		"default_provider": s.cfg.LLM.DefaultProvider,
		"uptime_seconds":   int(time.Since(s.startedAt).Seconds()),
	}
	if s.materials != nil {
		if stats, err := s.materials.Stats(); err == nil {
			status["index"] = stats
		}
	}
	s.jsonResponse(w, http.StatusOK, status)
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}
