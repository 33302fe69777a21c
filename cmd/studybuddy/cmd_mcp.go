package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sauravyadav1008/studybuddy/internal/assessment"
	"github.com/sauravyadav1008/studybuddy/internal/config"
	"github.com/sauravyadav1008/studybuddy/internal/docindex"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	mcpserver "github.com/sauravyadav1008/studybuddy/internal/mcp"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/question"
	"github.com/sauravyadav1008/studybuddy/internal/storage/local"
	"github.com/sauravyadav1008/studybuddy/internal/storage/sqlite"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/tutor"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// cmdMCP starts the MCP server for editor and assistant integration.
// It runs over stdio with its own service wiring; the daemon does not
// need to be running.
func cmdMCP() error {
	// Load configuration
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Keep stdout clean for the MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Initialize LLM registry
	registry := llm.NewRegistry()

	// Setup LLM providers
	for name, providerCfg := range cfg.LLM.Providers {
		if !providerCfg.Enabled || (providerCfg.APIKey == "" && name != "ollama") {
			continue
		}

		switch name {
		case "claude":
			provider := llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
			registry.Register("claude", provider)
		case "openai":
			provider := llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
			registry.Register("openai", provider)
		case "ollama":
			provider := llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
			registry.Register("ollama", provider)
		}
	}

	// Initialize local stores
	dataDir, err := config.EnsureStudybuddyDir()
	if err != nil {
		return fmt.Errorf("setup studybuddy dir: %w", err)
	}
	store, err := local.NewStore(filepath.Join(dataDir, "userdata"))
	if err != nil {
		return fmt.Errorf("create local store: %w", err)
	}

	profiles := profile.NewStore(store)
	summaries := summary.NewStore(store)
	histories := history.NewStore(store)
	questions := question.NewStore()
	uploads := upload.NewCache()

	// Open the material index the daemon maintains; retrieval returns
	// nothing when no materials were indexed yet
	db, err := sqlite.Open(filepath.Join(dataDir, "index.db"))
	if err != nil {
		return fmt.Errorf("open material index: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate material index: %w", err)
	}
	materials := docindex.NewService(db.DB, nil, logger)

	// Create services
	tutoring := tutor.NewService(registry, profiles, summaries, histories, materials, uploads, logger)
	assessments := assessment.NewService(registry, profiles, questions, materials, uploads, logger)

	// Create MCP server
	mcpSrv := mcpserver.NewServer(mcpserver.Config{
		Tutoring:    tutoring,
		Assessments: assessments,
		Profiles:    profiles,
	})

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Serve on stdio
	return mcpSrv.ServeStdio(ctx)
}
