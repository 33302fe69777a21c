package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sauravyadav1008/studybuddy/internal/config"
	"github.com/sauravyadav1008/studybuddy/internal/docindex"
	"github.com/sauravyadav1008/studybuddy/internal/storage/sqlite"
)

// cmdIngest indexes study materials into the retrieval index. It writes the
// same index.db the daemon reads; WAL mode keeps concurrent access safe.
func cmdIngest(args []string) error {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dataDir, err := config.EnsureStudybuddyDir()
	if err != nil {
		return fmt.Errorf("setup studybuddy dir: %w", err)
	}

	materialsPath := cfg.Materials.Path
	if len(args) > 0 {
		materialsPath = args[0]
	}
	if !filepath.IsAbs(materialsPath) {
		materialsPath = filepath.Join(dataDir, materialsPath)
	}
	if _, err := os.Stat(materialsPath); os.IsNotExist(err) {
		return fmt.Errorf("materials directory not found: %s", materialsPath)
	}

	db, err := sqlite.Open(filepath.Join(dataDir, "index.db"))
	if err != nil {
		return fmt.Errorf("open material index: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate material index: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	materials := docindex.NewService(db.DB, nil, logger)

	fmt.Printf("Indexing %s...\n", materialsPath)
	result, err := materials.IndexDirectory(context.Background(), materialsPath)
	if err != nil {
		return fmt.Errorf("index materials: %w", err)
	}

	fmt.Printf("✓ %d materials found, %d indexed, %d unchanged, %d sections embedded\n",
		result.MaterialsFound, result.MaterialsIndexed, result.MaterialsSkipped, result.SectionsEmbedded)
	if result.Errors > 0 {
		fmt.Printf("⚠ %d files failed to index (see warnings above)\n", result.Errors)
	}
	return nil
}
