package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/extract"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
)

// GapDetector classifies a finished chat turn into learning signals and
// folds them into the profile. It runs after the response has been
// delivered; a failure here never surfaces to the learner.
type GapDetector struct {
	registry *llm.Registry
	profiles *profile.Store
	parser   *extract.Parser
	prompter *Prompter
	logger   *slog.Logger
}

// NewGapDetector creates a new gap detector
func NewGapDetector(registry *llm.Registry, profiles *profile.Store, logger *slog.Logger) *GapDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &GapDetector{
		registry: registry,
		profiles: profiles,
		parser:   extract.NewParser(),
		prompter: NewPrompter(),
		logger:   logger,
	}
}

// AnalyzeAndUpdate runs the gap-detection prompt over the turn and applies
// the result to the user's profile. Classification runs at temperature 0.
func (d *GapDetector) AnalyzeAndUpdate(ctx context.Context, userID, input, transcript string) error {
	provider, err := d.registry.Default()
	if err != nil {
		return fmt.Errorf("get LLM provider: %w", err)
	}

	resp, err := provider.Generate(ctx, &llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: d.prompter.GapPrompt(input, transcript)},
		},
		Temperature: 0,
	})
	if err != nil {
		return fmt.Errorf("gap analysis: %w", err)
	}

	raw, err := d.parser.Object(resp.Content)
	if err != nil {
		return fmt.Errorf("parse gap analysis: %w", err)
	}

	var analysis domain.GapAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return fmt.Errorf("decode gap analysis: %w", err)
	}

	_, err = d.profiles.Update(userID, func(p *domain.UserProfile) error {
		profile.ApplyAnalysis(p, &analysis, time.Now())
		return nil
	})
	if err != nil {
		return fmt.Errorf("apply gap analysis: %w", err)
	}

	d.logger.Debug("gap analysis applied",
		"user_id", userID,
		"new_concepts", len(analysis.NewConcepts),
		"weak_areas", len(analysis.WeakAreas))
	return nil
}
