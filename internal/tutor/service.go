// Package tutor orchestrates chat turns: context aggregation, prompt
// assembly, response generation, and the asynchronous post-turn work of
// gap detection and history archival.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/history"
	"github.com/sauravyadav1008/studybuddy/internal/llm"
	"github.com/sauravyadav1008/studybuddy/internal/profile"
	"github.com/sauravyadav1008/studybuddy/internal/summary"
	"github.com/sauravyadav1008/studybuddy/internal/upload"
)

// DefaultSessionID is used when a chat request carries no session id.
const DefaultSessionID = "default"

// postProcessTimeout bounds the asynchronous post-turn work.
const postProcessTimeout = 2 * time.Minute

// PostChatJob captures everything needed to finish a chat turn after the
// response has been delivered.
type PostChatJob struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Output    string `json:"output"`
}

// Dispatcher hands post-turn jobs off for asynchronous execution. A nil
// dispatcher makes the service run jobs on its own goroutine.
type Dispatcher interface {
	DispatchPostChat(job PostChatJob) error
}

// Archiver mirrors profile snapshots and session records to a secondary
// store. The local store stays authoritative; mirror failures are logged
// and never fail the turn.
type Archiver interface {
	SaveProfile(ctx context.Context, p *domain.UserProfile) error
	SaveSession(ctx context.Context, h *domain.SessionHistory) error
}

// ChatResult is the whole-response chat payload.
type ChatResult struct {
	Response       string             `json:"response"`
	MasteryUpdates map[string]float64 `json:"mastery_updates,omitempty"`
}

// Service handles tutoring operations
type Service struct {
	agent      *Agent
	aggregator *Aggregator
	gaps       *GapDetector
	histories  *history.Store
	profiles   *profile.Store
	summaries  *summary.Store
	uploads    *upload.Cache
	dispatcher Dispatcher
	archiver   Archiver
	logger     *slog.Logger
}

// NewService creates a new tutoring service
func NewService(
	registry *llm.Registry,
	profiles *profile.Store,
	summaries *summary.Store,
	histories *history.Store,
	retriever Retriever,
	uploads *upload.Cache,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		agent:      NewAgent(registry, logger),
		aggregator: NewAggregator(profiles, summaries, retriever, uploads, logger),
		gaps:       NewGapDetector(registry, profiles, logger),
		histories:  histories,
		profiles:   profiles,
		summaries:  summaries,
		uploads:    uploads,
		logger:     logger,
	}
}

// SetDispatcher routes post-turn jobs through the given dispatcher instead
// of an in-process goroutine.
func (s *Service) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// SetArchiver mirrors post-turn writes to the given secondary store.
func (s *Service) SetArchiver(a Archiver) {
	s.archiver = a
}

// Respond performs a whole-response chat turn. Post-turn work is scheduled
// before returning and never blocks the response.
func (s *Service) Respond(ctx context.Context, userID, message, sessionID string) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	bundle, err := s.aggregator.Gather(ctx, userID, message)
	if err != nil {
		return nil, fmt.Errorf("gather context: %w", err)
	}

	output, err := s.agent.Run(ctx, &RunRequest{
		UserID:   userID,
		Input:    message,
		Profile:  bundle.Profile,
		Summary:  bundle.Summary,
		Context:  bundle.Context,
		FileMode: bundle.FileMode,
	})
	if err != nil {
		return nil, err
	}

	s.schedule(PostChatJob{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Output:    output,
	})

	return &ChatResult{
		Response:       output,
		MasteryUpdates: bundle.Profile.TopicMastery(),
	}, nil
}

// RespondStream performs a streaming chat turn. Post-turn work is scheduled
// only once the stream has been exhausted without error.
func (s *Service) RespondStream(ctx context.Context, userID, message, sessionID string) (<-chan llm.StreamChunk, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	bundle, err := s.aggregator.Gather(ctx, userID, message)
	if err != nil {
		return nil, fmt.Errorf("gather context: %w", err)
	}

	return s.agent.Stream(ctx, &RunRequest{
		UserID:   userID,
		Input:    message,
		Profile:  bundle.Profile,
		Summary:  bundle.Summary,
		Context:  bundle.Context,
		FileMode: bundle.FileMode,
	}, func(full string) {
		s.schedule(PostChatJob{
			UserID:    userID,
			SessionID: sessionID,
			Message:   message,
			Output:    full,
		})
	})
}

// PostProcess runs the post-turn work for one job: gap detection against
// the turn, then an archival write of the exchange with a snapshot of the
// resulting mastery state. Each step failing is logged and does not stop
// the others.
func (s *Service) PostProcess(ctx context.Context, job PostChatJob) error {
	transcript := fmt.Sprintf("User: %s\nAssistant: %s", job.Message, job.Output)

	if err := s.gaps.AnalyzeAndUpdate(ctx, job.UserID, job.Message, transcript); err != nil {
		s.logger.Error("gap detection failed", "user_id", job.UserID, "error", err)
	}

	p, err := s.profiles.GetOrCreate(job.UserID)
	if err != nil {
		return fmt.Errorf("load profile for archive: %w", err)
	}

	now := time.Now()
	h, err := s.histories.Append(p, job.SessionID,
		domain.ChatMessage{Role: "user", Content: job.Message, Timestamp: now},
		domain.ChatMessage{Role: "assistant", Content: job.Output, Timestamp: now},
	)
	if err != nil {
		return fmt.Errorf("archive session: %w", err)
	}

	if s.archiver != nil {
		if err := s.archiver.SaveProfile(ctx, p); err != nil {
			s.logger.Error("profile mirror failed", "user_id", job.UserID, "error", err)
		}
		if err := s.archiver.SaveSession(ctx, h); err != nil {
			s.logger.Error("session mirror failed", "user_id", job.UserID, "error", err)
		}
	}
	return nil
}

// Reset starts the user over: conversation window, on-disk history, profile,
// summary, and upload cache are all cleared. The fresh profile carries a new
// session id.
func (s *Service) Reset(ctx context.Context, userID string) error {
	s.agent.ClearMemory(userID)

	if err := s.histories.Clear(userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := s.profiles.Reset(userID); err != nil {
		return fmt.Errorf("reset profile: %w", err)
	}
	if err := s.summaries.Clear(userID); err != nil {
		return fmt.Errorf("clear summary: %w", err)
	}
	s.uploads.Clear(userID)

	s.logger.Info("user reset", "user_id", userID)
	return nil
}

// schedule hands the job to the dispatcher, falling back to an in-process
// goroutine. Jobs are fire-and-forget; failures are logged only.
func (s *Service) schedule(job PostChatJob) {
	if s.dispatcher != nil {
		err := s.dispatcher.DispatchPostChat(job)
		if err == nil {
			return
		}
		s.logger.Warn("dispatch failed, running inline", "user_id", job.UserID, "error", err)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), postProcessTimeout)
		defer cancel()
		if err := s.PostProcess(ctx, job); err != nil {
			s.logger.Error("post-turn processing failed", "user_id", job.UserID, "error", err)
		}
	}()
}
