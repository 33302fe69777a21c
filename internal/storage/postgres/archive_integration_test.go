//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/sauravyadav1008/studybuddy/internal/domain"
	"github.com/sauravyadav1008/studybuddy/internal/storage/postgres"
)

func setupArchive(t *testing.T) *postgres.ArchiveStore {
	t.Helper()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := postgres.NewConnection(ctx, databaseURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(conn.Close)

	if err := postgres.Migrate(ctx, conn); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store := postgres.NewArchiveStore(conn)
	t.Cleanup(func() {
		_ = store.DeleteUser(context.Background(), "it-alice")
	})
	return store
}

func TestIntegration_ProfileRoundtrip(t *testing.T) {
	store := setupArchive(t)
	ctx := context.Background()

	p := domain.NewUserProfile("it-alice")
	topic := p.Topic("Goroutines")
	topic.Mastery = 0.75
	topic.Attempted = 4
	topic.Correct = 3
	topic.Status = domain.StatusStrong
	p.DeriveLists()

	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile() error = %v", err)
	}

	// Upsert: a second save must not fail or duplicate.
	p.ConfidenceScore = 0.6
	if err := store.SaveProfile(ctx, p); err != nil {
		t.Fatalf("SaveProfile() second save error = %v", err)
	}

	got, err := store.GetProfile(ctx, "it-alice")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got.ConfidenceScore != 0.6 {
		t.Errorf("ConfidenceScore = %v, want 0.6", got.ConfidenceScore)
	}
	if got.Topics["Goroutines"].Mastery != 0.75 {
		t.Errorf("Mastery = %v", got.Topics["Goroutines"].Mastery)
	}
	if len(got.KnownConcepts) != 1 || got.KnownConcepts[0] != "Goroutines" {
		t.Errorf("KnownConcepts = %v", got.KnownConcepts)
	}
}

func TestIntegration_GetProfileMissing(t *testing.T) {
	store := setupArchive(t)

	_, err := store.GetProfile(context.Background(), "it-nobody")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("error = %v, want ErrProfileNotFound", err)
	}
}

func TestIntegration_SessionsNewestFirst(t *testing.T) {
	store := setupArchive(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		h := &domain.SessionHistory{
			SessionID: "s1",
			UserID:    "it-alice",
			Messages: []domain.ChatMessage{
				{Role: "user", Content: "q", Timestamp: base},
				{Role: "assistant", Content: "a", Timestamp: base},
			},
			TopicMastery: map[string]float64{"Goroutines": 0.5},
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveSession(ctx, h); err != nil {
			t.Fatalf("SaveSession() error = %v", err)
		}
	}

	sessions, err := store.ListSessions(ctx, "it-alice", 2)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if !sessions[0].CreatedAt.After(sessions[1].CreatedAt) {
		t.Error("sessions not newest first")
	}
	if sessions[0].TopicMastery["Goroutines"] != 0.5 {
		t.Errorf("TopicMastery = %v", sessions[0].TopicMastery)
	}
}
