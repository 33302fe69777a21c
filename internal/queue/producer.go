package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sauravyadav1008/studybuddy/internal/tutor"
)

// publishTimeout bounds a single publish attempt.
const publishTimeout = 5 * time.Second

// Producer publishes post-chat jobs to the queue. It satisfies
// tutor.Dispatcher so the tutoring service can hand jobs straight to it.
type Producer struct {
	conn *Connection
}

// NewProducer creates a new queue producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn}
}

// DispatchPostChat publishes one post-chat job.
func (p *Producer) DispatchPostChat(job tutor.PostChatJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	msg := &Message{
		ID:        uuid.New(),
		Job:       job,
		CreatedAt: time.Now(),
	}

	if err := p.conn.PublishJSON(ctx, ChatQueueName, msg); err != nil {
		return fmt.Errorf("failed to publish post-chat job: %w", err)
	}

	slog.Info("published post-chat job",
		"message_id", msg.ID,
		"user_id", job.UserID,
		"session_id", job.SessionID,
	)

	return nil
}
