package interfaces

import (
	"context"
	"time"

	"github.com/brandlens/brandlens/internal/models"
)

// ReceivedMessage is a claimed queue message plus its delivery metadata
type ReceivedMessage struct {
	ID           string
	Task         models.TaskMessage
	ReceiveCount int
}

// QueueManager is an at-least-once durable queue with visibility timeouts.
// A claimed message is invisible until deleted, released, or its visibility
// timeout elapses (crash recovery redelivery).
type QueueManager interface {
	Enqueue(ctx context.Context, queue string, msg models.TaskMessage) error
	// EnqueueWithDelay makes the message visible only after delay; used for
	// the sequential inter-engine stagger and retry backoff.
	EnqueueWithDelay(ctx context.Context, queue string, msg models.TaskMessage, delay time.Duration) error
	// Receive claims the next visible message or returns models.ErrNoMessage
	Receive(ctx context.Context, queue string) (*ReceivedMessage, error)
	// Delete acknowledges successful processing
	Delete(ctx context.Context, queue string, messageID string) error
	// Release returns a failed message to the queue, visible after delay
	Release(ctx context.Context, queue string, messageID string, delay time.Duration) error
	Depth(ctx context.Context, queue string) (int, error)
}
