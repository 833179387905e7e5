package queue

import (
	"context"
	"time"
)

// MessageInterface defines the interface for queue messages
// This enables better testability by allowing mock implementations
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// Enqueuer is the publishing side, used by the API server and the scheduler
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobQueue is the interface for job queues
type JobQueue interface {
	Enqueuer

	// Consume returns a channel of messages from the queue.
	// The caller is responsible for acknowledging each message.
	// Prefetch controls how many unacknowledged messages each consumer can hold.
	// The message channel is closed when the context is cancelled or the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan MessageInterface, <-chan error, error)

	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than retention and returns how many were dropped.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
