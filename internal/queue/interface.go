package queue

import (
	"context"
)

// MessageInterface is the consumer-side view of a delivered job. Handlers
// settle each message exactly once with Ack or Nack.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the broker surface the API and worker share: the API enqueues
// provisioning and login-record jobs, the worker consumes them.
type JobQueue interface {
	// Enqueue publishes a job, honoring its NotBefore/NotAfter window.
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue pulls one message, or nil when the queue is empty. The caller
	// settles the message.
	// DEPRECATED: Use Consume, which avoids polling.
	Dequeue(ctx context.Context) (*Message, error)

	// Consume streams messages until ctx is cancelled. prefetchCount bounds
	// the unacked messages held at once; the caller settles each message.
	// Both channels close when the stream ends.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close releases the broker connection.
	Close() error

	// HealthCheck reports whether the broker connection is usable.
	HealthCheck(ctx context.Context) error
}
