package queue

import "context"

// Job consumes messages of one type from the queue. The router registers
// a Job per retryable delivery so failed writes drain back through the
// same code path as live ones.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes one dequeued payload.
	Handle(ctx context.Context, payload interface{}) error
}
