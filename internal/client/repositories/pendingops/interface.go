// Package pendingops persists the durable FIFO queue of operations awaiting
// replay against the backend.
package pendingops

import (
	"context"
	"time"

	"github.com/mpetrovs/tabchat/internal/client/models"
)

// Repository is the durable queue. Implementations must keep FIFO order and
// survive process restart. The queue has a single consumer (one device, one
// session) but concurrent enqueue calls must serialize.
type Repository interface {
	// Enqueue appends the operation to the end of the queue.
	Enqueue(ctx context.Context, op *models.PendingOperation) error

	// TakeReady atomically removes and returns, in original enqueue order,
	// every queued operation whose backoff deadline is at or before now.
	// Operations still backing off remain queued.
	TakeReady(ctx context.Context, now time.Time) ([]*models.PendingOperation, error)

	// Requeue appends a failed operation back to the queue with an
	// incremented attempt counter and the given backoff deadline.
	Requeue(ctx context.Context, op *models.PendingOperation, nextAttempt time.Time) error

	// Count returns the number of queued operations.
	Count(ctx context.Context) (int, error)
}
