package job

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/types"
)

// Repository defines the durable queue storage operations. The job table
// lives in the same transactional store as the domain data so enqueues can
// join the transaction that creates the triggering rows.
type Repository interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)

	// Claim atomically moves up to count eligible jobs of the queue to
	// reserved for workerID with reserved_until = now + ttl. Selection order
	// is ascending (priority, eligible_at, id).
	Claim(ctx context.Context, queue types.QueueName, workerID string, count int, ttl time.Duration) ([]*Job, error)

	// Complete transitions a reserved job to done. Fails with
	// ErrReservationLost if workerID no longer holds the reservation.
	Complete(ctx context.Context, id, workerID string) error

	// FailRetry schedules the next attempt: eligible_at = now + delay,
	// status back to queued. Fails with ErrReservationLost when the
	// reservation is gone.
	FailRetry(ctx context.Context, id, workerID string, lastError string, delay time.Duration) error

	// FailDead dead-letters the job with the given reason.
	FailDead(ctx context.Context, id, workerID string, reason string) error

	// Extend lengthens a live reservation by ttl from now.
	Extend(ctx context.Context, id, workerID string, ttl time.Duration) error

	// Replay moves a failed job back to queued with attempts reset to 0.
	Replay(ctx context.Context, id string) error

	// Stats summarises one queue by status.
	Stats(ctx context.Context, queue types.QueueName) (*QueueStats, error)
}
