package job

import (
	"context"
	"encoding/json"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Job is one durable queue element. Jobs are selected for execution by
// ascending (priority, eligible_at, id) within their queue.
type Job struct {
	ID string `db:"id" json:"id"`

	QueueName types.QueueName `db:"queue_name" json:"queue_name"`

	// Kind routes the job to a handler within its queue
	Kind types.JobKind `db:"kind" json:"kind"`

	Payload json.RawMessage `db:"payload" json:"payload"`

	// Priority orders jobs within a queue; lower runs sooner
	Priority int `db:"priority" json:"priority"`

	EligibleAt time.Time `db:"eligible_at" json:"eligible_at"`

	Attempts    int `db:"attempts" json:"attempts"`
	MaxAttempts int `db:"max_attempts" json:"max_attempts"`

	JobStatus types.JobStatus `db:"job_status" json:"job_status"`

	ReservedBy    *string    `db:"reserved_by" json:"reserved_by,omitempty"`
	ReservedUntil *time.Time `db:"reserved_until" json:"reserved_until,omitempty"`

	// LastError is the error from the most recent failed attempt
	LastError *string `db:"last_error" json:"last_error,omitempty"`

	DeadLetterReason *string `db:"dead_letter_reason" json:"dead_letter_reason,omitempty"`

	types.BaseModel
}

// EnqueueOptions tunes a single enqueue
type EnqueueOptions struct {
	Priority    int
	Delay       time.Duration
	MaxAttempts int
}

// New creates a queued job from a payload
func New(ctx context.Context, queue types.QueueName, kind types.JobKind, payload interface{}, opts EnqueueOptions) (*Job, error) {
	if err := queue.Validate(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode job payload").
			Mark(ierr.ErrValidation)
	}

	priority := opts.Priority
	if priority <= 0 {
		priority = types.DefaultJobPriority
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	now := time.Now().UTC()
	return &Job{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JOB),
		QueueName:   queue,
		Kind:        kind,
		Payload:     raw,
		Priority:    priority,
		EligibleAt:  now.Add(opts.Delay),
		MaxAttempts: maxAttempts,
		JobStatus:   types.JobStatusQueued,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}, nil
}

// DecodePayload unmarshals the job payload into dest
func (j *Job) DecodePayload(dest interface{}) error {
	if err := json.Unmarshal(j.Payload, dest); err != nil {
		return ierr.WithError(err).
			WithHintf("Failed to decode payload for job %s", j.ID).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsReservedBy reports whether workerID currently holds a live reservation
func (j *Job) IsReservedBy(workerID string, now time.Time) bool {
	return j.JobStatus == types.JobStatusReserved &&
		j.ReservedBy != nil && *j.ReservedBy == workerID &&
		j.ReservedUntil != nil && j.ReservedUntil.After(now)
}

// QueueStats summarises one queue for the control API
type QueueStats struct {
	QueueName        types.QueueName `json:"queue_name"`
	Queued           int             `json:"queued"`
	Reserved         int             `json:"reserved"`
	Done             int             `json:"done"`
	Failed           int             `json:"failed"`
	OldestEligibleAt *time.Time      `json:"oldest_eligible_at,omitempty"`
	// ReservationLeaks counts reserved jobs whose reservation already expired,
	// a sign of a crashed worker.
	ReservationLeaks int `json:"reservation_leaks"`
}
