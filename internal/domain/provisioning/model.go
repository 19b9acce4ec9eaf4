package provisioning

import (
	"context"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Task is one execution of the six-step provisioning workflow for one
// subscription. Terminal statuses are frozen; at most one task per
// subscription is running at a time.
type Task struct {
	ID string `db:"id" json:"id"`

	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// ServerID is decided when the orchestrator first starts the task
	ServerID string `db:"server_id" json:"server_id"`

	TaskStatus types.ProvisioningTaskStatus `db:"task_status" json:"task_status"`

	AttemptCount int `db:"attempt_count" json:"attempt_count"`
	MaxAttempts  int `db:"max_attempts" json:"max_attempts"`

	StartedAt  *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	LastError string `db:"last_error" json:"last_error,omitempty"`

	// StepLog is the append-only ordered list of step records
	StepLog []*StepRecord `db:"-" json:"step_log"`

	types.BaseModel
}

// StepRecord is one attempt at one step within a task. The log is
// append-only: retries append new records rather than mutating old ones.
type StepRecord struct {
	ID string `db:"id" json:"id"`

	TaskID string `db:"task_id" json:"task_id"`

	StepKind types.StepKind `db:"step_kind" json:"step_kind"`

	// RecordKind distinguishes forward execution from compensation entries
	RecordKind types.StepRecordKind `db:"record_kind" json:"record_kind"`

	StepStatus types.StepStatus `db:"step_status" json:"step_status"`

	// Sequence orders the log within a task
	Sequence int `db:"sequence" json:"sequence"`

	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`

	// Result holds adapter outputs such as account id or zone id. Secrets are
	// never stored here; the notify step records only notified=true.
	Result map[string]interface{} `db:"-" json:"result,omitempty"`

	ErrorCode    string `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage string `db:"error_message" json:"error_message,omitempty"`

	IdempotencyKey string `db:"idempotency_key" json:"idempotency_key"`
}

// NewTask creates a queued task for a subscription
func NewTask(ctx context.Context, subscriptionID string, maxAttempts int) *Task {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Task{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PROVISIONING_TASK),
		SubscriptionID: subscriptionID,
		TaskStatus:     types.ProvisioningTaskStatusQueued,
		MaxAttempts:    maxAttempts,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// TransitionTo enforces that terminal task statuses never change
func (t *Task) TransitionTo(target types.ProvisioningTaskStatus) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if t.TaskStatus.IsTerminal() {
		return ierr.NewError("task is in a terminal state").
			WithHintf("Task %s is already %s", t.ID, t.TaskStatus).
			WithReportableDetails(map[string]any{
				"task_id": t.ID,
				"status":  t.TaskStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	t.TaskStatus = target
	return nil
}

// SucceededSteps returns the set of step kinds whose latest execute record
// succeeded; the orchestrator skips these on resume.
func (t *Task) SucceededSteps() map[types.StepKind]*StepRecord {
	succeeded := make(map[types.StepKind]*StepRecord)
	for _, rec := range t.StepLog {
		if rec.RecordKind != types.StepRecordKindExecute {
			continue
		}
		if rec.StepStatus == types.StepStatusSucceeded {
			succeeded[rec.StepKind] = rec
		}
	}
	return succeeded
}

// NextSequence returns the sequence number for the next appended record
func (t *Task) NextSequence() int {
	max := 0
	for _, rec := range t.StepLog {
		if rec.Sequence > max {
			max = rec.Sequence
		}
	}
	return max + 1
}

// CanReplay reports whether the task is eligible for administrative replay
func (t *Task) CanReplay() bool {
	return t.TaskStatus == types.ProvisioningTaskStatusFailed ||
		t.TaskStatus == types.ProvisioningTaskStatusDeadLettered
}
