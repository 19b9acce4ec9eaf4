package dto

import (
	"time"

	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// TaskResponse is the API shape of a provisioning task
type TaskResponse struct {
	ID             string                       `json:"id"`
	SubscriptionID string                       `json:"subscription_id"`
	ServerID       string                       `json:"server_id,omitempty"`
	Status         types.ProvisioningTaskStatus `json:"status"`
	AttemptCount   int                          `json:"attempt_count"`
	MaxAttempts    int                          `json:"max_attempts"`
	LastError      string                       `json:"last_error,omitempty"`
	StartedAt      *time.Time                   `json:"started_at,omitempty"`
	FinishedAt     *time.Time                   `json:"finished_at,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
	UpdatedAt      time.Time                    `json:"updated_at"`
	StepLog        []StepRecordResponse         `json:"step_log,omitempty"`
}

// StepRecordResponse is one entry of a task's step log
type StepRecordResponse struct {
	StepKind     types.StepKind         `json:"step"`
	RecordKind   types.StepRecordKind   `json:"record_kind"`
	Status       types.StepStatus       `json:"status"`
	Sequence     int                    `json:"sequence"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   *time.Time             `json:"finished_at,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	ErrorCode    string                 `json:"error_code,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// ListTasksResponse is one page of tasks
type ListTasksResponse struct {
	Items []TaskResponse `json:"items"`
	Total int            `json:"total"`
}

// ReplayTaskResponse acknowledges an administrative replay
type ReplayTaskResponse struct {
	TaskID string `json:"task_id"`
	JobID  string `json:"job_id"`
}

// QueueStatsResponse summarises every queue
type QueueStatsResponse struct {
	Queues []*job.QueueStats `json:"queues"`
}

// ToTaskResponse converts a task, including its step log when withLog is set
func ToTaskResponse(task *provisioning.Task, withLog bool) TaskResponse {
	resp := TaskResponse{
		ID:             task.ID,
		SubscriptionID: task.SubscriptionID,
		ServerID:       task.ServerID,
		Status:         task.TaskStatus,
		AttemptCount:   task.AttemptCount,
		MaxAttempts:    task.MaxAttempts,
		LastError:      task.LastError,
		StartedAt:      task.StartedAt,
		FinishedAt:     task.FinishedAt,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}
	if withLog {
		resp.StepLog = lo.Map(task.StepLog, func(rec *provisioning.StepRecord, _ int) StepRecordResponse {
			return StepRecordResponse{
				StepKind:     rec.StepKind,
				RecordKind:   rec.RecordKind,
				Status:       rec.StepStatus,
				Sequence:     rec.Sequence,
				StartedAt:    rec.StartedAt,
				FinishedAt:   rec.FinishedAt,
				Result:       rec.Result,
				ErrorCode:    rec.ErrorCode,
				ErrorMessage: rec.ErrorMessage,
			}
		})
	}
	return resp
}
