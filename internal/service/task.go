package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/types"
)

// taskReplayTTL bounds how long a replay request for one (task, attempt) pair
// stays deduplicated
const taskReplayTTL = 24 * time.Hour

// TaskControlService is the administrative surface over provisioning tasks
// and the job queues.
type TaskControlService interface {
	ListTasks(ctx context.Context, filter *types.ProvisioningTaskFilter) (*ListTasksResponse, error)
	// GetTask returns the task with its full ordered step log
	GetTask(ctx context.Context, id string) (*provisioning.Task, error)
	// ReplayTask re-queues a failed or dead-lettered task. Succeeded steps are
	// preserved and skipped on the re-run.
	ReplayTask(ctx context.Context, id string) (*ReplayOutcome, error)
	// QueueStats summarises every queue by job status
	QueueStats(ctx context.Context) ([]*job.QueueStats, error)
	// ForgetIdempotency drops one idempotency record so its operation can run
	// again
	ForgetIdempotency(ctx context.Context, scope, key string) error
}

// ListTasksResponse pairs one page of tasks with the unpaged total
type ListTasksResponse struct {
	Items []*provisioning.Task `json:"items"`
	Total int                  `json:"total"`
}

// ReplayOutcome is the stored result of one replay request
type ReplayOutcome struct {
	TaskID   string `json:"task_id"`
	JobID    string `json:"job_id"`
	Replayed bool   `json:"-"`
}

type taskControlService struct {
	ServiceParams
}

// NewTaskControlService creates the task control service
func NewTaskControlService(params ServiceParams) TaskControlService {
	return &taskControlService{ServiceParams: params}
}

func (s *taskControlService) ListTasks(ctx context.Context, filter *types.ProvisioningTaskFilter) (*ListTasksResponse, error) {
	if filter == nil {
		filter = types.NewProvisioningTaskFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, err := s.TaskRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.TaskRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListTasksResponse{Items: items, Total: total}, nil
}

func (s *taskControlService) GetTask(ctx context.Context, id string) (*provisioning.Task, error) {
	return s.TaskRepo.Get(ctx, id)
}

func (s *taskControlService) ReplayTask(ctx context.Context, id string) (*ReplayOutcome, error) {
	task, err := s.TaskRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.CanReplay() {
		return nil, ierr.NewError("task is not replayable").
			WithHintf("Only failed or dead-lettered tasks can be replayed; task %s is %s", task.ID, task.TaskStatus).
			WithReportableDetails(map[string]any{
				"task_id": task.ID,
				"status":  task.TaskStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	// Keyed by attempt count so a second replay after the re-run fails again
	// is a fresh request, while double-submits of the same replay collapse.
	replayKey := fmt.Sprintf("%s:%d", task.ID, task.AttemptCount)

	outcome, replayed, err := s.IdempotencyStore.Remember(
		ctx, idempotency.ScopeTaskReplay, replayKey, taskReplayTTL,
		func(txCtx context.Context) ([]byte, error) {
			return s.requeue(txCtx, task)
		},
	)
	if err != nil {
		return nil, err
	}

	var result ReplayOutcome
	if err := json.Unmarshal(outcome, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode stored replay outcome").
			Mark(ierr.ErrSystem)
	}
	result.Replayed = replayed

	s.Logger.Infow("replayed provisioning task",
		"task_id", task.ID,
		"job_id", result.JobID,
		"deduplicated", replayed,
	)
	return &result, nil
}

// requeue resets the task and enqueues a fresh provisioning job. The step log
// is preserved so the re-run skips steps that already succeeded, and the
// customer credential is rotated so the notify step has a secret to deliver.
func (s *taskControlService) requeue(ctx context.Context, task *provisioning.Task) ([]byte, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, task.SubscriptionID)
	if err != nil {
		return nil, err
	}
	cust, err := s.CustomerRepo.Get(ctx, sub.CustomerID)
	if err != nil {
		return nil, err
	}

	domain, username, err := s.resolveSite(ctx, task, sub.Metadata)
	if err != nil {
		return nil, err
	}

	tempPassword, err := rotateCredential(ctx, s.ServiceParams, cust)
	if err != nil {
		return nil, err
	}

	// Replay is the sanctioned exit from a terminal status, so the fields are
	// reset directly rather than through TransitionTo.
	task.TaskStatus = types.ProvisioningTaskStatusQueued
	task.AttemptCount = 0
	task.LastError = ""
	task.FinishedAt = nil
	if err := s.TaskRepo.Update(ctx, task); err != nil {
		return nil, err
	}

	j, err := s.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&ProvisionJobPayload{
			TaskID:            task.ID,
			SubscriptionID:    sub.ID,
			CustomerID:        cust.ID,
			Domain:            domain,
			Username:          username,
			TemporaryPassword: tempPassword,
		},
		job.EnqueueOptions{
			Priority:    types.ProvisioningJobPriority,
			MaxAttempts: task.MaxAttempts,
		},
	)
	if err != nil {
		return nil, err
	}

	return json.Marshal(&ReplayOutcome{TaskID: task.ID, JobID: j.ID})
}

// resolveSite recovers the domain and username for a replay. When the first
// run got far enough to create the website row, its domain is authoritative;
// otherwise the domain comes from the checkout session that opened the
// subscription. The username is derived fresh either way: if the account step
// already succeeded its idempotency key makes the adapter return the original
// account regardless.
func (s *taskControlService) resolveSite(ctx context.Context, task *provisioning.Task, subMetadata map[string]string) (string, string, error) {
	var domain string

	site, err := s.WebsiteRepo.GetBySubscriptionID(ctx, task.SubscriptionID)
	switch {
	case err == nil:
		domain = site.Domain
	case ierr.IsNotFound(err):
		checkoutID, ok := subMetadata["checkout_id"]
		if !ok {
			return "", "", ierr.NewError("cannot recover domain for replay").
				WithHintf("Task %s has neither a website nor a checkout reference", task.ID).
				Mark(ierr.ErrInvalidOperation)
		}
		session, serr := s.CheckoutRepo.Get(ctx, checkoutID)
		if serr != nil {
			return "", "", serr
		}
		domain = session.Domain
	default:
		return "", "", err
	}

	username, err := deriveUsername(ctx, s.ServiceParams, domain)
	if err != nil {
		return "", "", err
	}
	return domain, username, nil
}

func (s *taskControlService) QueueStats(ctx context.Context) ([]*job.QueueStats, error) {
	stats := make([]*job.QueueStats, 0, len(types.QueueNames))
	for _, queue := range types.QueueNames {
		st, err := s.Queue.Stats(ctx, queue)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func (s *taskControlService) ForgetIdempotency(ctx context.Context, scope, key string) error {
	switch idempotency.Scope(scope) {
	case idempotency.ScopeWebhook, idempotency.ScopeSweep, idempotency.ScopeStep, idempotency.ScopeTaskReplay:
	default:
		return ierr.NewError("unknown idempotency scope").
			WithHintf("Scope %s is not recognised", scope).
			Mark(ierr.ErrValidation)
	}
	return s.IdempotencyStore.Forget(ctx, idempotency.Scope(scope), key)
}
