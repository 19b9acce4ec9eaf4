package queue

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/types"
)

// Service enqueues durable jobs. Because the job table shares the
// transactional store with the domain tables, an Enqueue inside WithTx
// commits atomically with the rows that triggered it.
type Service struct {
	repo   job.Repository
	logger *logger.Logger
}

// NewService creates a queue service
func NewService(repo job.Repository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Enqueue creates a queued job carrying the payload
func (s *Service) Enqueue(ctx context.Context, queue types.QueueName, kind types.JobKind, payload interface{}, opts job.EnqueueOptions) (*job.Job, error) {
	j, err := job.New(ctx, queue, kind, payload, opts)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.logger.Debugw("enqueued job",
		"job_id", j.ID,
		"queue", j.QueueName,
		"kind", j.Kind,
		"eligible_at", j.EligibleAt,
	)
	return j, nil
}

// Stats summarises one queue by status
func (s *Service) Stats(ctx context.Context, queue types.QueueName) (*job.QueueStats, error) {
	return s.repo.Stats(ctx, queue)
}

// Replay moves a failed job back to queued with attempts reset
func (s *Service) Replay(ctx context.Context, jobID string) error {
	return s.repo.Replay(ctx, jobID)
}
