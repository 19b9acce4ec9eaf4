package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/domain/job"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/types"
)

// Handler processes one job. A nil return completes the job; an error marked
// ErrAdapterFatal dead-letters it immediately, any other error schedules a
// retry until max attempts.
type Handler func(ctx context.Context, j *job.Job) error

// Pool runs the per-queue worker goroutines. Handlers are registered by job
// kind before Start; a job whose kind has no handler is dead-lettered.
type Pool struct {
	repo   job.Repository
	cfg    config.QueueConfig
	logger *logger.Logger

	mu       sync.RWMutex
	handlers map[types.JobKind]Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool over the job repository
func NewPool(repo job.Repository, cfg config.QueueConfig, logger *logger.Logger) *Pool {
	return &Pool{
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[types.JobKind]Handler),
	}
}

// RegisterHandler binds a job kind to its handler
func (p *Pool) RegisterHandler(kind types.JobKind, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

// Start launches the configured number of workers per queue
func (p *Pool) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	for _, queue := range types.QueueNames {
		for i := 0; i < p.cfg.WorkersFor(queue); i++ {
			workerID := fmt.Sprintf("%s-worker-%s", queue, types.GenerateShortIDWithPrefix(""))
			p.wg.Add(1)
			go p.run(ctx, queue, workerID)
		}
	}
}

// Stop cancels every worker and waits for in-flight jobs to settle
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, queue types.QueueName, workerID string) {
	defer p.wg.Done()

	// Idle backpressure: back off up to 30s while the queue is empty, reset
	// as soon as a claim returns work.
	idle := backoff.NewExponentialBackOff()
	idle.InitialInterval = 250 * time.Millisecond
	idle.MaxInterval = 30 * time.Second
	idle.MaxElapsedTime = 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobs, err := p.repo.Claim(ctx, queue, workerID, 1, p.cfg.GetReservationTTL())
		if err != nil {
			p.logger.Errorw("failed to claim jobs", "queue", queue, "worker_id", workerID, "error", err)
			p.sleep(ctx, idle.NextBackOff())
			continue
		}
		if len(jobs) == 0 {
			p.sleep(ctx, idle.NextBackOff())
			continue
		}
		idle.Reset()

		for _, j := range jobs {
			p.process(ctx, j, workerID)
		}
	}
}

func (p *Pool) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (p *Pool) process(ctx context.Context, j *job.Job, workerID string) {
	// Job context: the tenant the job was enqueued under, the worker
	// identity, and the per-job execution deadline.
	// bookCtx has no deadline so bookkeeping still works after a handler
	// burns through the whole job deadline.
	bookCtx := types.SetTenantID(ctx, j.TenantID)
	bookCtx = types.SetUserID(bookCtx, j.CreatedBy)
	bookCtx = types.SetWorkerID(bookCtx, workerID)

	jobCtx, cancel := context.WithTimeout(bookCtx, p.cfg.GetTaskDeadline())
	defer cancel()

	heartbeatDone := p.startHeartbeat(jobCtx, j.ID, workerID)
	defer close(heartbeatDone)

	p.mu.RLock()
	handler, ok := p.handlers[j.Kind]
	p.mu.RUnlock()
	if !ok {
		p.logger.Errorw("no handler for job kind", "job_id", j.ID, "kind", j.Kind)
		p.finish(bookCtx, j, workerID, fmt.Sprintf("no handler registered for kind %s", j.Kind), true)
		return
	}

	err := handler(jobCtx, j)
	if err == nil {
		if completeErr := p.repo.Complete(bookCtx, j.ID, workerID); completeErr != nil {
			p.logger.Errorw("failed to complete job", "job_id", j.ID, "error", completeErr)
		}
		return
	}

	if ierr.IsReservationLost(err) {
		// Another worker reclaimed the job after our reservation expired;
		// its run owns the outcome now.
		p.logger.Warnw("job reservation lost mid-run", "job_id", j.ID, "worker_id", workerID)
		return
	}

	fatal := ierr.IsFatal(err)
	p.logger.Errorw("job handler failed",
		"job_id", j.ID,
		"kind", j.Kind,
		"attempt", j.Attempts,
		"fatal", fatal,
		"error", err,
	)
	p.finish(bookCtx, j, workerID, err.Error(), fatal)
}

func (p *Pool) finish(ctx context.Context, j *job.Job, workerID, errMsg string, fatal bool) {
	if fatal {
		if err := p.repo.FailDead(ctx, j.ID, workerID, errMsg); err != nil {
			p.logger.Errorw("failed to dead-letter job", "job_id", j.ID, "error", err)
		}
		return
	}

	if j.Attempts >= j.MaxAttempts {
		reason := fmt.Sprintf("max attempts (%d) exhausted: %s", j.MaxAttempts, errMsg)
		if err := p.repo.FailDead(ctx, j.ID, workerID, reason); err != nil {
			p.logger.Errorw("failed to dead-letter job", "job_id", j.ID, "error", err)
		}
		return
	}

	delay := RetryDelay(j.Attempts, p.cfg.GetBackoffBase(), p.cfg.GetBackoffMax())
	if err := p.repo.FailRetry(ctx, j.ID, workerID, errMsg, delay); err != nil {
		p.logger.Errorw("failed to schedule job retry", "job_id", j.ID, "error", err)
	}
}

// startHeartbeat extends the reservation at half-TTL intervals while the
// handler runs. The returned channel stops the heartbeat when closed.
func (p *Pool) startHeartbeat(ctx context.Context, jobID, workerID string) chan struct{} {
	done := make(chan struct{})
	interval := p.cfg.GetReservationTTL() / 2

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.repo.Extend(ctx, jobID, workerID, p.cfg.GetReservationTTL()); err != nil {
					p.logger.Warnw("failed to extend job reservation", "job_id", jobID, "error", err)
					return
				}
			}
		}
	}()
	return done
}
