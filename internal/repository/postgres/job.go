package postgres

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/job"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/lib/pq"
)

type jobRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewJobRepository(client postgres.IClient, logger *logger.Logger) job.Repository {
	return &jobRepository{client: client, logger: logger}
}

func (r *jobRepository) Create(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO jobs (
			id, queue_name, kind, payload, priority, eligible_at,
			attempts, max_attempts, job_status, reserved_by, reserved_until,
			last_error, dead_letter_reason,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :queue_name, :kind, :payload, :priority, :eligible_at,
			:attempts, :max_attempts, :job_status, :reserved_by, :reserved_until,
			:last_error, :dead_letter_reason,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, j)
	return wrapErr(err, "Failed to enqueue job")
}

func (r *jobRepository) Get(ctx context.Context, id string) (*job.Job, error) {
	var j job.Job
	query := `SELECT * FROM jobs WHERE id = $1`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &j, query, id); err != nil {
		return nil, wrapErr(err, "Job not found")
	}
	return &j, nil
}

// Claim reserves up to count eligible jobs for workerID. Workers run across
// tenants, so there is no tenant filter; the dispatcher restores tenant
// context from the job row. Expired reservations are claimable again, which
// is how jobs from crashed workers get reclaimed.
func (r *jobRepository) Claim(ctx context.Context, queue types.QueueName, workerID string, count int, ttl time.Duration) ([]*job.Job, error) {
	now := time.Now().UTC()
	query := `
		UPDATE jobs SET
			job_status = $1,
			reserved_by = $2,
			reserved_until = $3,
			attempts = attempts + 1,
			updated_at = $4
		WHERE id IN (
			SELECT id FROM jobs
			WHERE queue_name = $5
			  AND eligible_at <= $4
			  AND (job_status = $6 OR (job_status = $1 AND reserved_until < $4))
			ORDER BY priority ASC, eligible_at ASC, id ASC
			LIMIT $7
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`

	rows, err := r.client.GetQuerier(ctx).QueryContext(ctx, query,
		types.JobStatusReserved, workerID, now.Add(ttl), now,
		queue, types.JobStatusQueued, count)
	if err != nil {
		return nil, wrapErr(err, "Failed to claim jobs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr(err, "Failed to claim jobs")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "Failed to claim jobs")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	return r.getMany(ctx, ids)
}

func (r *jobRepository) getMany(ctx context.Context, ids []string) ([]*job.Job, error) {
	var jobs []*job.Job
	query := `
		SELECT * FROM jobs
		WHERE id = ANY($1)
		ORDER BY priority ASC, eligible_at ASC, id ASC`
	if err := r.client.GetQuerier(ctx).SelectContext(ctx, &jobs, query, pq.Array(ids)); err != nil {
		return nil, wrapErr(err, "Failed to load claimed jobs")
	}
	return jobs, nil
}

func (r *jobRepository) Complete(ctx context.Context, id, workerID string) error {
	query := `
		UPDATE jobs SET
			job_status = $1,
			reserved_by = NULL,
			reserved_until = NULL,
			updated_at = $2
		WHERE id = $3 AND job_status = $4 AND reserved_by = $5 AND reserved_until > $2`

	return r.finishReserved(ctx, query,
		types.JobStatusDone, time.Now().UTC(), id, types.JobStatusReserved, workerID)
}

func (r *jobRepository) FailRetry(ctx context.Context, id, workerID string, lastError string, delay time.Duration) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs SET
			job_status = $1,
			eligible_at = $2,
			last_error = $3,
			reserved_by = NULL,
			reserved_until = NULL,
			updated_at = $4
		WHERE id = $5 AND job_status = $6 AND reserved_by = $7 AND reserved_until > $4`

	return r.finishReserved(ctx, query,
		types.JobStatusQueued, now.Add(delay), lastError, now, id, types.JobStatusReserved, workerID)
}

func (r *jobRepository) FailDead(ctx context.Context, id, workerID string, reason string) error {
	query := `
		UPDATE jobs SET
			job_status = $1,
			dead_letter_reason = $2,
			reserved_by = NULL,
			reserved_until = NULL,
			updated_at = $3
		WHERE id = $4 AND job_status = $5 AND reserved_by = $6 AND reserved_until > $3`

	return r.finishReserved(ctx, query,
		types.JobStatusFailed, reason, time.Now().UTC(), id, types.JobStatusReserved, workerID)
}

func (r *jobRepository) Extend(ctx context.Context, id, workerID string, ttl time.Duration) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs SET
			reserved_until = $1,
			updated_at = $2
		WHERE id = $3 AND job_status = $4 AND reserved_by = $5 AND reserved_until > $2`

	return r.finishReserved(ctx, query,
		now.Add(ttl), now, id, types.JobStatusReserved, workerID)
}

// finishReserved runs an update that requires a live reservation and folds a
// zero row count into ErrReservationLost.
func (r *jobRepository) finishReserved(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.client.GetQuerier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return wrapErr(err, "Failed to update job")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "Failed to update job")
	}
	if n == 0 {
		return ierr.NewError("job reservation lost").
			WithHint("The reservation expired or another worker holds the job").
			Mark(ierr.ErrReservationLost)
	}
	return nil
}

func (r *jobRepository) Replay(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := `
		UPDATE jobs SET
			job_status = $1,
			attempts = 0,
			eligible_at = $2,
			reserved_by = NULL,
			reserved_until = NULL,
			dead_letter_reason = NULL,
			updated_at = $2
		WHERE id = $3 AND job_status = $4`

	result, err := r.client.GetQuerier(ctx).ExecContext(ctx, query,
		types.JobStatusQueued, now, id, types.JobStatusFailed)
	if err != nil {
		return wrapErr(err, "Failed to replay job")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "Failed to replay job")
	}
	if n == 0 {
		return ierr.NewError("job is not replayable").
			WithHintf("Job %s is not in the failed state", id).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *jobRepository) Stats(ctx context.Context, queue types.QueueName) (*job.QueueStats, error) {
	now := time.Now().UTC()
	stats := &job.QueueStats{QueueName: queue}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE job_status = 'queued')   AS queued,
			COUNT(*) FILTER (WHERE job_status = 'reserved') AS reserved,
			COUNT(*) FILTER (WHERE job_status = 'done')     AS done,
			COUNT(*) FILTER (WHERE job_status = 'failed')   AS failed,
			COUNT(*) FILTER (WHERE job_status = 'reserved' AND reserved_until < $2) AS reservation_leaks,
			MIN(eligible_at) FILTER (WHERE job_status = 'queued') AS oldest_eligible_at
		FROM jobs
		WHERE queue_name = $1`

	row := r.client.GetQuerier(ctx).QueryRowContext(ctx, query, queue, now)
	err := row.Scan(&stats.Queued, &stats.Reserved, &stats.Done, &stats.Failed,
		&stats.ReservationLeaks, &stats.OldestEligibleAt)
	if err != nil {
		return nil, wrapErr(err, "Failed to compute queue stats")
	}
	return stats, nil
}
