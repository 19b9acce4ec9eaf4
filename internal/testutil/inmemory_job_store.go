package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hoststack/hoststack/internal/domain/job"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// InMemoryJobStore implements job.Repository with the same claim and
// reservation semantics as the postgres repository.
type InMemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]*job.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[string]*job.Job),
	}
}

func copyJob(j *job.Job) *job.Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Payload = append([]byte(nil), j.Payload...)
	if j.ReservedBy != nil {
		cp.ReservedBy = lo.ToPtr(*j.ReservedBy)
	}
	if j.ReservedUntil != nil {
		cp.ReservedUntil = lo.ToPtr(*j.ReservedUntil)
	}
	if j.LastError != nil {
		cp.LastError = lo.ToPtr(*j.LastError)
	}
	if j.DeadLetterReason != nil {
		cp.DeadLetterReason = lo.ToPtr(*j.DeadLetterReason)
	}
	return &cp
}

func (s *InMemoryJobStore) Create(ctx context.Context, j *job.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return ierr.NewError("job already exists").
			WithHintf("Job %s already exists", j.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	s.jobs[j.ID] = copyJob(j)
	return nil
}

func (s *InMemoryJobStore) Get(ctx context.Context, id string) (*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return copyJob(j), nil
}

func (s *InMemoryJobStore) get(id string) (*job.Job, error) {
	if j, exists := s.jobs[id]; exists {
		return j, nil
	}
	return nil, ierr.NewError("job not found").
		WithHintf("Job %s was not found", id).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryJobStore) Claim(ctx context.Context, queue types.QueueName, workerID string, count int, ttl time.Duration) ([]*job.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	var eligible []*job.Job
	for _, j := range s.jobs {
		if j.QueueName != queue {
			continue
		}
		switch j.JobStatus {
		case types.JobStatusQueued:
			if !j.EligibleAt.After(now) {
				eligible = append(eligible, j)
			}
		case types.JobStatusReserved:
			// Expired reservations are reclaimable, the worker is presumed dead
			if j.ReservedUntil != nil && !j.ReservedUntil.After(now) {
				eligible = append(eligible, j)
			}
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.EligibleAt.Equal(b.EligibleAt) {
			return a.EligibleAt.Before(b.EligibleAt)
		}
		return a.ID < b.ID
	})

	if count < len(eligible) {
		eligible = eligible[:count]
	}

	claimed := make([]*job.Job, 0, len(eligible))
	for _, j := range eligible {
		j.JobStatus = types.JobStatusReserved
		j.Attempts++
		j.ReservedBy = lo.ToPtr(workerID)
		j.ReservedUntil = lo.ToPtr(now.Add(ttl))
		claimed = append(claimed, copyJob(j))
	}
	return claimed, nil
}

func (s *InMemoryJobStore) reserved(id, workerID string) (*job.Job, error) {
	j, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if !j.IsReservedBy(workerID, time.Now().UTC()) {
		return nil, ierr.NewError("reservation lost").
			WithHintf("Worker %s no longer holds job %s", workerID, id).
			Mark(ierr.ErrReservationLost)
	}
	return j, nil
}

func (s *InMemoryJobStore) Complete(ctx context.Context, id, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.reserved(id, workerID)
	if err != nil {
		return err
	}
	j.JobStatus = types.JobStatusDone
	j.ReservedBy = nil
	j.ReservedUntil = nil
	return nil
}

func (s *InMemoryJobStore) FailRetry(ctx context.Context, id, workerID string, lastError string, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.reserved(id, workerID)
	if err != nil {
		return err
	}
	j.JobStatus = types.JobStatusQueued
	j.EligibleAt = time.Now().UTC().Add(delay)
	j.LastError = lo.ToPtr(lastError)
	j.ReservedBy = nil
	j.ReservedUntil = nil
	return nil
}

func (s *InMemoryJobStore) FailDead(ctx context.Context, id, workerID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.reserved(id, workerID)
	if err != nil {
		return err
	}
	j.JobStatus = types.JobStatusFailed
	j.DeadLetterReason = lo.ToPtr(reason)
	j.ReservedBy = nil
	j.ReservedUntil = nil
	return nil
}

func (s *InMemoryJobStore) Extend(ctx context.Context, id, workerID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.reserved(id, workerID)
	if err != nil {
		return err
	}
	j.ReservedUntil = lo.ToPtr(time.Now().UTC().Add(ttl))
	return nil
}

func (s *InMemoryJobStore) Replay(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.get(id)
	if err != nil {
		return err
	}
	if j.JobStatus != types.JobStatusFailed {
		return ierr.NewError("job is not dead-lettered").
			WithHintf("Job %s is %s", id, j.JobStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	j.JobStatus = types.JobStatusQueued
	j.Attempts = 0
	j.EligibleAt = time.Now().UTC()
	j.DeadLetterReason = nil
	j.ReservedBy = nil
	j.ReservedUntil = nil
	return nil
}

func (s *InMemoryJobStore) Stats(ctx context.Context, queue types.QueueName) (*job.QueueStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stats := &job.QueueStats{QueueName: queue}
	for _, j := range s.jobs {
		if j.QueueName != queue {
			continue
		}
		switch j.JobStatus {
		case types.JobStatusQueued:
			stats.Queued++
			if stats.OldestEligibleAt == nil || j.EligibleAt.Before(*stats.OldestEligibleAt) {
				stats.OldestEligibleAt = lo.ToPtr(j.EligibleAt)
			}
		case types.JobStatusReserved:
			stats.Reserved++
			if j.ReservedUntil != nil && !j.ReservedUntil.After(now) {
				stats.ReservationLeaks++
			}
		case types.JobStatusDone:
			stats.Done++
		case types.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

// Clear removes all jobs
func (s *InMemoryJobStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*job.Job)
}
