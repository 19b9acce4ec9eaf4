package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/hoststack/hoststack/internal/domain/job"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/queue"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Value string `json:"value"`
}

func newTestQueue(t *testing.T) (*queue.Service, *testutil.InMemoryJobStore, context.Context) {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := testutil.NewInMemoryJobStore()
	return queue.NewService(repo, log), repo, testutil.SetupContext()
}

func TestEnqueueDefaults(t *testing.T) {
	svc, _, ctx := newTestQueue(t)

	j, err := svc.Enqueue(ctx, types.QueueEmails, types.JobKindSSLExpiryReminder,
		&testPayload{Value: "a"}, job.EnqueueOptions{})
	require.NoError(t, err)

	require.Equal(t, types.JobStatusQueued, j.JobStatus)
	require.Equal(t, types.DefaultJobPriority, j.Priority)
	require.Equal(t, 3, j.MaxAttempts)
	require.Zero(t, j.Attempts)
	require.False(t, j.EligibleAt.After(time.Now().UTC()))

	var decoded testPayload
	require.NoError(t, j.DecodePayload(&decoded))
	require.Equal(t, "a", decoded.Value)
}

func TestEnqueueRejectsUnknownQueue(t *testing.T) {
	svc, _, ctx := newTestQueue(t)

	_, err := svc.Enqueue(ctx, types.QueueName("bogus"), types.JobKindBackupCleanup,
		&testPayload{}, job.EnqueueOptions{})
	require.True(t, ierr.IsValidation(err))
}

func TestClaimOrdersByPriorityThenEligibility(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	low, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{Value: "low"}, job.EnqueueOptions{Priority: 50})
	require.NoError(t, err)

	high, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{Value: "high"}, job.EnqueueOptions{Priority: 10})
	require.NoError(t, err)

	// Not yet eligible, must not be claimed.
	_, err = svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{Value: "later"}, job.EnqueueOptions{Priority: 10, Delay: time.Hour})
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, types.QueueProvisioning, "worker-1", 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	require.Equal(t, high.ID, claimed[0].ID)
	require.Equal(t, low.ID, claimed[1].ID)

	for _, j := range claimed {
		require.Equal(t, types.JobStatusReserved, j.JobStatus)
		require.Equal(t, 1, j.Attempts)
	}
}

func TestClaimIsScopedToTheQueue(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	_, err := svc.Enqueue(ctx, types.QueueBackups, types.JobKindBackupCleanup,
		&testPayload{}, job.EnqueueOptions{})
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, types.QueueEmails, "worker-1", 10, time.Minute)
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestExpiredReservationIsReclaimable(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	j, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{}, job.EnqueueOptions{})
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, types.QueueProvisioning, "worker-1", 1, -time.Second)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// The reservation is already expired, so another worker picks the job up
	// and the attempt counter keeps growing.
	reclaimed, err := repo.Claim(ctx, types.QueueProvisioning, "worker-2", 1, time.Minute)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	require.Equal(t, j.ID, reclaimed[0].ID)
	require.Equal(t, 2, reclaimed[0].Attempts)

	// The presumed-dead worker can no longer finish the job.
	err = repo.Complete(ctx, j.ID, "worker-1")
	require.True(t, ierr.IsReservationLost(err))

	require.NoError(t, repo.Complete(ctx, j.ID, "worker-2"))
}

func TestFailRetryDelaysTheNextAttempt(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	j, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{}, job.EnqueueOptions{})
	require.NoError(t, err)

	_, err = repo.Claim(ctx, types.QueueProvisioning, "worker-1", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.FailRetry(ctx, j.ID, "worker-1", "backend timeout", time.Hour))

	stored, err := repo.Get(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, stored.JobStatus)
	require.NotNil(t, stored.LastError)
	require.Equal(t, "backend timeout", *stored.LastError)

	// Delayed out of the claim window.
	claimed, err := repo.Claim(ctx, types.QueueProvisioning, "worker-2", 1, time.Minute)
	require.NoError(t, err)
	require.Empty(t, claimed)
}

func TestReplayResetsDeadLetteredJob(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	j, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{}, job.EnqueueOptions{})
	require.NoError(t, err)

	// Replay only applies to dead-lettered jobs.
	require.True(t, ierr.IsInvalidOperation(svc.Replay(ctx, j.ID)))

	_, err = repo.Claim(ctx, types.QueueProvisioning, "worker-1", 1, time.Minute)
	require.NoError(t, err)
	require.NoError(t, repo.FailDead(ctx, j.ID, "worker-1", "payload rejected"))

	require.NoError(t, svc.Replay(ctx, j.ID))

	stored, err := repo.Get(ctx, j.ID)
	require.NoError(t, err)
	require.Equal(t, types.JobStatusQueued, stored.JobStatus)
	require.Zero(t, stored.Attempts)
	require.Nil(t, stored.DeadLetterReason)
}

func TestStatsSummariseTheQueue(t *testing.T) {
	svc, repo, ctx := newTestQueue(t)

	queued, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{}, job.EnqueueOptions{})
	require.NoError(t, err)

	done, err := svc.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&testPayload{}, job.EnqueueOptions{Priority: 1})
	require.NoError(t, err)

	claimed, err := repo.Claim(ctx, types.QueueProvisioning, "worker-1", 1, time.Minute)
	require.NoError(t, err)
	require.Equal(t, done.ID, claimed[0].ID)
	require.NoError(t, repo.Complete(ctx, done.ID, "worker-1"))

	stats, err := svc.Stats(ctx, types.QueueProvisioning)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Queued)
	require.Equal(t, 1, stats.Done)
	require.Zero(t, stats.Reserved)
	require.NotNil(t, stats.OldestEligibleAt)
	require.True(t, stats.OldestEligibleAt.Equal(queued.EligibleAt))
}
