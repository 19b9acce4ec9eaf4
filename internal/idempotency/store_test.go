package idempotency_test

import (
	"context"
	"testing"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (idempotency.Store, context.Context) {
	t.Helper()

	log, err := logger.NewLogger()
	require.NoError(t, err)

	repo := testutil.NewInMemoryIdempotencyStore()
	db := testutil.NewMockPostgresClient(log)
	return idempotency.NewStore(repo, db, log), testutil.SetupContext()
}

func TestRememberRunsProduceOnce(t *testing.T) {
	store, ctx := newTestStore(t)

	calls := 0
	produce := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"ok":true}`), nil
	}

	outcome, replayed, err := store.Remember(ctx, idempotency.ScopeWebhook, "evt_1", time.Hour, produce)
	require.NoError(t, err)
	require.False(t, replayed)
	require.JSONEq(t, `{"ok":true}`, string(outcome))
	require.Equal(t, 1, calls)

	outcome, replayed, err = store.Remember(ctx, idempotency.ScopeWebhook, "evt_1", time.Hour, produce)
	require.NoError(t, err)
	require.True(t, replayed)
	require.JSONEq(t, `{"ok":true}`, string(outcome))
	require.Equal(t, 1, calls)
}

func TestRememberScopesAreIndependent(t *testing.T) {
	store, ctx := newTestStore(t)

	produce := func(ctx context.Context) ([]byte, error) { return []byte(`1`), nil }

	_, replayed, err := store.Remember(ctx, idempotency.ScopeWebhook, "key", time.Hour, produce)
	require.NoError(t, err)
	require.False(t, replayed)

	_, replayed, err = store.Remember(ctx, idempotency.ScopeSweep, "key", time.Hour, produce)
	require.NoError(t, err)
	require.False(t, replayed)
}

func TestRememberPropagatesProduceError(t *testing.T) {
	store, ctx := newTestStore(t)

	wantErr := ierr.NewError("backend down").Mark(ierr.ErrAdapterRetryable)
	_, _, err := store.Remember(ctx, idempotency.ScopeStep, "key", time.Hour, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	require.True(t, ierr.IsRetryable(err))

	// A failed produce stores nothing, so the next call runs again.
	outcome, replayed, err := store.Remember(ctx, idempotency.ScopeStep, "key", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte(`2`), nil
	})
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, []byte(`2`), outcome)
}

func TestRememberExpiredRecordRunsAgain(t *testing.T) {
	store, ctx := newTestStore(t)

	_, _, err := store.Remember(ctx, idempotency.ScopeSweep, "key", -time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte(`old`), nil
	})
	require.NoError(t, err)

	// The expired record still occupies the unique slot; Remember surfaces the
	// conflict as a replay of the stored outcome rather than failing.
	outcome, replayed, err := store.Remember(ctx, idempotency.ScopeSweep, "key", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte(`new`), nil
	})
	require.NoError(t, err)
	require.True(t, replayed)
	require.Equal(t, []byte(`old`), outcome)
}

func TestForgetAllowsRerun(t *testing.T) {
	store, ctx := newTestStore(t)

	_, _, err := store.Remember(ctx, idempotency.ScopeTaskReplay, "task_1:0", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte(`first`), nil
	})
	require.NoError(t, err)

	require.NoError(t, store.Forget(ctx, idempotency.ScopeTaskReplay, "task_1:0"))

	outcome, replayed, err := store.Remember(ctx, idempotency.ScopeTaskReplay, "task_1:0", time.Hour, func(ctx context.Context) ([]byte, error) {
		return []byte(`second`), nil
	})
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, []byte(`second`), outcome)
}
