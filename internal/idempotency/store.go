package idempotency

import (
	"context"
	"time"

	domain "github.com/hoststack/hoststack/internal/domain/idempotency"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

// ProduceFunc computes the outcome that Remember protects. It runs inside a
// transaction together with the record insert, so a losing concurrent caller
// rolls back its produce side effects.
type ProduceFunc func(ctx context.Context) ([]byte, error)

// Store maps (scope, external-key) to a prior outcome so repeated calls
// replay the stored result instead of re-running produce.
type Store interface {
	// Remember returns the stored outcome with replayed=true when a
	// non-expired record exists. Otherwise it calls produce exactly once,
	// stores the outcome and returns it with replayed=false. Concurrent
	// callers with the same key serialise on the unique constraint; losers
	// return the winner's outcome.
	Remember(ctx context.Context, scope Scope, key string, ttl time.Duration, produce ProduceFunc) ([]byte, bool, error)

	// Forget removes the record; used only by administrative replay.
	Forget(ctx context.Context, scope Scope, key string) error
}

type store struct {
	repo   domain.Repository
	db     postgres.IClient
	logger *logger.Logger
}

// NewStore creates an idempotency store over the record repository
func NewStore(repo domain.Repository, db postgres.IClient, logger *logger.Logger) Store {
	return &store{repo: repo, db: db, logger: logger}
}

func (s *store) Remember(ctx context.Context, scope Scope, key string, ttl time.Duration, produce ProduceFunc) ([]byte, bool, error) {
	now := time.Now().UTC()

	existing, err := s.repo.Get(ctx, string(scope), key)
	if err == nil && !existing.IsExpired(now) {
		return existing.Outcome, true, nil
	}
	if err != nil && !ierr.IsNotFound(err) {
		return nil, false, err
	}

	var outcome []byte
	err = s.db.WithTx(ctx, func(txCtx context.Context) error {
		out, produceErr := produce(txCtx)
		if produceErr != nil {
			return produceErr
		}
		outcome = out

		return s.repo.Insert(txCtx, &domain.Record{
			ID:          types.GenerateUUID(),
			TenantID:    types.GetTenantID(txCtx),
			Scope:       string(scope),
			ExternalKey: key,
			Outcome:     out,
			ExpiresAt:   now.Add(ttl),
			CreatedAt:   now,
		})
	})
	if err != nil {
		// Duplicates are the contract: a concurrent caller won the insert,
		// so replay its stored outcome.
		if ierr.IsAlreadyExists(err) {
			winner, getErr := s.repo.Get(ctx, string(scope), key)
			if getErr != nil {
				return nil, false, getErr
			}
			return winner.Outcome, true, nil
		}
		return nil, false, err
	}

	return outcome, false, nil
}

func (s *store) Forget(ctx context.Context, scope Scope, key string) error {
	return s.repo.Delete(ctx, string(scope), key)
}
