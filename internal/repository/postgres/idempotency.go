package postgres

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/idempotency"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type idempotencyRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewIdempotencyRepository(client postgres.IClient, logger *logger.Logger) idempotency.Repository {
	return &idempotencyRepository{client: client, logger: logger}
}

func (r *idempotencyRepository) Insert(ctx context.Context, record *idempotency.Record) error {
	// The unique index on (tenant_id, scope, external_key) is what serialises
	// concurrent callers; losers surface ErrAlreadyExists.
	query := `
		INSERT INTO idempotency_records (
			id, tenant_id, scope, external_key, outcome, expires_at, created_at
		) VALUES (
			:id, :tenant_id, :scope, :external_key, :outcome, :expires_at, :created_at
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, record)
	return wrapErr(err, "Idempotency record already exists")
}

func (r *idempotencyRepository) Get(ctx context.Context, scope, externalKey string) (*idempotency.Record, error) {
	var record idempotency.Record
	query := `SELECT * FROM idempotency_records WHERE tenant_id = $1 AND scope = $2 AND external_key = $3`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &record, query, types.GetTenantID(ctx), scope, externalKey)
	if err != nil {
		return nil, wrapErr(err, "Idempotency record not found")
	}
	return &record, nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, scope, externalKey string) error {
	query := `DELETE FROM idempotency_records WHERE tenant_id = $1 AND scope = $2 AND external_key = $3`
	_, err := r.client.GetQuerier(ctx).ExecContext(ctx, query, types.GetTenantID(ctx), scope, externalKey)
	return wrapErr(err, "Failed to delete idempotency record")
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) (int, error) {
	query := `DELETE FROM idempotency_records WHERE expires_at < $1`
	result, err := r.client.GetQuerier(ctx).ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, wrapErr(err, "Failed to prune idempotency records")
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
