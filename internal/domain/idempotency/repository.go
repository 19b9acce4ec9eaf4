package idempotency

import "context"

// Repository defines storage for idempotency records
type Repository interface {
	// Insert stores a record; returns ErrAlreadyExists when the
	// (tenant, scope, external_key) triple is already present.
	Insert(ctx context.Context, record *Record) error
	Get(ctx context.Context, scope, externalKey string) (*Record, error)
	Delete(ctx context.Context, scope, externalKey string) error
	// DeleteExpired prunes expired records; the table is purely operational.
	DeleteExpired(ctx context.Context) (int, error)
}
