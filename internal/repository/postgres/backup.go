package postgres

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/backup"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type backupRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewBackupRepository(client postgres.IClient, logger *logger.Logger) backup.Repository {
	return &backupRepository{client: client, logger: logger}
}

func (r *backupRepository) Create(ctx context.Context, b *backup.Backup) error {
	query := `
		INSERT INTO backups (
			id, website_id, size_bytes, taken_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :website_id, :size_bytes, :taken_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, b)
	return wrapErr(err, "Failed to create backup record")
}

func (r *backupRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM backups WHERE taken_at < $1 AND tenant_id = $2`
	result, err := r.client.GetQuerier(ctx).ExecContext(ctx, query, cutoff, types.GetTenantID(ctx))
	if err != nil {
		return 0, wrapErr(err, "Failed to prune backup records")
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}
