package postgres

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/certificate"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type certificateRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCertificateRepository(client postgres.IClient, logger *logger.Logger) certificate.Repository {
	return &certificateRepository{client: client, logger: logger}
}

func (r *certificateRepository) Create(ctx context.Context, c *certificate.Certificate) error {
	query := `
		INSERT INTO certificates (
			id, website_id, domain, cert_id, not_before, not_after, reminded_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :website_id, :domain, :cert_id, :not_before, :not_after, :reminded_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to create certificate record")
}

func (r *certificateRepository) Get(ctx context.Context, id string) (*certificate.Certificate, error) {
	var c certificate.Certificate
	query := `SELECT * FROM certificates WHERE id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Certificate not found")
	}
	return &c, nil
}

func (r *certificateRepository) Update(ctx context.Context, c *certificate.Certificate) error {
	query := `
		UPDATE certificates SET
			cert_id = :cert_id,
			not_before = :not_before,
			not_after = :not_after,
			reminded_at = :reminded_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to update certificate record")
}

func (r *certificateRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*certificate.Certificate, error) {
	var certs []*certificate.Certificate
	query := `
		SELECT * FROM certificates
		WHERE not_after < $1 AND not_after > $2 AND tenant_id = $3 AND status != $4
		ORDER BY not_after ASC`
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &certs, query,
		cutoff, time.Now().UTC(), types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list expiring certificates")
	}
	return certs, nil
}
