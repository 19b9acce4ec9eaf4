package postgres

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/website"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type websiteRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewWebsiteRepository(client postgres.IClient, logger *logger.Logger) website.Repository {
	return &websiteRepository{client: client, logger: logger}
}

func (r *websiteRepository) Create(ctx context.Context, w *website.Website) error {
	query := `
		INSERT INTO websites (
			id, customer_id, subscription_id, server_id, domain, hosting_account_id, document_root,
			dns_zone_id, ssl_cert_id, default_mailbox, default_database, website_status,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :subscription_id, :server_id, :domain, :hosting_account_id, :document_root,
			:dns_zone_id, :ssl_cert_id, :default_mailbox, :default_database, :website_status,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, w)
	return wrapErr(err, "Failed to create website")
}

func (r *websiteRepository) Get(ctx context.Context, id string) (*website.Website, error) {
	var w website.Website
	query := `SELECT * FROM websites WHERE id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &w, query, id, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Website not found")
	}
	return &w, nil
}

func (r *websiteRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*website.Website, error) {
	var w website.Website
	query := `SELECT * FROM websites WHERE subscription_id = $1 AND tenant_id = $2 AND status != $3`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &w, query, subscriptionID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Website not found")
	}
	return &w, nil
}

func (r *websiteRepository) Update(ctx context.Context, w *website.Website) error {
	query := `
		UPDATE websites SET
			server_id = :server_id,
			domain = :domain,
			hosting_account_id = :hosting_account_id,
			document_root = :document_root,
			dns_zone_id = :dns_zone_id,
			ssl_cert_id = :ssl_cert_id,
			default_mailbox = :default_mailbox,
			default_database = :default_database,
			website_status = :website_status,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, w)
	return wrapErr(err, "Failed to update website")
}
