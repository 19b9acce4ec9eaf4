package postgres

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type invoiceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewInvoiceRepository(client postgres.IClient, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{client: client, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, customer_id, subscription_id, period_start, period_end,
			amount_minor, currency, due_date, invoice_status, paid_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :subscription_id, :period_start, :period_end,
			:amount_minor, :currency, :due_date, :invoice_status, :paid_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, inv)
	return wrapErr(err, "Failed to create invoice")
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	query := `SELECT * FROM invoices WHERE id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &inv, query, id, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Invoice not found")
	}
	return &inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE invoices SET
			invoice_status = :invoice_status,
			paid_at = :paid_at,
			due_date = :due_date,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, inv)
	return wrapErr(err, "Failed to update invoice")
}

func (r *invoiceRepository) GetLatestBySubscription(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	query := `
		SELECT * FROM invoices
		WHERE subscription_id = $1 AND tenant_id = $2
		ORDER BY period_end DESC
		LIMIT 1`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &inv, query, subscriptionID, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Invoice not found")
	}
	return &inv, nil
}

func (r *invoiceRepository) ListUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	query := `
		SELECT * FROM invoices
		WHERE invoice_status = $1 AND due_date < $2 AND tenant_id = $3
		ORDER BY due_date ASC`
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &invoices, query,
		types.InvoiceStatusFinalized, cutoff, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Failed to list unpaid invoices")
	}
	return invoices, nil
}
