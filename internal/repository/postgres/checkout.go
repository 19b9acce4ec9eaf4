package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hoststack/hoststack/internal/domain/checkout"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type checkoutRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCheckoutRepository(client postgres.IClient, logger *logger.Logger) checkout.Repository {
	return &checkoutRepository{client: client, logger: logger}
}

// checkoutSessionRow maps the sessions table; metadata is stored as jsonb
type checkoutSessionRow struct {
	ID                string                      `db:"id"`
	ExternalSessionID string                      `db:"external_session_id"`
	CustomerEmail     string                      `db:"customer_email"`
	ProductCode       string                      `db:"product_code"`
	BillingPeriod     types.BillingPeriod         `db:"billing_period"`
	AmountMinor       int64                       `db:"amount_minor"`
	Currency          string                      `db:"currency"`
	Domain            string                      `db:"domain"`
	SessionStatus     types.CheckoutSessionStatus `db:"session_status"`
	Metadata          []byte                      `db:"metadata"`
	CompletedAt       *time.Time                  `db:"completed_at"`

	types.BaseModel
}

func toCheckoutRow(s *checkout.Session) (*checkoutSessionRow, error) {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode session metadata").
			Mark(ierr.ErrValidation)
	}
	return &checkoutSessionRow{
		ID:                s.ID,
		ExternalSessionID: s.ExternalSessionID,
		CustomerEmail:     s.CustomerEmail,
		ProductCode:       s.ProductCode,
		BillingPeriod:     s.BillingPeriod,
		AmountMinor:       s.AmountMinor,
		Currency:          s.Currency,
		Domain:            s.Domain,
		SessionStatus:     s.SessionStatus,
		Metadata:          metadata,
		CompletedAt:       s.CompletedAt,
		BaseModel:         s.BaseModel,
	}, nil
}

func (row *checkoutSessionRow) toDomain() (*checkout.Session, error) {
	s := &checkout.Session{
		ID:                row.ID,
		ExternalSessionID: row.ExternalSessionID,
		CustomerEmail:     row.CustomerEmail,
		ProductCode:       row.ProductCode,
		BillingPeriod:     row.BillingPeriod,
		AmountMinor:       row.AmountMinor,
		Currency:          row.Currency,
		Domain:            row.Domain,
		SessionStatus:     row.SessionStatus,
		CompletedAt:       row.CompletedAt,
		BaseModel:         row.BaseModel,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &s.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode session metadata").
				Mark(ierr.ErrDatabase)
		}
	}
	return s, nil
}

func (r *checkoutRepository) Create(ctx context.Context, s *checkout.Session) error {
	row, err := toCheckoutRow(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (
			id, external_session_id, customer_email, product_code, billing_period,
			amount_minor, currency, domain, session_status, metadata, completed_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_session_id, :customer_email, :product_code, :billing_period,
			:amount_minor, :currency, :domain, :session_status, :metadata, :completed_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to create checkout session")
}

func (r *checkoutRepository) Get(ctx context.Context, id string) (*checkout.Session, error) {
	var row checkoutSessionRow
	query := `SELECT * FROM checkout_sessions WHERE id = $1 AND tenant_id = $2`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &row, query, id, types.GetTenantID(ctx)); err != nil {
		return nil, wrapErr(err, "Checkout session not found")
	}
	return row.toDomain()
}

func (r *checkoutRepository) GetByExternalID(ctx context.Context, externalSessionID string) (*checkout.Session, error) {
	var row checkoutSessionRow
	query := `SELECT * FROM checkout_sessions WHERE external_session_id = $1 AND tenant_id = $2`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &row, query, externalSessionID, types.GetTenantID(ctx)); err != nil {
		return nil, wrapErr(err, "Checkout session not found")
	}
	return row.toDomain()
}

func (r *checkoutRepository) Update(ctx context.Context, s *checkout.Session) error {
	row, err := toCheckoutRow(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE checkout_sessions SET
			customer_email = :customer_email,
			product_code = :product_code,
			billing_period = :billing_period,
			amount_minor = :amount_minor,
			currency = :currency,
			domain = :domain,
			session_status = :session_status,
			metadata = :metadata,
			completed_at = :completed_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to update checkout session")
}
