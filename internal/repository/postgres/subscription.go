package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hoststack/hoststack/internal/domain/subscription"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: logger}
}

// subscriptionRow maps the subscriptions table; metadata is stored as jsonb
type subscriptionRow struct {
	ID                 string                   `db:"id"`
	CustomerID         string                   `db:"customer_id"`
	ProductCode        string                   `db:"product_code"`
	BillingPeriod      types.BillingPeriod      `db:"billing_period"`
	PriceMinor         int64                    `db:"price_minor"`
	Currency           string                   `db:"currency"`
	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status"`
	NextBillingAt      time.Time                `db:"next_billing_at"`
	LastInvoicedAt     *time.Time               `db:"last_invoiced_at"`
	Metadata           []byte                   `db:"metadata"`

	types.BaseModel
}

func toSubscriptionRow(s *subscription.Subscription) (*subscriptionRow, error) {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode subscription metadata").
			Mark(ierr.ErrValidation)
	}
	return &subscriptionRow{
		ID:                 s.ID,
		CustomerID:         s.CustomerID,
		ProductCode:        s.ProductCode,
		BillingPeriod:      s.BillingPeriod,
		PriceMinor:         s.PriceMinor,
		Currency:           s.Currency,
		SubscriptionStatus: s.SubscriptionStatus,
		NextBillingAt:      s.NextBillingAt,
		LastInvoicedAt:     s.LastInvoicedAt,
		Metadata:           metadata,
		BaseModel:          s.BaseModel,
	}, nil
}

func (row *subscriptionRow) toDomain() (*subscription.Subscription, error) {
	s := &subscription.Subscription{
		ID:                 row.ID,
		CustomerID:         row.CustomerID,
		ProductCode:        row.ProductCode,
		BillingPeriod:      row.BillingPeriod,
		PriceMinor:         row.PriceMinor,
		Currency:           row.Currency,
		SubscriptionStatus: row.SubscriptionStatus,
		NextBillingAt:      row.NextBillingAt,
		LastInvoicedAt:     row.LastInvoicedAt,
		BaseModel:          row.BaseModel,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &s.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode subscription metadata").
				Mark(ierr.ErrDatabase)
		}
	}
	return s, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	row, err := toSubscriptionRow(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO subscriptions (
			id, customer_id, product_code, billing_period, price_minor, currency,
			subscription_status, next_billing_at, last_invoiced_at, metadata,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :product_code, :billing_period, :price_minor, :currency,
			:subscription_status, :next_billing_at, :last_invoiced_at, :metadata,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to create subscription")
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var row subscriptionRow
	query := `SELECT * FROM subscriptions WHERE id = $1 AND tenant_id = $2`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &row, query, id, types.GetTenantID(ctx)); err != nil {
		return nil, wrapErr(err, "Subscription not found")
	}
	return row.toDomain()
}

func (r *subscriptionRepository) List(ctx context.Context, filter *types.SubscriptionFilter) ([]*subscription.Subscription, error) {
	where, args := r.buildWhere(ctx, filter)

	query := fmt.Sprintf(`SELECT * FROM subscriptions WHERE %s ORDER BY created_at DESC`, where)
	if filter != nil && !filter.IsUnlimited() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.GetLimit(), filter.GetOffset())
	}

	var rows []*subscriptionRow
	if err := r.client.GetQuerier(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, wrapErr(err, "Failed to list subscriptions")
	}

	result := make([]*subscription.Subscription, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}

func (r *subscriptionRepository) Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error) {
	where, args := r.buildWhere(ctx, filter)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM subscriptions WHERE %s`, where)
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, wrapErr(err, "Failed to count subscriptions")
	}
	return count, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	row, err := toSubscriptionRow(s)
	if err != nil {
		return err
	}

	query := `
		UPDATE subscriptions SET
			subscription_status = :subscription_status,
			next_billing_at = :next_billing_at,
			last_invoiced_at = :last_invoiced_at,
			metadata = :metadata,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err = r.client.GetQuerier(ctx).NamedExec(query, row)
	return wrapErr(err, "Failed to update subscription")
}

func (r *subscriptionRepository) buildWhere(ctx context.Context, filter *types.SubscriptionFilter) (string, []interface{}) {
	conditions := []string{"tenant_id = $1", "status != $2"}
	args := []interface{}{types.GetTenantID(ctx), types.StatusDeleted}

	if filter == nil {
		return strings.Join(conditions, " AND "), args
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.SubscriptionStatus != nil {
		args = append(args, *filter.SubscriptionStatus)
		conditions = append(conditions, fmt.Sprintf("subscription_status = $%d", len(args)))
	}
	if filter.NextBillingBefore != nil {
		args = append(args, *filter.NextBillingBefore)
		conditions = append(conditions, fmt.Sprintf("next_billing_at < $%d", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}
