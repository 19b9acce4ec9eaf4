package postgres

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/paymentevent"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type paymentEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPaymentEventRepository(client postgres.IClient, logger *logger.Logger) paymentevent.Repository {
	return &paymentEventRepository{client: client, logger: logger}
}

func (r *paymentEventRepository) Create(ctx context.Context, e *paymentevent.Event) error {
	query := `
		INSERT INTO payment_events (
			id, external_event_id, kind, payload, received_at,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :external_event_id, :kind, :payload, :received_at,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, e)
	return wrapErr(err, "Failed to store payment event")
}

func (r *paymentEventRepository) GetByExternalID(ctx context.Context, externalEventID string) (*paymentevent.Event, error) {
	var e paymentevent.Event
	query := `SELECT * FROM payment_events WHERE external_event_id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &e, query, externalEventID, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Payment event not found")
	}
	return &e, nil
}
