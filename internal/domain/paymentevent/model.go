package paymentevent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hoststack/hoststack/internal/types"
)

// Event is a verified inbound payment provider event. Every event kind is
// accepted and stored; only checkout.completed additionally triggers
// provisioning.
type Event struct {
	ID string `db:"id" json:"id"`

	// ExternalEventID is the provider's event id, unique per tenant
	ExternalEventID string `db:"external_event_id" json:"external_event_id"`

	Kind types.PaymentEventKind `db:"kind" json:"kind"`

	Payload json.RawMessage `db:"payload" json:"payload"`

	ReceivedAt time.Time `db:"received_at" json:"received_at"`

	types.BaseModel
}

// New stores a verified event envelope
func New(ctx context.Context, externalEventID string, kind types.PaymentEventKind, payload json.RawMessage) *Event {
	return &Event{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_EVENT),
		ExternalEventID: externalEventID,
		Kind:            kind,
		Payload:         payload,
		ReceivedAt:      time.Now().UTC(),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}
