package paymentevent

import "context"

// Repository defines the interface for payment event storage
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByExternalID(ctx context.Context, externalEventID string) (*Event, error)
}
