package invoice

import (
	"context"
	"time"
)

// Repository defines the interface for invoice operations
type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, invoice *Invoice) error
	// GetLatestBySubscription returns the most recent invoice for a subscription
	GetLatestBySubscription(ctx context.Context, subscriptionID string) (*Invoice, error)
	// ListUnpaidDueBefore returns finalized unpaid invoices with due date before cutoff
	ListUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*Invoice, error)
}
