package website

import "context"

// Repository defines the interface for website operations
type Repository interface {
	Create(ctx context.Context, website *Website) error
	Get(ctx context.Context, id string) (*Website, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Website, error)
	Update(ctx context.Context, website *Website) error
}
