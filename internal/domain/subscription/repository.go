package subscription

import (
	"context"

	"github.com/hoststack/hoststack/internal/types"
)

// Repository defines the interface for subscription operations
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context, filter *types.SubscriptionFilter) ([]*Subscription, error)
	Count(ctx context.Context, filter *types.SubscriptionFilter) (int, error)
	Update(ctx context.Context, subscription *Subscription) error
}
