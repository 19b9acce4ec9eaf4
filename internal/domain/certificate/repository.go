package certificate

import (
	"context"
	"time"
)

// Repository defines the interface for certificate record operations
type Repository interface {
	Create(ctx context.Context, certificate *Certificate) error
	Get(ctx context.Context, id string) (*Certificate, error)
	Update(ctx context.Context, certificate *Certificate) error
	// ListExpiringBefore returns certificates whose not-after is before cutoff
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*Certificate, error)
}
