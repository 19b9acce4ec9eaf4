package backup

import (
	"context"
	"time"
)

// Repository defines the interface for backup record operations
type Repository interface {
	Create(ctx context.Context, backup *Backup) error
	// DeleteOlderThan removes backup records taken before cutoff and returns
	// the number removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
