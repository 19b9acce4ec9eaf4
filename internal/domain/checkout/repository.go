package checkout

import "context"

// Repository defines the interface for checkout session operations
type Repository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// GetByExternalID looks up a session by the payment provider's session id
	GetByExternalID(ctx context.Context, externalSessionID string) (*Session, error)
	Update(ctx context.Context, session *Session) error
}
