package user

import "context"

// Repository defines the interface for user credential operations
type Repository interface {
	Create(ctx context.Context, credential *Credential) error
	Get(ctx context.Context, id string) (*Credential, error)
	GetByCustomerID(ctx context.Context, customerID string) (*Credential, error)
	Update(ctx context.Context, credential *Credential) error
}
