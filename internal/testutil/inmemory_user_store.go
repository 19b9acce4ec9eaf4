package testutil

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/user"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.Credential]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.Credential](),
	}
}

func copyCredential(c *user.Credential) *user.Credential {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (s *InMemoryUserStore) Create(ctx context.Context, credential *user.Credential) error {
	return s.InMemoryStore.Create(ctx, credential.ID, copyCredential(credential))
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.Credential, error) {
	credential, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyCredential(credential), nil
}

func (s *InMemoryUserStore) GetByCustomerID(ctx context.Context, customerID string) (*user.Credential, error) {
	credentials, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *user.Credential, _ interface{}) bool {
		return item.CustomerID == customerID
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(credentials) == 0 {
		return nil, ierr.NewError("credential not found").
			WithHintf("No credential for customer %s", customerID).
			Mark(ierr.ErrNotFound)
	}
	return copyCredential(credentials[0]), nil
}

func (s *InMemoryUserStore) Update(ctx context.Context, credential *user.Credential) error {
	return s.InMemoryStore.Update(ctx, credential.ID, copyCredential(credential))
}
