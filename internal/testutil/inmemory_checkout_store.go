package testutil

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/checkout"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCheckoutStore implements checkout.Repository
type InMemoryCheckoutStore struct {
	*InMemoryStore[*checkout.Session]
}

func NewInMemoryCheckoutStore() *InMemoryCheckoutStore {
	return &InMemoryCheckoutStore{
		InMemoryStore: NewInMemoryStore[*checkout.Session](),
	}
}

func copySession(s *checkout.Session) *checkout.Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Metadata = lo.Assign(map[string]string{}, s.Metadata)
	return &cp
}

func (s *InMemoryCheckoutStore) Create(ctx context.Context, session *checkout.Session) error {
	return s.InMemoryStore.Create(ctx, session.ID, copySession(session))
}

func (s *InMemoryCheckoutStore) Get(ctx context.Context, id string) (*checkout.Session, error) {
	session, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copySession(session), nil
}

func (s *InMemoryCheckoutStore) GetByExternalID(ctx context.Context, externalSessionID string) (*checkout.Session, error) {
	sessions, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *checkout.Session, _ interface{}) bool {
		return item.ExternalSessionID == externalSessionID
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ierr.NewError("checkout session not found").
			WithHintf("No session with external id %s", externalSessionID).
			Mark(ierr.ErrNotFound)
	}
	return copySession(sessions[0]), nil
}

func (s *InMemoryCheckoutStore) Update(ctx context.Context, session *checkout.Session) error {
	return s.InMemoryStore.Update(ctx, session.ID, copySession(session))
}
