package testutil

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/website"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// InMemoryWebsiteStore implements website.Repository
type InMemoryWebsiteStore struct {
	*InMemoryStore[*website.Website]
}

func NewInMemoryWebsiteStore() *InMemoryWebsiteStore {
	return &InMemoryWebsiteStore{
		InMemoryStore: NewInMemoryStore[*website.Website](),
	}
}

func copyWebsite(w *website.Website) *website.Website {
	if w == nil {
		return nil
	}
	cp := *w
	return &cp
}

func (s *InMemoryWebsiteStore) Create(ctx context.Context, w *website.Website) error {
	return s.InMemoryStore.Create(ctx, w.ID, copyWebsite(w))
}

func (s *InMemoryWebsiteStore) Get(ctx context.Context, id string) (*website.Website, error) {
	w, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyWebsite(w), nil
}

func (s *InMemoryWebsiteStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*website.Website, error) {
	sites, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *website.Website, _ interface{}) bool {
		return item.SubscriptionID == subscriptionID
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, ierr.NewError("website not found").
			WithHintf("No website for subscription %s", subscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return copyWebsite(sites[0]), nil
}

func (s *InMemoryWebsiteStore) Update(ctx context.Context, w *website.Website) error {
	return s.InMemoryStore.Update(ctx, w.ID, copyWebsite(w))
}
