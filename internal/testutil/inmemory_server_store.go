package testutil

import (
	"context"
	"sync"

	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// InMemoryServerStore implements server.Repository
type InMemoryServerStore struct {
	*InMemoryStore[*server.Server]

	mu      sync.Mutex
	counter int
}

func NewInMemoryServerStore() *InMemoryServerStore {
	return &InMemoryServerStore{
		InMemoryStore: NewInMemoryStore[*server.Server](),
	}
}

func copyServer(srv *server.Server) *server.Server {
	if srv == nil {
		return nil
	}
	cp := *srv
	cp.DefaultNameservers = append([]string(nil), srv.DefaultNameservers...)
	return &cp
}

func (s *InMemoryServerStore) Create(ctx context.Context, srv *server.Server) error {
	return s.InMemoryStore.Create(ctx, srv.ID, copyServer(srv))
}

func (s *InMemoryServerStore) Get(ctx context.Context, id string) (*server.Server, error) {
	srv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyServer(srv), nil
}

func (s *InMemoryServerStore) ListActive(ctx context.Context) ([]*server.Server, error) {
	servers, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, item *server.Server, _ interface{}) bool {
			return item.ServerStatus == types.ServerStatusActive
		},
		func(i, j *server.Server) bool {
			return i.CurrentAccounts < j.CurrentAccounts
		})
	if err != nil {
		return nil, err
	}
	return lo.Map(servers, func(srv *server.Server, _ int) *server.Server {
		return copyServer(srv)
	}), nil
}

func (s *InMemoryServerStore) Update(ctx context.Context, srv *server.Server) error {
	return s.InMemoryStore.Update(ctx, srv.ID, copyServer(srv))
}

func (s *InMemoryServerStore) IncrementAccounts(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}

	next := srv.CurrentAccounts + delta
	if next < 0 || next > srv.MaxAccounts {
		return ierr.NewError("server capacity exhausted").
			WithHintf("Server %s cannot hold %d accounts", id, next).
			Mark(ierr.ErrInvalidOperation)
	}

	cp := copyServer(srv)
	cp.CurrentAccounts = next
	return s.InMemoryStore.Update(ctx, id, cp)
}

func (s *InMemoryServerStore) NextUsernameCounter(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return s.counter, nil
}
