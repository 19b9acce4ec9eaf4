package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hoststack/hoststack/internal/domain/idempotency"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// InMemoryIdempotencyStore implements idempotency.Repository with the same
// (tenant, scope, external key) uniqueness as the postgres table.
type InMemoryIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		records: make(map[string]*idempotency.Record),
	}
}

func idempotencyKey(tenantID, scope, externalKey string) string {
	return tenantID + ":" + scope + ":" + externalKey
}

func copyRecord(r *idempotency.Record) *idempotency.Record {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Outcome = append([]byte(nil), r.Outcome...)
	return &cp
}

func (s *InMemoryIdempotencyStore) Insert(ctx context.Context, record *idempotency.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := idempotencyKey(record.TenantID, record.Scope, record.ExternalKey)
	if _, exists := s.records[key]; exists {
		return ierr.NewError("idempotency record already exists").
			WithHintf("Key %s in scope %s was already used", record.ExternalKey, record.Scope).
			Mark(ierr.ErrAlreadyExists)
	}
	s.records[key] = copyRecord(record)
	return nil
}

func (s *InMemoryIdempotencyStore) Get(ctx context.Context, scope, externalKey string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := idempotencyKey(types.GetTenantID(ctx), scope, externalKey)
	if record, exists := s.records[key]; exists {
		return copyRecord(record), nil
	}
	return nil, ierr.NewError("idempotency record not found").
		WithHintf("No record for key %s in scope %s", externalKey, scope).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryIdempotencyStore) Delete(ctx context.Context, scope, externalKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := idempotencyKey(types.GetTenantID(ctx), scope, externalKey)
	if _, exists := s.records[key]; !exists {
		return ierr.NewError("idempotency record not found").
			WithHintf("No record for key %s in scope %s", externalKey, scope).
			Mark(ierr.ErrNotFound)
	}
	delete(s.records, key)
	return nil
}

func (s *InMemoryIdempotencyStore) DeleteExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	removed := 0
	for key, record := range s.records {
		if record.IsExpired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}

// Clear removes all records
func (s *InMemoryIdempotencyStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*idempotency.Record)
}
