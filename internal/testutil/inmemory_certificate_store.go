package testutil

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/certificate"
	"github.com/samber/lo"
)

// InMemoryCertificateStore implements certificate.Repository
type InMemoryCertificateStore struct {
	*InMemoryStore[*certificate.Certificate]
}

func NewInMemoryCertificateStore() *InMemoryCertificateStore {
	return &InMemoryCertificateStore{
		InMemoryStore: NewInMemoryStore[*certificate.Certificate](),
	}
}

func copyCertificate(crt *certificate.Certificate) *certificate.Certificate {
	if crt == nil {
		return nil
	}
	cp := *crt
	if crt.RemindedAt != nil {
		cp.RemindedAt = lo.ToPtr(*crt.RemindedAt)
	}
	return &cp
}

func (s *InMemoryCertificateStore) Create(ctx context.Context, crt *certificate.Certificate) error {
	return s.InMemoryStore.Create(ctx, crt.ID, copyCertificate(crt))
}

func (s *InMemoryCertificateStore) Get(ctx context.Context, id string) (*certificate.Certificate, error) {
	crt, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyCertificate(crt), nil
}

func (s *InMemoryCertificateStore) Update(ctx context.Context, crt *certificate.Certificate) error {
	return s.InMemoryStore.Update(ctx, crt.ID, copyCertificate(crt))
}

func (s *InMemoryCertificateStore) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*certificate.Certificate, error) {
	now := time.Now().UTC()
	certs, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, item *certificate.Certificate, _ interface{}) bool {
			return item.NotAfter.After(now) && item.NotAfter.Before(cutoff)
		},
		func(i, j *certificate.Certificate) bool {
			return i.NotAfter.Before(j.NotAfter)
		})
	if err != nil {
		return nil, err
	}
	return lo.Map(certs, func(crt *certificate.Certificate, _ int) *certificate.Certificate {
		return copyCertificate(crt)
	}), nil
}
