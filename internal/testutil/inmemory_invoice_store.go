package testutil

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/domain/invoice"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	cp := *inv
	if inv.PaidAt != nil {
		cp.PaidAt = lo.ToPtr(*inv.PaidAt)
	}
	return &cp
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) GetLatestBySubscription(ctx context.Context, subscriptionID string) (*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, item *invoice.Invoice, _ interface{}) bool {
			return item.SubscriptionID == subscriptionID
		},
		func(i, j *invoice.Invoice) bool {
			return i.PeriodStart.After(j.PeriodStart)
		})
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHintf("No invoice for subscription %s", subscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(invoices[0]), nil
}

func (s *InMemoryInvoiceStore) ListUnpaidDueBefore(ctx context.Context, cutoff time.Time) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, item *invoice.Invoice, _ interface{}) bool {
			return item.InvoiceStatus == types.InvoiceStatusFinalized &&
				item.DueDate.Before(cutoff)
		},
		func(i, j *invoice.Invoice) bool {
			return i.DueDate.Before(j.DueDate)
		})
	if err != nil {
		return nil, err
	}
	return lo.Map(invoices, func(inv *invoice.Invoice, _ int) *invoice.Invoice {
		return copyInvoice(inv)
	}), nil
}
