package testutil

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/paymentevent"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// InMemoryPaymentEventStore implements paymentevent.Repository
type InMemoryPaymentEventStore struct {
	*InMemoryStore[*paymentevent.Event]
}

func NewInMemoryPaymentEventStore() *InMemoryPaymentEventStore {
	return &InMemoryPaymentEventStore{
		InMemoryStore: NewInMemoryStore[*paymentevent.Event](),
	}
}

func copyEvent(e *paymentevent.Event) *paymentevent.Event {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	return &cp
}

func (s *InMemoryPaymentEventStore) Create(ctx context.Context, e *paymentevent.Event) error {
	return s.InMemoryStore.Create(ctx, e.ID, copyEvent(e))
}

func (s *InMemoryPaymentEventStore) GetByExternalID(ctx context.Context, externalEventID string) (*paymentevent.Event, error) {
	events, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *paymentevent.Event, _ interface{}) bool {
		return item.ExternalEventID == externalEventID
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ierr.NewError("payment event not found").
			WithHintf("No event with external id %s", externalEventID).
			Mark(ierr.ErrNotFound)
	}
	return copyEvent(events[0]), nil
}
