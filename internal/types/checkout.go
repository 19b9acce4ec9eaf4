package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// CheckoutSessionStatus is the status of an in-flight purchase
type CheckoutSessionStatus string

const (
	CheckoutSessionStatusPending   CheckoutSessionStatus = "pending"
	CheckoutSessionStatusCompleted CheckoutSessionStatus = "completed"
	CheckoutSessionStatusAbandoned CheckoutSessionStatus = "abandoned"
	CheckoutSessionStatusFailed    CheckoutSessionStatus = "failed"
)

func (s CheckoutSessionStatus) Validate() error {
	switch s {
	case CheckoutSessionStatusPending,
		CheckoutSessionStatusCompleted,
		CheckoutSessionStatusAbandoned,
		CheckoutSessionStatusFailed:
		return nil
	}
	return ierr.NewError("invalid checkout session status").
		WithHintf("Unknown checkout session status: %s", s).
		Mark(ierr.ErrValidation)
}

// IsTerminal reports whether the status can never change again.
// Transitions are monotonic: pending -> completed | abandoned | failed.
func (s CheckoutSessionStatus) IsTerminal() bool {
	return s != CheckoutSessionStatusPending
}

// PaymentEventKind is the kind of an inbound payment provider event
type PaymentEventKind string

const (
	PaymentEventCheckoutCompleted PaymentEventKind = "checkout.completed"
	PaymentEventCheckoutExpired   PaymentEventKind = "checkout.expired"
	PaymentEventPaymentFailed     PaymentEventKind = "payment.failed"
)
