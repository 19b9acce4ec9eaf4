package subscription

import (
	"context"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Subscription is a recurring hosting entitlement. It stays pending until at
// least one provisioning task for it succeeds.
type Subscription struct {
	ID string `db:"id" json:"id"`

	CustomerID string `db:"customer_id" json:"customer_id"`

	ProductCode string `db:"product_code" json:"product_code"`

	BillingPeriod types.BillingPeriod `db:"billing_period" json:"billing_period"`

	// PriceMinor is the recurring price in minor currency units
	PriceMinor int64 `db:"price_minor" json:"price_minor"`

	Currency string `db:"currency" json:"currency"`

	SubscriptionStatus types.SubscriptionStatus `db:"subscription_status" json:"subscription_status"`

	NextBillingAt time.Time `db:"next_billing_at" json:"next_billing_at"`

	// LastInvoicedAt marks the start of the billing cycle that has already
	// been invoiced; the renewal sweep uses it to avoid double invoicing.
	LastInvoicedAt *time.Time `db:"last_invoiced_at" json:"last_invoiced_at,omitempty"`

	Metadata map[string]string `db:"-" json:"metadata"`

	types.BaseModel
}

// New creates a pending subscription priced from a checkout session
func New(ctx context.Context, customerID, productCode string, period types.BillingPeriod, priceMinor int64, currency string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		CustomerID:         customerID,
		ProductCode:        productCode,
		BillingPeriod:      period,
		PriceMinor:         priceMinor,
		Currency:           currency,
		SubscriptionStatus: types.SubscriptionStatusPending,
		NextBillingAt:      period.NextBillingDate(now),
		Metadata:           map[string]string{},
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

// Activate marks the subscription active after a provisioning task succeeded
func (s *Subscription) Activate() error {
	if s.SubscriptionStatus == types.SubscriptionStatusCancelled {
		return ierr.NewError("cannot activate a cancelled subscription").
			WithHintf("Subscription %s is cancelled", s.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	s.SubscriptionStatus = types.SubscriptionStatusActive
	return nil
}

// AdvanceBillingAnchor moves next_billing_at forward one period after a
// confirmed renewal payment.
func (s *Subscription) AdvanceBillingAnchor() {
	s.NextBillingAt = s.BillingPeriod.NextBillingDate(s.NextBillingAt)
}

func (s *Subscription) Validate() error {
	if s.CustomerID == "" {
		return ierr.NewError("customer id is required").
			WithHint("Customer id must be provided").
			Mark(ierr.ErrValidation)
	}
	if s.PriceMinor < 0 {
		return ierr.NewError("price must be non-negative").
			WithHint("Price must be non-negative").
			Mark(ierr.ErrValidation)
	}
	if err := s.BillingPeriod.Validate(); err != nil {
		return err
	}
	return s.SubscriptionStatus.Validate()
}
