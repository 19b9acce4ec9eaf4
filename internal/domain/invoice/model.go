package invoice

import (
	"context"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is a renewal invoice generated by the recurring billing sweep.
type Invoice struct {
	ID string `db:"id" json:"id"`

	CustomerID     string `db:"customer_id" json:"customer_id"`
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`

	// PeriodStart/PeriodEnd bound the billing cycle this invoice covers
	PeriodStart time.Time `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time `db:"period_end" json:"period_end"`

	AmountMinor int64  `db:"amount_minor" json:"amount_minor"`
	Currency    string `db:"currency" json:"currency"`

	DueDate time.Time `db:"due_date" json:"due_date"`

	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`

	PaidAt *time.Time `db:"paid_at" json:"paid_at,omitempty"`

	types.BaseModel
}

// New creates a draft invoice for one subscription billing cycle
func New(ctx context.Context, customerID, subscriptionID string, periodStart, periodEnd time.Time, amountMinor int64, currency string) *Invoice {
	return &Invoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		AmountMinor:    amountMinor,
		Currency:       currency,
		DueDate:        periodStart,
		InvoiceStatus:  types.InvoiceStatusDraft,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

// AmountDisplay renders the amount in major units for customer-facing text
func (i *Invoice) AmountDisplay() string {
	return decimal.NewFromInt(i.AmountMinor).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// MarkPaid records a confirmed payment
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.InvoiceStatus == types.InvoiceStatusVoid {
		return ierr.NewError("cannot pay a void invoice").
			WithHintf("Invoice %s is void", i.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusPaid
	i.PaidAt = &at
	return nil
}

// IsPastDue reports whether the invoice is unpaid beyond due date + grace
func (i *Invoice) IsPastDue(now time.Time, graceDays int) bool {
	if i.InvoiceStatus == types.InvoiceStatusPaid || i.InvoiceStatus == types.InvoiceStatusVoid {
		return false
	}
	return now.After(i.DueDate.AddDate(0, 0, graceDays))
}
