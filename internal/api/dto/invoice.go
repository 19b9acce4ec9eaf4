package dto

import (
	"time"

	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/types"
)

// InvoiceResponse is the API shape of a renewal invoice
type InvoiceResponse struct {
	ID             string              `json:"id"`
	CustomerID     string              `json:"customer_id"`
	SubscriptionID string              `json:"subscription_id"`
	PeriodStart    time.Time           `json:"period_start"`
	PeriodEnd      time.Time           `json:"period_end"`
	AmountMinor    int64               `json:"amount_minor"`
	AmountDisplay  string              `json:"amount_display"`
	Currency       string              `json:"currency"`
	DueDate        time.Time           `json:"due_date"`
	Status         types.InvoiceStatus `json:"status"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
}

// ToInvoiceResponse converts an invoice
func ToInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:             inv.ID,
		CustomerID:     inv.CustomerID,
		SubscriptionID: inv.SubscriptionID,
		PeriodStart:    inv.PeriodStart,
		PeriodEnd:      inv.PeriodEnd,
		AmountMinor:    inv.AmountMinor,
		AmountDisplay:  inv.AmountDisplay(),
		Currency:       inv.Currency,
		DueDate:        inv.DueDate,
		Status:         inv.InvoiceStatus,
		PaidAt:         inv.PaidAt,
	}
}
