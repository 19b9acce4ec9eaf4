package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// InvoiceStatus is the status of a renewal invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusFinalized InvoiceStatus = "finalized"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusVoid      InvoiceStatus = "void"
)

func (s InvoiceStatus) Validate() error {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusFinalized, InvoiceStatusPaid, InvoiceStatusVoid:
		return nil
	}
	return ierr.NewError("invalid invoice status").
		WithHintf("Unknown invoice status: %s", s).
		Mark(ierr.ErrValidation)
}
