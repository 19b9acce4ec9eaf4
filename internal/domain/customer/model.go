package customer

import (
	"context"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Customer represents an end buyer of hosting. One customer exists per
// (tenant, email); the webhook intake upserts on that key.
type Customer struct {
	ID string `db:"id" json:"id"`

	Email string `db:"email" json:"email"`

	Name string `db:"name" json:"name"`

	Phone string `db:"phone" json:"phone"`

	AddressLine1      string `db:"address_line1" json:"address_line1"`
	AddressLine2      string `db:"address_line2" json:"address_line2"`
	AddressCity       string `db:"address_city" json:"address_city"`
	AddressPostalCode string `db:"address_postal_code" json:"address_postal_code"`
	AddressCountry    string `db:"address_country" json:"address_country"`

	types.BaseModel
}

// New creates a customer for the tenant in context
func New(ctx context.Context, email, name string) *Customer {
	return &Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		Email:     email,
		Name:      name,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

func (c *Customer) Validate() error {
	if c.Email == "" {
		return ierr.NewError("customer email is required").
			WithHint("Email must be provided").
			Mark(ierr.ErrValidation)
	}
	if len(c.AddressLine1) > 255 || len(c.AddressLine2) > 255 {
		return ierr.NewError("address line too long").
			WithHint("Address lines must be less than 255 characters").
			Mark(ierr.ErrValidation)
	}
	if c.AddressCountry != "" && len(c.AddressCountry) != 2 {
		return ierr.NewError("invalid country code format").
			WithHint("Country code must be 2 characters").
			Mark(ierr.ErrValidation)
	}
	return nil
}
