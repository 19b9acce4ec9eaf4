package checkout

import (
	"context"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Session records one in-flight purchase originating from the payment provider
type Session struct {
	ID string `db:"id" json:"id"`

	// ExternalSessionID is the payment provider's session id; globally unique
	ExternalSessionID string `db:"external_session_id" json:"external_session_id"`

	CustomerEmail string `db:"customer_email" json:"customer_email"`

	ProductCode string `db:"product_code" json:"product_code"`

	BillingPeriod types.BillingPeriod `db:"billing_period" json:"billing_period"`

	// AmountMinor is the purchase amount in minor currency units
	AmountMinor int64 `db:"amount_minor" json:"amount_minor"`

	Currency string `db:"currency" json:"currency"`

	// Domain is the hosting domain purchased in this session
	Domain string `db:"domain" json:"domain"`

	SessionStatus types.CheckoutSessionStatus `db:"session_status" json:"session_status"`

	Metadata map[string]string `db:"-" json:"metadata"`

	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	types.BaseModel
}

// NewSession creates a pending session for an external session id
func NewSession(ctx context.Context, externalSessionID string) *Session {
	return &Session{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CHECKOUT_SESSION),
		ExternalSessionID: externalSessionID,
		SessionStatus:     types.CheckoutSessionStatusPending,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}

// TransitionTo enforces monotonic status transitions; terminal states never change.
func (s *Session) TransitionTo(target types.CheckoutSessionStatus) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if s.SessionStatus.IsTerminal() {
		return ierr.NewError("checkout session is in a terminal state").
			WithHintf("Session %s is already %s", s.ID, s.SessionStatus).
			WithReportableDetails(map[string]any{
				"session_id": s.ID,
				"status":     s.SessionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	s.SessionStatus = target
	if target == types.CheckoutSessionStatusCompleted {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
	return nil
}

func (s *Session) Validate() error {
	if s.ExternalSessionID == "" {
		return ierr.NewError("external session id is required").
			WithHint("External session id must be provided").
			Mark(ierr.ErrValidation)
	}
	if s.CustomerEmail == "" {
		return ierr.NewError("customer email is required").
			WithHint("Customer email must be provided").
			Mark(ierr.ErrValidation)
	}
	return s.SessionStatus.Validate()
}
