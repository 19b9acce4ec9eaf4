package types

import (
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
)

// SubscriptionStatus is the status of a recurring entitlement
type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusPending,
		SubscriptionStatusActive,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled:
		return nil
	}
	return ierr.NewError("invalid subscription status").
		WithHintf("Unknown subscription status: %s", s).
		Mark(ierr.ErrValidation)
}

// BillingPeriod is the recurrence of a subscription
type BillingPeriod string

const (
	BillingPeriodMonthly   BillingPeriod = "monthly"
	BillingPeriodYearly    BillingPeriod = "yearly"
	BillingPeriodBiennial  BillingPeriod = "biennial"
	BillingPeriodTriennial BillingPeriod = "triennial"
)

func (p BillingPeriod) Validate() error {
	switch p {
	case BillingPeriodMonthly, BillingPeriodYearly, BillingPeriodBiennial, BillingPeriodTriennial:
		return nil
	}
	return ierr.NewError("invalid billing period").
		WithHintf("Unknown billing period: %s", p).
		Mark(ierr.ErrValidation)
}

// NextBillingDate advances a billing anchor by one period.
func (p BillingPeriod) NextBillingDate(from time.Time) time.Time {
	switch p {
	case BillingPeriodMonthly:
		return from.AddDate(0, 1, 0)
	case BillingPeriodYearly:
		return from.AddDate(1, 0, 0)
	case BillingPeriodBiennial:
		return from.AddDate(2, 0, 0)
	case BillingPeriodTriennial:
		return from.AddDate(3, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}
