package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// WebsiteStatus is the status of a provisioned website
type WebsiteStatus string

const (
	WebsiteStatusPending    WebsiteStatus = "pending"
	WebsiteStatusActive     WebsiteStatus = "active"
	WebsiteStatusSuspended  WebsiteStatus = "suspended"
	WebsiteStatusTerminated WebsiteStatus = "terminated"
)

func (s WebsiteStatus) Validate() error {
	switch s {
	case WebsiteStatusPending, WebsiteStatusActive, WebsiteStatusSuspended, WebsiteStatusTerminated:
		return nil
	}
	return ierr.NewError("invalid website status").
		WithHintf("Unknown website status: %s", s).
		Mark(ierr.ErrValidation)
}
