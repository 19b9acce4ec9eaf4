package certificate

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/types"
)

// Certificate tracks an issued SSL certificate so the expiry reminder sweep
// can find certificates nearing their not-after date.
type Certificate struct {
	ID string `db:"id" json:"id"`

	WebsiteID string `db:"website_id" json:"website_id"`

	Domain string `db:"domain" json:"domain"`

	// CertID is the certificate authority's identifier
	CertID string `db:"cert_id" json:"cert_id"`

	NotBefore time.Time `db:"not_before" json:"not_before"`
	NotAfter  time.Time `db:"not_after" json:"not_after"`

	// RemindedAt marks the last expiry reminder so one window sends one reminder
	RemindedAt *time.Time `db:"reminded_at" json:"reminded_at,omitempty"`

	types.BaseModel
}

// New records an issued certificate
func New(ctx context.Context, websiteID, domain, certID string, notBefore, notAfter time.Time) *Certificate {
	return &Certificate{
		ID:        types.GenerateUUIDWithPrefix("cert"),
		WebsiteID: websiteID,
		Domain:    domain,
		CertID:    certID,
		NotBefore: notBefore,
		NotAfter:  notAfter,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
}

// NeedsReminder reports whether the certificate expires within the window and
// has not been reminded since the window opened.
func (c *Certificate) NeedsReminder(now time.Time, windowDays int) bool {
	if c.NotAfter.Before(now) {
		return false
	}
	windowStart := c.NotAfter.AddDate(0, 0, -windowDays)
	if now.Before(windowStart) {
		return false
	}
	return c.RemindedAt == nil || c.RemindedAt.Before(windowStart)
}
