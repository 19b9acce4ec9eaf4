package website

import (
	"context"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Website is the provisioned asset: one hosted site per succeeded
// provisioning task. Created pending when the orchestrator starts and set
// active only when the final step succeeds.
type Website struct {
	ID string `db:"id" json:"id"`

	CustomerID     string `db:"customer_id" json:"customer_id"`
	SubscriptionID string `db:"subscription_id" json:"subscription_id"`
	ServerID       string `db:"server_id" json:"server_id"`

	Domain string `db:"domain" json:"domain"`

	// HostingAccountID is the control panel's account identifier; set when the
	// account step succeeds and used by suspension and termination.
	HostingAccountID string `db:"hosting_account_id" json:"hosting_account_id"`

	DocumentRoot string `db:"document_root" json:"document_root"`

	DNSZoneID string `db:"dns_zone_id" json:"dns_zone_id"`

	SSLCertID string `db:"ssl_cert_id" json:"ssl_cert_id"`

	DefaultMailbox string `db:"default_mailbox" json:"default_mailbox"`

	DefaultDatabase string `db:"default_database" json:"default_database"`

	WebsiteStatus types.WebsiteStatus `db:"website_status" json:"website_status"`

	types.BaseModel
}

// New creates a pending website for a subscription on a server
func New(ctx context.Context, customerID, subscriptionID, serverID, domain string) *Website {
	return &Website{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBSITE),
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		ServerID:       serverID,
		Domain:         domain,
		DocumentRoot:   "/home/" + domain + "/public_html",
		WebsiteStatus:  types.WebsiteStatusPending,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
}

func (w *Website) Validate() error {
	if w.Domain == "" {
		return ierr.NewError("website domain is required").
			WithHint("Domain must be provided").
			Mark(ierr.ErrValidation)
	}
	if w.SubscriptionID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Subscription id must be provided").
			Mark(ierr.ErrValidation)
	}
	return w.WebsiteStatus.Validate()
}
