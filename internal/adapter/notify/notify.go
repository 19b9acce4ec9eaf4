package notify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/config"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// WelcomeEmail carries everything the relay needs to render and send the
// post-provisioning welcome message. TemporaryPassword is transmitted to the
// relay once and never logged.
type WelcomeEmail struct {
	To                string   `json:"to"`
	CustomerName      string   `json:"customer_name"`
	Domain            string   `json:"domain"`
	Username          string   `json:"username"`
	TemporaryPassword string   `json:"-"`
	ControlPanelURL   string   `json:"control_panel_url"`
	WebmailURL        string   `json:"webmail_url"`
	DefaultMailbox    string   `json:"default_mailbox"`
	Nameservers       []string `json:"nameservers"`
}

// Notifier is the contract over the transactional email relay. SendWelcome
// with the same idemKey is safe to repeat.
type Notifier interface {
	SendWelcome(ctx context.Context, email WelcomeEmail, idemKey string) error
	SendSSLExpiryReminder(ctx context.Context, to, domain string, daysLeft int, idemKey string) error
	SendPaymentOverdue(ctx context.Context, to, domain string, idemKey string) error
}

type httpNotifier struct {
	endpoint config.AdapterEndpoint
	client   httpclient.Client
	logger   *logger.Logger
}

// NewNotifier creates a notifier against the configured relay endpoint
func NewNotifier(endpoint config.AdapterEndpoint, client httpclient.Client, logger *logger.Logger) Notifier {
	return &httpNotifier{endpoint: endpoint, client: client, logger: logger}
}

func (n *httpNotifier) SendWelcome(ctx context.Context, email WelcomeEmail, idemKey string) error {
	payload := map[string]interface{}{
		"template": "welcome",
		"to":       email.To,
		"data": map[string]interface{}{
			"customer_name":      email.CustomerName,
			"domain":             email.Domain,
			"username":           email.Username,
			"temporary_password": email.TemporaryPassword,
			"control_panel_url":  email.ControlPanelURL,
			"webmail_url":        email.WebmailURL,
			"default_mailbox":    email.DefaultMailbox,
			"nameservers":        email.Nameservers,
		},
	}
	return n.dispatch(ctx, payload, idemKey)
}

func (n *httpNotifier) SendSSLExpiryReminder(ctx context.Context, to, domain string, daysLeft int, idemKey string) error {
	payload := map[string]interface{}{
		"template": "ssl_expiry_reminder",
		"to":       to,
		"data": map[string]interface{}{
			"domain":    domain,
			"days_left": daysLeft,
		},
	}
	return n.dispatch(ctx, payload, idemKey)
}

func (n *httpNotifier) SendPaymentOverdue(ctx context.Context, to, domain string, idemKey string) error {
	payload := map[string]interface{}{
		"template": "payment_overdue",
		"to":       to,
		"data": map[string]interface{}{
			"domain": domain,
		},
	}
	return n.dispatch(ctx, payload, idemKey)
}

func (n *httpNotifier) dispatch(ctx context.Context, payload map[string]interface{}, idemKey string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode notification payload").
			Mark(ierr.ErrAdapterFatal)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + n.endpoint.APIKey,
		"Content-Type":  "application/json",
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	_, err = n.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     n.endpoint.BaseURL + "/v1/messages",
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		classified := adapter.ClassifyHTTPError("notify", err)
		if ierr.IsAlreadyExists(classified) {
			// The relay already accepted this idemKey.
			return nil
		}
		return classified
	}
	return nil
}
