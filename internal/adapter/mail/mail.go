package mail

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

// CreateMailboxRequest provisions one mailbox on the mail platform. Password
// is transmitted once and never logged.
type CreateMailboxRequest struct {
	Address  string `json:"address"`
	Password string `json:"-"`
	QuotaMB  int    `json:"quota_mb"`
}

// Mailbox is the provisioning result
type Mailbox struct {
	MailboxID  string `json:"mailbox_id"`
	Address    string `json:"address"`
	WebmailURL string `json:"webmail_url"`
}

// Provider is the contract over the mail platform. CreateMailbox with the
// same idemKey is safe to repeat.
type Provider interface {
	CreateMailbox(ctx context.Context, req CreateMailboxRequest, idemKey string) (*Mailbox, error)
	ChangePassword(ctx context.Context, mailboxID, password string) error
	SetQuota(ctx context.Context, mailboxID string, quotaMB int) error
	Delete(ctx context.Context, mailboxID string) error
}

type httpProvider struct {
	endpoint config.AdapterEndpoint
	client   httpclient.Client
	logger   *logger.Logger
}

// NewProvider creates a mail provider against the configured endpoint
func NewProvider(endpoint config.AdapterEndpoint, client httpclient.Client, logger *logger.Logger) Provider {
	return &httpProvider{endpoint: endpoint, client: client, logger: logger}
}

func (p *httpProvider) CreateMailbox(ctx context.Context, req CreateMailboxRequest, idemKey string) (*Mailbox, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"address":  req.Address,
		"password": req.Password,
		"quota_mb": req.QuotaMB,
	})

	resp, err := p.send(ctx, http.MethodPost, "/v1/mailboxes", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			if mb := mailboxFromConflict(err); mb != nil {
				return mb, err
			}
		}
		return nil, err
	}

	var mb Mailbox
	if err := json.Unmarshal(resp.Body, &mb); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Mail platform returned malformed response").
			Mark(ierr.ErrAdapterRetryable)
	}
	return &mb, nil
}

func (p *httpProvider) ChangePassword(ctx context.Context, mailboxID, password string) error {
	body, _ := json.Marshal(map[string]string{"password": password})
	_, err := p.send(ctx, http.MethodPut, "/v1/mailboxes/"+mailboxID+"/password", body, "")
	return err
}

func (p *httpProvider) SetQuota(ctx context.Context, mailboxID string, quotaMB int) error {
	body, _ := json.Marshal(map[string]int{"quota_mb": quotaMB})
	_, err := p.send(ctx, http.MethodPut, "/v1/mailboxes/"+mailboxID+"/quota", body, "")
	return err
}

func (p *httpProvider) Delete(ctx context.Context, mailboxID string) error {
	_, err := p.send(ctx, http.MethodDelete, "/v1/mailboxes/"+mailboxID, nil, "")
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusNotFound {
			return nil
		}
	}
	return err
}

func (p *httpProvider) send(ctx context.Context, method, path string, body []byte, idemKey string) (*httpclient.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + p.endpoint.APIKey,
		"Content-Type":  "application/json",
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     p.endpoint.BaseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, adapter.ClassifyHTTPError("mail "+path, err)
	}
	return resp, nil
}

func mailboxFromConflict(err error) *Mailbox {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return nil
	}
	var mb Mailbox
	if jsonErr := json.Unmarshal(httpErr.Response, &mb); jsonErr != nil || mb.MailboxID == "" {
		return nil
	}
	return &mb
}
