package cert

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/config"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// Certificate is the issuance result from the certificate authority frontend
type Certificate struct {
	CertID    string    `json:"cert_id"`
	Domain    string    `json:"domain"`
	NotBefore time.Time `json:"not_before"`
	NotAfter  time.Time `json:"not_after"`
}

// Issuer is the contract over the certificate backend. Issue with the same
// idemKey is safe to repeat.
type Issuer interface {
	Issue(ctx context.Context, domain, contactEmail string, idemKey string) (*Certificate, error)
	Renew(ctx context.Context, certID string) (*Certificate, error)
	Revoke(ctx context.Context, certID string) error
}

type httpIssuer struct {
	endpoint config.AdapterEndpoint
	client   httpclient.Client
	logger   *logger.Logger
}

// NewIssuer creates an issuer against the configured endpoint
func NewIssuer(endpoint config.AdapterEndpoint, client httpclient.Client, logger *logger.Logger) Issuer {
	return &httpIssuer{endpoint: endpoint, client: client, logger: logger}
}

func (i *httpIssuer) Issue(ctx context.Context, domain, contactEmail, idemKey string) (*Certificate, error) {
	body, _ := json.Marshal(map[string]string{
		"domain":        domain,
		"contact_email": contactEmail,
	})

	resp, err := i.send(ctx, http.MethodPost, "/v1/certificates", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			if cert := certFromConflict(err); cert != nil {
				return cert, err
			}
		}
		return nil, err
	}
	return decodeCert(resp.Body)
}

func (i *httpIssuer) Renew(ctx context.Context, certID string) (*Certificate, error) {
	resp, err := i.send(ctx, http.MethodPost, "/v1/certificates/"+certID+"/renew", nil, "")
	if err != nil {
		return nil, err
	}
	return decodeCert(resp.Body)
}

func (i *httpIssuer) Revoke(ctx context.Context, certID string) error {
	_, err := i.send(ctx, http.MethodDelete, "/v1/certificates/"+certID, nil, "")
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusNotFound {
			return nil
		}
	}
	return err
}

func (i *httpIssuer) send(ctx context.Context, method, path string, body []byte, idemKey string) (*httpclient.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + i.endpoint.APIKey,
		"Content-Type":  "application/json",
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	resp, err := i.client.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     i.endpoint.BaseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, adapter.ClassifyHTTPError("cert "+path, err)
	}
	return resp, nil
}

func decodeCert(body []byte) (*Certificate, error) {
	var cert Certificate
	if err := json.Unmarshal(body, &cert); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Certificate backend returned malformed response").
			Mark(ierr.ErrAdapterRetryable)
	}
	return &cert, nil
}

func certFromConflict(err error) *Certificate {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return nil
	}
	var cert Certificate
	if jsonErr := json.Unmarshal(httpErr.Response, &cert); jsonErr != nil || cert.CertID == "" {
		return nil
	}
	return &cert
}
