package dns

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

// RecordType enumerates the record types the zone backend accepts
type RecordType string

const (
	RecordTypeA     RecordType = "A"
	RecordTypeAAAA  RecordType = "AAAA"
	RecordTypeCNAME RecordType = "CNAME"
	RecordTypeMX    RecordType = "MX"
	RecordTypeTXT   RecordType = "TXT"
	RecordTypeNS    RecordType = "NS"
	RecordTypeSRV   RecordType = "SRV"
	RecordTypeCAA   RecordType = "CAA"
)

// Record is one resource record in a zone. Priority is only meaningful for
// MX and SRV records.
type Record struct {
	Name     string     `json:"name"`
	Type     RecordType `json:"type"`
	Content  string     `json:"content"`
	TTL      int        `json:"ttl"`
	Priority int        `json:"priority,omitempty"`
}

// Zone is the result of creating a zone on the backend
type Zone struct {
	ZoneID      string   `json:"zone_id"`
	Domain      string   `json:"domain"`
	Nameservers []string `json:"nameservers"`
}

// Provider is the contract over the DNS control plane. CreateZone with the
// same idemKey is safe to repeat.
type Provider interface {
	CreateZone(ctx context.Context, domain string, nameservers []string, idemKey string) (*Zone, error)
	AddRecord(ctx context.Context, zoneID string, rec Record, idemKey string) error
	DeleteZone(ctx context.Context, zoneID string) error
}

type httpProvider struct {
	endpoint config.AdapterEndpoint
	client   httpclient.Client
	logger   *logger.Logger
}

// NewProvider creates a DNS provider against the configured endpoint
func NewProvider(endpoint config.AdapterEndpoint, client httpclient.Client, logger *logger.Logger) Provider {
	return &httpProvider{endpoint: endpoint, client: client, logger: logger}
}

func (p *httpProvider) CreateZone(ctx context.Context, domain string, nameservers []string, idemKey string) (*Zone, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"domain":      domain,
		"nameservers": nameservers,
	})

	resp, err := p.send(ctx, http.MethodPost, "/v1/zones", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			if zone := zoneFromConflict(err); zone != nil {
				return zone, err
			}
		}
		return nil, err
	}

	var zone Zone
	if err := json.Unmarshal(resp.Body, &zone); err != nil {
		return nil, ierr.WithError(err).
			WithHint("DNS backend returned malformed zone").
			Mark(ierr.ErrAdapterRetryable)
	}
	return &zone, nil
}

func (p *httpProvider) AddRecord(ctx context.Context, zoneID string, rec Record, idemKey string) error {
	body, _ := json.Marshal(rec)
	_, err := p.send(ctx, http.MethodPost, "/v1/zones/"+zoneID+"/records", body, idemKey)
	if ierr.IsAlreadyExists(err) {
		// Identical record already present from a prior attempt.
		return nil
	}
	return err
}

func (p *httpProvider) DeleteZone(ctx context.Context, zoneID string) error {
	_, err := p.send(ctx, http.MethodDelete, "/v1/zones/"+zoneID, nil, "")
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusNotFound {
			// Already gone; deletion is idempotent.
			return nil
		}
		return adapter.ClassifyHTTPError("dns delete zone", err)
	}
	return nil
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
		return nil, adapter.ClassifyHTTPError("dns "+path, err)
	}
	return resp, nil
}

func zoneFromConflict(err error) *Zone {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return nil
	}
	var zone Zone
	if jsonErr := json.Unmarshal(httpErr.Response, &zone); jsonErr != nil || zone.ZoneID == "" {
		return nil
	}
	return &zone
}
