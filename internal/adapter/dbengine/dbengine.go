package dbengine

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

// CreateDatabaseRequest provisions one database with a dedicated owner user.
// Password is transmitted once and never logged.
type CreateDatabaseRequest struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Password string `json:"-"`
}

// Database is the provisioning result
type Database struct {
	DatabaseID string `json:"database_id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
}

// Provider is the contract over the managed database platform. CreateDatabase
// with the same idemKey is safe to repeat.
type Provider interface {
	CreateDatabase(ctx context.Context, req CreateDatabaseRequest, idemKey string) (*Database, error)
	DropDatabase(ctx context.Context, databaseID string) error
}

type httpProvider struct {
	endpoint config.AdapterEndpoint
	client   httpclient.Client
	logger   *logger.Logger
}

// NewProvider creates a database provider against the configured endpoint
func NewProvider(endpoint config.AdapterEndpoint, client httpclient.Client, logger *logger.Logger) Provider {
	return &httpProvider{endpoint: endpoint, client: client, logger: logger}
}

func (p *httpProvider) CreateDatabase(ctx context.Context, req CreateDatabaseRequest, idemKey string) (*Database, error) {
	body, _ := json.Marshal(map[string]string{
		"name":     req.Name,
		"owner":    req.Owner,
		"password": req.Password,
	})

	resp, err := p.send(ctx, http.MethodPost, "/v1/databases", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			if db := databaseFromConflict(err); db != nil {
				return db, err
			}
		}
		return nil, err
	}

	var db Database
	if err := json.Unmarshal(resp.Body, &db); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Database platform returned malformed response").
			Mark(ierr.ErrAdapterRetryable)
	}
	return &db, nil
}

func (p *httpProvider) DropDatabase(ctx context.Context, databaseID string) error {
	_, err := p.send(ctx, http.MethodDelete, "/v1/databases/"+databaseID, nil, "")
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
		return nil, adapter.ClassifyHTTPError("dbengine "+path, err)
	}
	return resp, nil
}

func databaseFromConflict(err error) *Database {
	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		return nil
	}
	var db Database
	if jsonErr := json.Unmarshal(httpErr.Response, &db); jsonErr != nil || db.DatabaseID == "" {
		return nil
	}
	return &db
}
