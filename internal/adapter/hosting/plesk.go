package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// pleskAdapter talks to the Plesk REST API (/api/v2)
type pleskAdapter struct {
	client httpclient.Client
	logger *logger.Logger
}

func newPleskAdapter(client httpclient.Client, logger *logger.Logger) Adapter {
	return &pleskAdapter{client: client, logger: logger}
}

type pleskDomainResponse struct {
	ID   int    `json:"id"`
	GUID string `json:"guid"`
}

func (a *pleskAdapter) CreateAccount(ctx context.Context, srv *server.Server, req CreateAccountRequest, idemKey string) (*CreateAccountResult, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"name": req.Domain,
		"hosting_settings": map[string]interface{}{
			"ftp_login":    req.Username,
			"ftp_password": req.Password,
		},
		"plan": map[string]string{"name": req.Plan},
	})

	resp, err := a.call(ctx, srv, http.MethodPost, "/api/v2/domains", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			return &CreateAccountResult{
				AccountID:       req.Username,
				ControlPanelURL: fmt.Sprintf("%s:8443", srv.ControlPanelBaseURL),
			}, err
		}
		return nil, err
	}

	var out pleskDomainResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Plesk returned malformed response").
			Mark(ierr.ErrAdapterRetryable)
	}

	return &CreateAccountResult{
		AccountID:       fmt.Sprintf("%d", out.ID),
		ControlPanelURL: fmt.Sprintf("%s:8443", srv.ControlPanelBaseURL),
	}, nil
}

func (a *pleskAdapter) Suspend(ctx context.Context, srv *server.Server, accountID string) error {
	body, _ := json.Marshal(map[string]string{"status": "suspended"})
	_, err := a.call(ctx, srv, http.MethodPut, "/api/v2/domains/"+accountID+"/status", body, "")
	return err
}

func (a *pleskAdapter) Unsuspend(ctx context.Context, srv *server.Server, accountID string) error {
	body, _ := json.Marshal(map[string]string{"status": "active"})
	_, err := a.call(ctx, srv, http.MethodPut, "/api/v2/domains/"+accountID+"/status", body, "")
	return err
}

func (a *pleskAdapter) Terminate(ctx context.Context, srv *server.Server, accountID string) error {
	_, err := a.call(ctx, srv, http.MethodDelete, "/api/v2/domains/"+accountID, nil, "")
	return err
}

func (a *pleskAdapter) call(ctx context.Context, srv *server.Server, method, path string, body []byte, idemKey string) (*httpclient.Response, error) {
	headers := map[string]string{
		"X-API-Key":    srv.AdminToken,
		"Content-Type": "application/json",
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  method,
		URL:     srv.ControlPanelBaseURL + path,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return nil, adapter.ClassifyHTTPError("plesk "+path, err)
	}
	return resp, nil
}
