package hosting

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// nativeAdapter talks to our in-house node agent, a plain REST service that
// runs on panel-less servers.
type nativeAdapter struct {
	client httpclient.Client
	logger *logger.Logger
}

func newNativeAdapter(client httpclient.Client, logger *logger.Logger) Adapter {
	return &nativeAdapter{client: client, logger: logger}
}

type nativeAccountResponse struct {
	AccountID string `json:"account_id"`
	PanelURL  string `json:"panel_url"`
}

func (a *nativeAdapter) CreateAccount(ctx context.Context, srv *server.Server, req CreateAccountRequest, idemKey string) (*CreateAccountResult, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"username": req.Username,
		"domain":   req.Domain,
		"password": req.Password,
		"plan":     req.Plan,
		"quota_mb": req.QuotaMB,
	})

	resp, err := a.call(ctx, srv, http.MethodPost, "/v1/accounts", body, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			// The agent includes the existing account in the conflict body.
			if httpErr, ok := httpclient.IsHTTPError(err); ok {
				var out nativeAccountResponse
				if jsonErr := json.Unmarshal(httpErr.Response, &out); jsonErr == nil && out.AccountID != "" {
					return &CreateAccountResult{AccountID: out.AccountID, ControlPanelURL: out.PanelURL}, err
				}
			}
			return &CreateAccountResult{AccountID: req.Username, ControlPanelURL: srv.ControlPanelBaseURL}, err
		}
		return nil, err
	}

	var out nativeAccountResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Node agent returned malformed response").
			Mark(ierr.ErrAdapterRetryable)
	}

	return &CreateAccountResult{
		AccountID:       out.AccountID,
		ControlPanelURL: out.PanelURL,
	}, nil
}

func (a *nativeAdapter) Suspend(ctx context.Context, srv *server.Server, accountID string) error {
	_, err := a.call(ctx, srv, http.MethodPost, "/v1/accounts/"+accountID+"/suspend", nil, "")
	return err
}

func (a *nativeAdapter) Unsuspend(ctx context.Context, srv *server.Server, accountID string) error {
	_, err := a.call(ctx, srv, http.MethodPost, "/v1/accounts/"+accountID+"/unsuspend", nil, "")
	return err
}

func (a *nativeAdapter) Terminate(ctx context.Context, srv *server.Server, accountID string) error {
	_, err := a.call(ctx, srv, http.MethodDelete, "/v1/accounts/"+accountID, nil, "")
	return err
}

func (a *nativeAdapter) call(ctx context.Context, srv *server.Server, method, path string, body []byte, idemKey string) (*httpclient.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + srv.AdminToken,
		"Content-Type":  "application/json",
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
		return nil, adapter.ClassifyHTTPError("node agent "+path, err)
	}
	return resp, nil
}
