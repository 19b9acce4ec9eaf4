package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// cpanelAdapter talks to WHM's JSON API (api.version=1)
type cpanelAdapter struct {
	client httpclient.Client
	logger *logger.Logger
}

func newCPanelAdapter(client httpclient.Client, logger *logger.Logger) Adapter {
	return &cpanelAdapter{client: client, logger: logger}
}

type whmResponse struct {
	Metadata struct {
		Result int    `json:"result"`
		Reason string `json:"reason"`
	} `json:"metadata"`
	Data map[string]interface{} `json:"data"`
}

func (a *cpanelAdapter) CreateAccount(ctx context.Context, srv *server.Server, req CreateAccountRequest, idemKey string) (*CreateAccountResult, error) {
	params := url.Values{}
	params.Set("api.version", "1")
	params.Set("username", req.Username)
	params.Set("domain", req.Domain)
	params.Set("password", req.Password)
	params.Set("plan", req.Plan)
	params.Set("quota", fmt.Sprintf("%d", req.QuotaMB))

	resp, err := a.call(ctx, srv, "createacct", params, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			// The account exists from a prior attempt with this idemKey; WHM
			// returns the existing account in the conflict body.
			return a.existingAccount(srv, req.Username), err
		}
		return nil, err
	}

	return &CreateAccountResult{
		AccountID:       req.Username,
		ControlPanelURL: fmt.Sprintf("%s:2083", srv.ControlPanelBaseURL),
	}, a.checkResult(resp, "createacct")
}

func (a *cpanelAdapter) Suspend(ctx context.Context, srv *server.Server, accountID string) error {
	params := url.Values{}
	params.Set("api.version", "1")
	params.Set("user", accountID)
	_, err := a.call(ctx, srv, "suspendacct", params, "")
	return err
}

func (a *cpanelAdapter) Unsuspend(ctx context.Context, srv *server.Server, accountID string) error {
	params := url.Values{}
	params.Set("api.version", "1")
	params.Set("user", accountID)
	_, err := a.call(ctx, srv, "unsuspendacct", params, "")
	return err
}

func (a *cpanelAdapter) Terminate(ctx context.Context, srv *server.Server, accountID string) error {
	params := url.Values{}
	params.Set("api.version", "1")
	params.Set("user", accountID)
	params.Set("keepdns", "0")
	_, err := a.call(ctx, srv, "removeacct", params, "")
	return err
}

func (a *cpanelAdapter) call(ctx context.Context, srv *server.Server, fn string, params url.Values, idemKey string) (*whmResponse, error) {
	headers := map[string]string{
		"Authorization": fmt.Sprintf("whm root:%s", srv.AdminToken),
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s:2087/json-api/%s?%s", srv.ControlPanelBaseURL, fn, params.Encode()),
		Headers: headers,
	})
	if err != nil {
		return nil, adapter.ClassifyHTTPError("whm "+fn, err)
	}

	var out whmResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("WHM %s returned malformed response", fn).
			Mark(ierr.ErrAdapterRetryable)
	}
	return &out, nil
}

// checkResult maps WHM's in-band result flag; a 200 with result=0 is a
// permanent rejection (bad username, plan missing, quota exceeded).
func (a *cpanelAdapter) checkResult(resp *whmResponse, fn string) error {
	if resp.Metadata.Result == 1 {
		return nil
	}
	return ierr.NewError("whm call rejected").
		WithHintf("WHM %s failed: %s", fn, resp.Metadata.Reason).
		Mark(ierr.ErrAdapterFatal)
}

func (a *cpanelAdapter) existingAccount(srv *server.Server, username string) *CreateAccountResult {
	return &CreateAccountResult{
		AccountID:       username,
		ControlPanelURL: fmt.Sprintf("%s:2083", srv.ControlPanelBaseURL),
	}
}
