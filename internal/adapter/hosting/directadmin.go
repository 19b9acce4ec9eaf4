package hosting

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hoststack/hoststack/internal/adapter"
	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
)

// directAdminAdapter talks to DirectAdmin's form-encoded CMD_API endpoints
type directAdminAdapter struct {
	client httpclient.Client
	logger *logger.Logger
}

func newDirectAdminAdapter(client httpclient.Client, logger *logger.Logger) Adapter {
	return &directAdminAdapter{client: client, logger: logger}
}

func (a *directAdminAdapter) CreateAccount(ctx context.Context, srv *server.Server, req CreateAccountRequest, idemKey string) (*CreateAccountResult, error) {
	form := url.Values{}
	form.Set("action", "create")
	form.Set("add", "Submit")
	form.Set("username", req.Username)
	form.Set("email", fmt.Sprintf("admin@%s", req.Domain))
	form.Set("passwd", req.Password)
	form.Set("passwd2", req.Password)
	form.Set("domain", req.Domain)
	form.Set("package", req.Plan)
	form.Set("notify", "no")

	resp, err := a.call(ctx, srv, "CMD_API_ACCOUNT_USER", form, idemKey)
	if err != nil {
		if ierr.IsAlreadyExists(err) {
			return &CreateAccountResult{
				AccountID:       req.Username,
				ControlPanelURL: fmt.Sprintf("%s:2222", srv.ControlPanelBaseURL),
			}, err
		}
		return nil, err
	}

	if err := checkDAError(resp.Body, "CMD_API_ACCOUNT_USER"); err != nil {
		return nil, err
	}

	return &CreateAccountResult{
		AccountID:       req.Username,
		ControlPanelURL: fmt.Sprintf("%s:2222", srv.ControlPanelBaseURL),
	}, nil
}

func (a *directAdminAdapter) Suspend(ctx context.Context, srv *server.Server, accountID string) error {
	return a.selectUsers(ctx, srv, accountID, "suspend")
}

func (a *directAdminAdapter) Unsuspend(ctx context.Context, srv *server.Server, accountID string) error {
	return a.selectUsers(ctx, srv, accountID, "unsuspend")
}

func (a *directAdminAdapter) Terminate(ctx context.Context, srv *server.Server, accountID string) error {
	form := url.Values{}
	form.Set("confirmed", "Confirm")
	form.Set("delete", "yes")
	form.Set("select0", accountID)

	resp, err := a.call(ctx, srv, "CMD_API_SELECT_USERS", form, "")
	if err != nil {
		return err
	}
	return checkDAError(resp.Body, "CMD_API_SELECT_USERS")
}

func (a *directAdminAdapter) selectUsers(ctx context.Context, srv *server.Server, accountID, action string) error {
	form := url.Values{}
	form.Set("location", "CMD_SELECT_USERS")
	form.Set("suspend", action)
	form.Set("select0", accountID)

	resp, err := a.call(ctx, srv, "CMD_API_SELECT_USERS", form, "")
	if err != nil {
		return err
	}
	return checkDAError(resp.Body, "CMD_API_SELECT_USERS")
}

func (a *directAdminAdapter) call(ctx context.Context, srv *server.Server, cmd string, form url.Values, idemKey string) (*httpclient.Response, error) {
	headers := map[string]string{
		"Authorization": "Basic " + srv.AdminToken,
		"Content-Type":  "application/x-www-form-urlencoded",
	}
	if idemKey != "" {
		headers[adapter.IdempotencyHeader] = idemKey
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s:2222/%s", srv.ControlPanelBaseURL, cmd),
		Headers: headers,
		Body:    []byte(form.Encode()),
	})
	if err != nil {
		return nil, adapter.ClassifyHTTPError("directadmin "+cmd, err)
	}
	return resp, nil
}

// checkDAError inspects DirectAdmin's in-band error flag. The API responds
// 200 with a urlencoded body; error=1 means the command was rejected.
func checkDAError(body []byte, cmd string) error {
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return ierr.WithError(err).
			WithHintf("DirectAdmin %s returned malformed response", cmd).
			Mark(ierr.ErrAdapterRetryable)
	}
	if vals.Get("error") != "1" {
		return nil
	}
	return ierr.NewError("directadmin command rejected").
		WithHintf("DirectAdmin %s failed: %s", cmd, vals.Get("text")).
		Mark(ierr.ErrAdapterFatal)
}
