package hosting

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/types"
)

// CreateAccountRequest carries everything a control panel needs to create a
// hosting account. Password is transmitted once and never logged.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Domain   string `json:"domain"`
	Password string `json:"-"`
	Plan     string `json:"plan"`
	QuotaMB  int    `json:"quota_mb"`
}

// CreateAccountResult is returned by every control panel implementation
type CreateAccountResult struct {
	AccountID       string `json:"account_id"`
	ControlPanelURL string `json:"control_panel_url"`
}

// Adapter is the uniform contract over a hosting control panel. Calls with
// the same idemKey must be safe to repeat: on the second call the backend
// returns the existing account rather than erroring.
type Adapter interface {
	CreateAccount(ctx context.Context, srv *server.Server, req CreateAccountRequest, idemKey string) (*CreateAccountResult, error)
	Suspend(ctx context.Context, srv *server.Server, accountID string) error
	Unsuspend(ctx context.Context, srv *server.Server, accountID string) error
	Terminate(ctx context.Context, srv *server.Server, accountID string) error
}

// AdapterFactory resolves the adapter for a server's control panel kind
type AdapterFactory interface {
	ForServer(srv *server.Server) (Adapter, error)
}

// Factory selects the adapter implementation for a server's control panel
// kind. Selection is static given the server row.
type Factory struct {
	client httpclient.Client
	logger *logger.Logger

	adapters map[types.ControlPanelKind]Adapter
}

// NewFactory creates a factory with one implementation per control panel kind
func NewFactory(client httpclient.Client, logger *logger.Logger) *Factory {
	return &Factory{
		client: client,
		logger: logger,
		adapters: map[types.ControlPanelKind]Adapter{
			types.ControlPanelCPanel:      newCPanelAdapter(client, logger),
			types.ControlPanelPlesk:       newPleskAdapter(client, logger),
			types.ControlPanelDirectAdmin: newDirectAdminAdapter(client, logger),
			types.ControlPanelNative:      newNativeAdapter(client, logger),
		},
	}
}

// ForServer returns the adapter matching the server's control panel kind
func (f *Factory) ForServer(srv *server.Server) (Adapter, error) {
	a, ok := f.adapters[srv.ControlPanelKind]
	if !ok {
		return nil, ierr.NewError("unsupported control panel kind").
			WithHintf("No hosting adapter for control panel %s", srv.ControlPanelKind).
			Mark(ierr.ErrAdapterFatal)
	}
	return a, nil
}
