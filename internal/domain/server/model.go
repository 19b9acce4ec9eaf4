package server

import (
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
)

// Server is a host that can run provisioned services
type Server struct {
	ID string `db:"id" json:"id"`

	Hostname string `db:"hostname" json:"hostname"`

	IPAddress string `db:"ip_address" json:"ip_address"`

	ControlPanelKind types.ControlPanelKind `db:"control_panel_kind" json:"control_panel_kind"`

	ControlPanelBaseURL string `db:"control_panel_base_url" json:"control_panel_base_url"`

	// AdminToken authenticates against the control panel; never logged
	AdminToken string `db:"admin_token" json:"-"`

	// DefaultNameservers is stored comma separated
	DefaultNameservers []string `db:"-" json:"default_nameservers"`

	// MaxAccounts is required; placement rejects servers at capacity
	MaxAccounts int `db:"max_accounts" json:"max_accounts"`

	CurrentAccounts int `db:"current_accounts" json:"current_accounts"`

	ServerStatus types.ServerStatus `db:"server_status" json:"server_status"`

	types.BaseModel
}

// HasCapacity reports whether the server can take one more account
func (s *Server) HasCapacity() bool {
	return s.ServerStatus == types.ServerStatusActive && s.CurrentAccounts < s.MaxAccounts
}

func (s *Server) Validate() error {
	if s.Hostname == "" {
		return ierr.NewError("server hostname is required").
			WithHint("Hostname must be provided").
			Mark(ierr.ErrValidation)
	}
	if s.MaxAccounts <= 0 {
		return ierr.NewError("max accounts is required").
			WithHint("Max accounts must be a positive integer").
			Mark(ierr.ErrValidation)
	}
	if s.CurrentAccounts > s.MaxAccounts {
		return ierr.NewError("current accounts exceeds capacity").
			WithHintf("Server %s has %d accounts over a capacity of %d", s.ID, s.CurrentAccounts, s.MaxAccounts).
			Mark(ierr.ErrValidation)
	}
	if err := s.ControlPanelKind.Validate(); err != nil {
		return err
	}
	return s.ServerStatus.Validate()
}
