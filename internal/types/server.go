package types

import ierr "github.com/hoststack/hoststack/internal/errors"

// ControlPanelKind identifies the hosting control panel running on a server
type ControlPanelKind string

const (
	ControlPanelCPanel      ControlPanelKind = "cpanel"
	ControlPanelPlesk       ControlPanelKind = "plesk"
	ControlPanelDirectAdmin ControlPanelKind = "directadmin"
	ControlPanelNative      ControlPanelKind = "native"
)

func (k ControlPanelKind) Validate() error {
	switch k {
	case ControlPanelCPanel, ControlPanelPlesk, ControlPanelDirectAdmin, ControlPanelNative:
		return nil
	}
	return ierr.NewError("invalid control panel kind").
		WithHintf("Unknown control panel kind: %s", k).
		Mark(ierr.ErrValidation)
}

// ServerStatus is the operational status of a host
type ServerStatus string

const (
	ServerStatusActive   ServerStatus = "active"
	ServerStatusDraining ServerStatus = "draining"
	ServerStatusOffline  ServerStatus = "offline"
)

func (s ServerStatus) Validate() error {
	switch s {
	case ServerStatusActive, ServerStatusDraining, ServerStatusOffline:
		return nil
	}
	return ierr.NewError("invalid server status").
		WithHintf("Unknown server status: %s", s).
		Mark(ierr.ErrValidation)
}
