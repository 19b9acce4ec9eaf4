package postgres

import (
	"context"
	"strings"

	"github.com/hoststack/hoststack/internal/domain/server"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type serverRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewServerRepository(client postgres.IClient, logger *logger.Logger) server.Repository {
	return &serverRepository{client: client, logger: logger}
}

// serverRow maps the servers table; nameservers are stored comma separated
type serverRow struct {
	ID                  string                 `db:"id"`
	Hostname            string                 `db:"hostname"`
	IPAddress           string                 `db:"ip_address"`
	ControlPanelKind    types.ControlPanelKind `db:"control_panel_kind"`
	ControlPanelBaseURL string                 `db:"control_panel_base_url"`
	AdminToken          string                 `db:"admin_token"`
	DefaultNameservers  string                 `db:"default_nameservers"`
	MaxAccounts         int                    `db:"max_accounts"`
	CurrentAccounts     int                    `db:"current_accounts"`
	ServerStatus        types.ServerStatus     `db:"server_status"`

	types.BaseModel
}

func toServerRow(s *server.Server) *serverRow {
	return &serverRow{
		ID:                  s.ID,
		Hostname:            s.Hostname,
		IPAddress:           s.IPAddress,
		ControlPanelKind:    s.ControlPanelKind,
		ControlPanelBaseURL: s.ControlPanelBaseURL,
		AdminToken:          s.AdminToken,
		DefaultNameservers:  strings.Join(s.DefaultNameservers, ","),
		MaxAccounts:         s.MaxAccounts,
		CurrentAccounts:     s.CurrentAccounts,
		ServerStatus:        s.ServerStatus,
		BaseModel:           s.BaseModel,
	}
}

func (row *serverRow) toDomain() *server.Server {
	var nameservers []string
	if row.DefaultNameservers != "" {
		nameservers = strings.Split(row.DefaultNameservers, ",")
	}
	return &server.Server{
		ID:                  row.ID,
		Hostname:            row.Hostname,
		IPAddress:           row.IPAddress,
		ControlPanelKind:    row.ControlPanelKind,
		ControlPanelBaseURL: row.ControlPanelBaseURL,
		AdminToken:          row.AdminToken,
		DefaultNameservers:  nameservers,
		MaxAccounts:         row.MaxAccounts,
		CurrentAccounts:     row.CurrentAccounts,
		ServerStatus:        row.ServerStatus,
		BaseModel:           row.BaseModel,
	}
}

func (r *serverRepository) Create(ctx context.Context, s *server.Server) error {
	query := `
		INSERT INTO servers (
			id, hostname, ip_address, control_panel_kind, control_panel_base_url,
			admin_token, default_nameservers, max_accounts, current_accounts, server_status,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :hostname, :ip_address, :control_panel_kind, :control_panel_base_url,
			:admin_token, :default_nameservers, :max_accounts, :current_accounts, :server_status,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, toServerRow(s))
	return wrapErr(err, "Failed to create server")
}

func (r *serverRepository) Get(ctx context.Context, id string) (*server.Server, error) {
	var row serverRow
	query := `SELECT * FROM servers WHERE id = $1 AND tenant_id = $2`
	if err := r.client.GetQuerier(ctx).GetContext(ctx, &row, query, id, types.GetTenantID(ctx)); err != nil {
		return nil, wrapErr(err, "Server not found")
	}
	return row.toDomain(), nil
}

func (r *serverRepository) ListActive(ctx context.Context) ([]*server.Server, error) {
	var rows []*serverRow
	query := `
		SELECT * FROM servers
		WHERE server_status = $1 AND tenant_id = $2 AND status != $3
		ORDER BY current_accounts ASC, id ASC`
	err := r.client.GetQuerier(ctx).SelectContext(ctx, &rows, query,
		types.ServerStatusActive, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Failed to list servers")
	}

	servers := make([]*server.Server, 0, len(rows))
	for _, row := range rows {
		servers = append(servers, row.toDomain())
	}
	return servers, nil
}

func (r *serverRepository) Update(ctx context.Context, s *server.Server) error {
	query := `
		UPDATE servers SET
			hostname = :hostname,
			ip_address = :ip_address,
			control_panel_kind = :control_panel_kind,
			control_panel_base_url = :control_panel_base_url,
			admin_token = :admin_token,
			default_nameservers = :default_nameservers,
			max_accounts = :max_accounts,
			server_status = :server_status,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, toServerRow(s))
	return wrapErr(err, "Failed to update server")
}

func (r *serverRepository) IncrementAccounts(ctx context.Context, id string, delta int) error {
	// The guard in the WHERE clause keeps current_accounts within
	// [0, max_accounts] without a separate read.
	query := `
		UPDATE servers
		SET current_accounts = current_accounts + $1, updated_at = NOW()
		WHERE id = $2 AND tenant_id = $3
		  AND current_accounts + $1 >= 0
		  AND current_accounts + $1 <= max_accounts`

	result, err := r.client.GetQuerier(ctx).ExecContext(ctx, query, delta, id, types.GetTenantID(ctx))
	if err != nil {
		return wrapErr(err, "Failed to adjust server account count")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err, "Failed to adjust server account count")
	}
	if n == 0 {
		return ierr.NewError("server capacity exhausted").
			WithHintf("Server %s cannot fit %d more accounts", id, delta).
			WithReportableDetails(map[string]any{
				"server_id": id,
				"delta":     delta,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}

func (r *serverRepository) NextUsernameCounter(ctx context.Context) (int, error) {
	// One counter row per tenant, upserted on first use.
	query := `
		INSERT INTO username_counters (tenant_id, counter)
		VALUES ($1, 1)
		ON CONFLICT (tenant_id)
		DO UPDATE SET counter = username_counters.counter + 1
		RETURNING counter`

	var counter int
	err := r.client.GetQuerier(ctx).GetContext(ctx, &counter, query, types.GetTenantID(ctx))
	if err != nil {
		return 0, wrapErr(err, "Failed to advance username counter")
	}
	return counter, nil
}
