package server

import "context"

// Repository defines the interface for server operations
type Repository interface {
	Create(ctx context.Context, server *Server) error
	Get(ctx context.Context, id string) (*Server, error)
	// ListActive returns active servers ordered by current_accounts ascending
	ListActive(ctx context.Context) ([]*Server, error)
	Update(ctx context.Context, server *Server) error
	// IncrementAccounts adjusts current_accounts by delta under a row lock and
	// fails with ErrInvalidOperation if it would exceed max_accounts.
	IncrementAccounts(ctx context.Context, id string, delta int) error
	// NextUsernameCounter returns a tenant-scoped monotonically increasing
	// counter used to suffix derived hosting usernames.
	NextUsernameCounter(ctx context.Context) (int, error)
}
