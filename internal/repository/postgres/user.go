package postgres

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/user"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type userRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewUserRepository(client postgres.IClient, logger *logger.Logger) user.Repository {
	return &userRepository{client: client, logger: logger}
}

func (r *userRepository) Create(ctx context.Context, c *user.Credential) error {
	query := `
		INSERT INTO user_credentials (
			id, customer_id, email, password_hash, must_change_password,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :email, :password_hash, :must_change_password,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to create user credential")
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.Credential, error) {
	var c user.Credential
	query := `SELECT * FROM user_credentials WHERE id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "User credential not found")
	}
	return &c, nil
}

func (r *userRepository) GetByCustomerID(ctx context.Context, customerID string) (*user.Credential, error) {
	var c user.Credential
	query := `SELECT * FROM user_credentials WHERE customer_id = $1 AND tenant_id = $2 AND status != $3`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &c, query, customerID, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "User credential not found")
	}
	return &c, nil
}

func (r *userRepository) Update(ctx context.Context, c *user.Credential) error {
	query := `
		UPDATE user_credentials SET
			email = :email,
			password_hash = :password_hash,
			must_change_password = :must_change_password,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to update user credential")
}
