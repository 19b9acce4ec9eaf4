package postgres

import (
	"context"

	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/types"
)

type customerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCustomerRepository(client postgres.IClient, logger *logger.Logger) customer.Repository {
	return &customerRepository{client: client, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, email, name, phone,
			address_line1, address_line2, address_city, address_postal_code, address_country,
			tenant_id, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :email, :name, :phone,
			:address_line1, :address_line2, :address_city, :address_postal_code, :address_country,
			:tenant_id, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to create customer")
}

func (r *customerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var c customer.Customer
	query := `SELECT * FROM customers WHERE id = $1 AND tenant_id = $2`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &c, query, id, types.GetTenantID(ctx))
	if err != nil {
		return nil, wrapErr(err, "Customer not found")
	}
	return &c, nil
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	var c customer.Customer
	query := `SELECT * FROM customers WHERE email = $1 AND tenant_id = $2 AND status != $3`
	err := r.client.GetQuerier(ctx).GetContext(ctx, &c, query, email, types.GetTenantID(ctx), types.StatusDeleted)
	if err != nil {
		return nil, wrapErr(err, "Customer not found")
	}
	return &c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
		UPDATE customers SET
			email = :email,
			name = :name,
			phone = :phone,
			address_line1 = :address_line1,
			address_line2 = :address_line2,
			address_city = :address_city,
			address_postal_code = :address_postal_code,
			address_country = :address_country,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	_, err := r.client.GetQuerier(ctx).NamedExec(query, c)
	return wrapErr(err, "Failed to update customer")
}
