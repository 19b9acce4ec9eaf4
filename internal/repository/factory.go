package repository

import (
	"github.com/hoststack/hoststack/internal/domain/backup"
	"github.com/hoststack/hoststack/internal/domain/certificate"
	"github.com/hoststack/hoststack/internal/domain/checkout"
	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/idempotency"
	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/paymentevent"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/domain/server"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	"github.com/hoststack/hoststack/internal/domain/user"
	"github.com/hoststack/hoststack/internal/domain/website"
	"github.com/hoststack/hoststack/internal/logger"
	pgclient "github.com/hoststack/hoststack/internal/postgres"
	pgrepo "github.com/hoststack/hoststack/internal/repository/postgres"
)

func NewCheckoutRepository(client pgclient.IClient, logger *logger.Logger) checkout.Repository {
	return pgrepo.NewCheckoutRepository(client, logger)
}

func NewCustomerRepository(client pgclient.IClient, logger *logger.Logger) customer.Repository {
	return pgrepo.NewCustomerRepository(client, logger)
}

func NewUserRepository(client pgclient.IClient, logger *logger.Logger) user.Repository {
	return pgrepo.NewUserRepository(client, logger)
}

func NewSubscriptionRepository(client pgclient.IClient, logger *logger.Logger) subscription.Repository {
	return pgrepo.NewSubscriptionRepository(client, logger)
}

func NewServerRepository(client pgclient.IClient, logger *logger.Logger) server.Repository {
	return pgrepo.NewServerRepository(client, logger)
}

func NewWebsiteRepository(client pgclient.IClient, logger *logger.Logger) website.Repository {
	return pgrepo.NewWebsiteRepository(client, logger)
}

func NewProvisioningRepository(client pgclient.IClient, db *pgclient.DB, logger *logger.Logger) provisioning.Repository {
	return pgrepo.NewProvisioningRepository(client, db, logger)
}

func NewJobRepository(client pgclient.IClient, logger *logger.Logger) job.Repository {
	return pgrepo.NewJobRepository(client, logger)
}

func NewIdempotencyRepository(client pgclient.IClient, logger *logger.Logger) idempotency.Repository {
	return pgrepo.NewIdempotencyRepository(client, logger)
}

func NewInvoiceRepository(client pgclient.IClient, logger *logger.Logger) invoice.Repository {
	return pgrepo.NewInvoiceRepository(client, logger)
}

func NewBackupRepository(client pgclient.IClient, logger *logger.Logger) backup.Repository {
	return pgrepo.NewBackupRepository(client, logger)
}

func NewPaymentEventRepository(client pgclient.IClient, logger *logger.Logger) paymentevent.Repository {
	return pgrepo.NewPaymentEventRepository(client, logger)
}

func NewCertificateRepository(client pgclient.IClient, logger *logger.Logger) certificate.Repository {
	return pgrepo.NewCertificateRepository(client, logger)
}
