package service

import (
	"github.com/hoststack/hoststack/internal/adapter/cert"
	"github.com/hoststack/hoststack/internal/adapter/dbengine"
	"github.com/hoststack/hoststack/internal/adapter/dns"
	"github.com/hoststack/hoststack/internal/adapter/hosting"
	"github.com/hoststack/hoststack/internal/adapter/mail"
	"github.com/hoststack/hoststack/internal/adapter/notify"
	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/domain/backup"
	"github.com/hoststack/hoststack/internal/domain/certificate"
	"github.com/hoststack/hoststack/internal/domain/checkout"
	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/paymentevent"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/domain/server"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	"github.com/hoststack/hoststack/internal/domain/user"
	"github.com/hoststack/hoststack/internal/domain/website"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/queue"
	"github.com/hoststack/hoststack/internal/webhook"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	CheckoutRepo     checkout.Repository
	CustomerRepo     customer.Repository
	UserRepo         user.Repository
	SubscriptionRepo subscription.Repository
	ServerRepo       server.Repository
	WebsiteRepo      website.Repository
	TaskRepo         provisioning.Repository
	JobRepo          job.Repository
	InvoiceRepo      invoice.Repository
	BackupRepo       backup.Repository
	PaymentEventRepo paymentevent.Repository
	CertificateRepo  certificate.Repository

	// Infrastructure
	IdempotencyStore idempotency.Store
	KeyGen           *idempotency.Generator
	Queue            *queue.Service
	Verifier         *webhook.Verifier

	// External adapters
	HostingAdapters  hosting.AdapterFactory
	DNSProvider      dns.Provider
	CertIssuer       cert.Issuer
	MailProvider     mail.Provider
	DatabaseProvider dbengine.Provider
	Notifier         notify.Notifier
}

// NewServiceParams assembles the common service dependencies for DI
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	checkoutRepo checkout.Repository,
	customerRepo customer.Repository,
	userRepo user.Repository,
	subscriptionRepo subscription.Repository,
	serverRepo server.Repository,
	websiteRepo website.Repository,
	taskRepo provisioning.Repository,
	jobRepo job.Repository,
	invoiceRepo invoice.Repository,
	backupRepo backup.Repository,
	paymentEventRepo paymentevent.Repository,
	certificateRepo certificate.Repository,
	idempotencyStore idempotency.Store,
	keyGen *idempotency.Generator,
	queueService *queue.Service,
	verifier *webhook.Verifier,
	hostingAdapters hosting.AdapterFactory,
	dnsProvider dns.Provider,
	certIssuer cert.Issuer,
	mailProvider mail.Provider,
	databaseProvider dbengine.Provider,
	notifier notify.Notifier,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		DB:               db,
		CheckoutRepo:     checkoutRepo,
		CustomerRepo:     customerRepo,
		UserRepo:         userRepo,
		SubscriptionRepo: subscriptionRepo,
		ServerRepo:       serverRepo,
		WebsiteRepo:      websiteRepo,
		TaskRepo:         taskRepo,
		JobRepo:          jobRepo,
		InvoiceRepo:      invoiceRepo,
		BackupRepo:       backupRepo,
		PaymentEventRepo: paymentEventRepo,
		CertificateRepo:  certificateRepo,
		IdempotencyStore: idempotencyStore,
		KeyGen:           keyGen,
		Queue:            queueService,
		Verifier:         verifier,
		HostingAdapters:  hostingAdapters,
		DNSProvider:      dnsProvider,
		CertIssuer:       certIssuer,
		MailProvider:     mailProvider,
		DatabaseProvider: databaseProvider,
		Notifier:         notifier,
	}
}
