package service

import (
	"time"

	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/server"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/hoststack/hoststack/internal/webhook"
)

// newTestParams wires ServiceParams over the in-memory stores and fakes
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	fakes := s.GetFakes()

	cfg := s.GetConfig()
	cfg.Adapters.MailHostname = "mail.hoststack.example"
	cfg.Adapters.CertContactEmail = "certs@hoststack.example"

	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           cfg,
		DB:               s.GetDB(),
		CheckoutRepo:     stores.CheckoutRepo,
		CustomerRepo:     stores.CustomerRepo,
		UserRepo:         stores.UserRepo,
		SubscriptionRepo: stores.SubscriptionRepo,
		ServerRepo:       stores.ServerRepo,
		WebsiteRepo:      stores.WebsiteRepo,
		TaskRepo:         stores.TaskRepo,
		JobRepo:          stores.JobRepo,
		InvoiceRepo:      stores.InvoiceRepo,
		BackupRepo:       stores.BackupRepo,
		PaymentEventRepo: stores.PaymentEventRepo,
		CertificateRepo:  stores.CertificateRepo,
		IdempotencyStore: s.GetIdempotencyStore(),
		KeyGen:           idempotency.NewGenerator(),
		Queue:            s.GetQueueService(),
		Verifier:         webhook.NewVerifier(cfg.Webhook.SigningSecret, 5*time.Minute),
		HostingAdapters:  fakes.Hosting,
		DNSProvider:      fakes.DNS,
		CertIssuer:       fakes.Cert,
		MailProvider:     fakes.Mail,
		DatabaseProvider: fakes.Database,
		Notifier:         fakes.Notifier,
	}
}

// seedServer creates an active cPanel server with spare capacity
func seedServer(s *testutil.BaseServiceTestSuite) *server.Server {
	srv := &server.Server{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVER),
		Hostname:           "s1.hoststack.example",
		IPAddress:          "203.0.113.10",
		ControlPanelKind:   types.ControlPanelCPanel,
		DefaultNameservers: []string{"ns1.example.net", "ns2.example.net"},
		MaxAccounts:        10,
		ServerStatus:       types.ServerStatusActive,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	if err := s.GetStores().ServerRepo.Create(s.GetContext(), srv); err != nil {
		s.T().Fatalf("failed to seed server: %v", err)
	}
	return srv
}

// seedCustomer creates a customer row
func seedCustomer(s *testutil.BaseServiceTestSuite, email, name string) *customer.Customer {
	cust := customer.New(s.GetContext(), email, name)
	if err := s.GetStores().CustomerRepo.Create(s.GetContext(), cust); err != nil {
		s.T().Fatalf("failed to seed customer: %v", err)
	}
	return cust
}
