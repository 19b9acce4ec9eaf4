package testutil

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/queue"
	"github.com/hoststack/hoststack/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories for testing
type Stores struct {
	CheckoutRepo     *InMemoryCheckoutStore
	CustomerRepo     *InMemoryCustomerStore
	UserRepo         *InMemoryUserStore
	SubscriptionRepo *InMemorySubscriptionStore
	ServerRepo       *InMemoryServerStore
	WebsiteRepo      *InMemoryWebsiteStore
	TaskRepo         *InMemoryProvisioningStore
	JobRepo          *InMemoryJobStore
	InvoiceRepo      *InMemoryInvoiceStore
	BackupRepo       *InMemoryBackupStore
	PaymentEventRepo *InMemoryPaymentEventStore
	CertificateRepo  *InMemoryCertificateStore
	IdempotencyRepo  *InMemoryIdempotencyStore
}

// Fakes holds the fake external adapters for testing
type Fakes struct {
	Hosting  *FakeHostingFactory
	DNS      *FakeDNSProvider
	Cert     *FakeCertIssuer
	Mail     *FakeMailProvider
	Database *FakeDatabaseProvider
	Notifier *FakeNotifier
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	fakes  Fakes
	db     postgres.IClient
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	var err error
	s.logger, err = logger.NewLogger()
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.config = config.GetDefaultConfig()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.setupFakes()
	s.db = NewMockPostgresClient(s.logger)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		CheckoutRepo:     NewInMemoryCheckoutStore(),
		CustomerRepo:     NewInMemoryCustomerStore(),
		UserRepo:         NewInMemoryUserStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		ServerRepo:       NewInMemoryServerStore(),
		WebsiteRepo:      NewInMemoryWebsiteStore(),
		TaskRepo:         NewInMemoryProvisioningStore(),
		JobRepo:          NewInMemoryJobStore(),
		InvoiceRepo:      NewInMemoryInvoiceStore(),
		BackupRepo:       NewInMemoryBackupStore(),
		PaymentEventRepo: NewInMemoryPaymentEventStore(),
		CertificateRepo:  NewInMemoryCertificateStore(),
		IdempotencyRepo:  NewInMemoryIdempotencyStore(),
	}
}

func (s *BaseServiceTestSuite) setupFakes() {
	s.fakes = Fakes{
		Hosting:  NewFakeHostingFactory(),
		DNS:      NewFakeDNSProvider(),
		Cert:     NewFakeCertIssuer(),
		Mail:     NewFakeMailProvider(),
		Database: NewFakeDatabaseProvider(),
		Notifier: NewFakeNotifier(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.CheckoutRepo.Clear()
	s.stores.CustomerRepo.Clear()
	s.stores.UserRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.ServerRepo.Clear()
	s.stores.WebsiteRepo.Clear()
	s.stores.TaskRepo.Clear()
	s.stores.JobRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.BackupRepo.Clear()
	s.stores.PaymentEventRepo.Clear()
	s.stores.CertificateRepo.Clear()
	s.stores.IdempotencyRepo.Clear()
}

// GetContext returns the test context with default tenant and user
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetFakes returns the fake adapters
func (s *BaseServiceTestSuite) GetFakes() Fakes {
	return s.fakes
}

// GetDB returns the mock database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetIdempotencyStore builds an idempotency store over the in-memory repo
func (s *BaseServiceTestSuite) GetIdempotencyStore() idempotency.Store {
	return idempotency.NewStore(s.stores.IdempotencyRepo, s.db, s.logger)
}

// GetQueueService builds a queue service over the in-memory job repo
func (s *BaseServiceTestSuite) GetQueueService() *queue.Service {
	return queue.NewService(s.stores.JobRepo, s.logger)
}
