package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/hoststack/hoststack/internal/adapter/cert"
	"github.com/hoststack/hoststack/internal/adapter/dbengine"
	"github.com/hoststack/hoststack/internal/adapter/dns"
	"github.com/hoststack/hoststack/internal/adapter/hosting"
	"github.com/hoststack/hoststack/internal/adapter/mail"
	"github.com/hoststack/hoststack/internal/adapter/notify"
	"github.com/hoststack/hoststack/internal/api"
	cronapi "github.com/hoststack/hoststack/internal/api/cron"
	v1 "github.com/hoststack/hoststack/internal/api/v1"
	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/httpclient"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/postgres"
	"github.com/hoststack/hoststack/internal/queue"
	"github.com/hoststack/hoststack/internal/repository"
	"github.com/hoststack/hoststack/internal/scheduler"
	"github.com/hoststack/hoststack/internal/service"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/hoststack/hoststack/internal/validator"
	"github.com/hoststack/hoststack/internal/webhook"
)

func init() {
	// The whole application runs in UTC
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			// Postgres
			postgres.NewDB,
			providePostgresClient,

			// HTTP client for adapters
			httpclient.NewDefaultClient,

			// Repositories
			repository.NewCheckoutRepository,
			repository.NewCustomerRepository,
			repository.NewUserRepository,
			repository.NewSubscriptionRepository,
			repository.NewServerRepository,
			repository.NewWebsiteRepository,
			repository.NewProvisioningRepository,
			repository.NewJobRepository,
			repository.NewIdempotencyRepository,
			repository.NewInvoiceRepository,
			repository.NewBackupRepository,
			repository.NewPaymentEventRepository,
			repository.NewCertificateRepository,

			// Idempotency
			idempotency.NewStore,
			idempotency.NewGenerator,

			// Queue
			queue.NewService,
			provideWorkerPool,

			// Webhook signature verification
			provideVerifier,

			// External adapters
			hosting.NewFactory,
			provideHostingAdapters,
			provideDNSProvider,
			provideCertIssuer,
			provideMailProvider,
			provideDatabaseProvider,
			provideNotifier,
		),
	)

	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewWebhookService,
			service.NewProvisioningService,
			service.NewTaskControlService,
			service.NewSweepService,
		),
	)

	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
			provideScheduler,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func providePostgresClient(db *postgres.DB) postgres.IClient {
	return db
}

func provideHostingAdapters(factory *hosting.Factory) hosting.AdapterFactory {
	return factory
}

func provideWorkerPool(jobRepo job.Repository, cfg *config.Configuration, log *logger.Logger) *queue.Pool {
	return queue.NewPool(jobRepo, cfg.Queue, log)
}

func provideVerifier(cfg *config.Configuration) *webhook.Verifier {
	return webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.GetTolerance())
}

func provideDNSProvider(cfg *config.Configuration, log *logger.Logger) dns.Provider {
	return dns.NewProvider(cfg.Adapters.DNS, httpclient.NewClientWithTimeout(cfg.Adapters.DNS.GetTimeout()), log)
}

func provideCertIssuer(cfg *config.Configuration, log *logger.Logger) cert.Issuer {
	return cert.NewIssuer(cfg.Adapters.Cert, httpclient.NewClientWithTimeout(cfg.Adapters.Cert.GetTimeout()), log)
}

func provideMailProvider(cfg *config.Configuration, log *logger.Logger) mail.Provider {
	return mail.NewProvider(cfg.Adapters.Mail, httpclient.NewClientWithTimeout(cfg.Adapters.Mail.GetTimeout()), log)
}

func provideDatabaseProvider(cfg *config.Configuration, log *logger.Logger) dbengine.Provider {
	return dbengine.NewProvider(cfg.Adapters.Database, httpclient.NewClientWithTimeout(cfg.Adapters.Database.GetTimeout()), log)
}

func provideNotifier(cfg *config.Configuration, log *logger.Logger) notify.Notifier {
	return notify.NewNotifier(cfg.Adapters.Notify, httpclient.NewClientWithTimeout(cfg.Adapters.Notify.GetTimeout()), log)
}

func provideHandlers(
	log *logger.Logger,
	webhookService service.WebhookService,
	taskService service.TaskControlService,
	sweepService service.SweepService,
) api.Handlers {
	return api.Handlers{
		Health:  v1.NewHealthHandler(log),
		Webhook: v1.NewWebhookHandler(webhookService, log),
		Task:    v1.NewTaskHandler(taskService, log),
		Invoice: v1.NewInvoiceHandler(sweepService, log),
		Sweep:   cronapi.NewSweepHandler(sweepService, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, log)
}

func provideScheduler(sweepService service.SweepService, cfg *config.Configuration, log *logger.Logger) *scheduler.Scheduler {
	return scheduler.New(sweepService, cfg, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	pool *queue.Pool,
	sched *scheduler.Scheduler,
	provisioningService service.ProvisioningService,
	sweepService service.SweepService,
	db *postgres.DB,
	log *logger.Logger,
) {
	pool.RegisterHandler(types.JobKindProvisionSubscription, provisioningService.HandleProvisionJob)
	pool.RegisterHandler(types.JobKindSuspendSubscription, provisioningService.HandleSuspendJob)
	pool.RegisterHandler(types.JobKindGenerateInvoice, sweepService.HandleGenerateInvoiceJob)
	pool.RegisterHandler(types.JobKindSSLExpiryReminder, sweepService.HandleSSLReminderJob)
	pool.RegisterHandler(types.JobKindBackupCleanup, sweepService.HandleBackupCleanupJob)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting api server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("failed to start server: %v", err)
				}
			}()

			pool.Start()

			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("shutting down")
			sched.Stop()
			pool.Stop()
			db.Close()
			return nil
		},
	})
}
