package api

import (
	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/api/cron"
	v1 "github.com/hoststack/hoststack/internal/api/v1"
	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/rest/middleware"
)

type Handlers struct {
	Health  *v1.HealthHandler
	Webhook *v1.WebhookHandler
	Task    *v1.TaskHandler
	Invoice *v1.InvoiceHandler
	Sweep   *cron.SweepHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.TenantMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// The webhook endpoint authenticates by signature, not by admin key
	router.POST("/webhooks/payments", handlers.Webhook.HandlePaymentEvent)

	v1Group := router.Group("/v1", middleware.AdminAuthMiddleware(cfg, logger))
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron", middleware.AdminAuthMiddleware(cfg, logger))
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	tasks := router.Group("/provisioning/tasks")
	{
		tasks.GET("", handlers.Task.ListTasks)
		tasks.GET("/:id", handlers.Task.GetTask)
		tasks.POST("/:id/replay", handlers.Task.ReplayTask)
	}

	router.GET("/provisioning/stats", handlers.Task.QueueStats)
	router.DELETE("/idempotency/:scope/:key", handlers.Task.ForgetIdempotency)

	invoices := router.Group("/invoices")
	{
		invoices.POST("/:id/pay", handlers.Invoice.MarkPaid)
	}
}

func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	sweeps := router.Group("/sweeps")
	{
		sweeps.POST("/recurring-billing", handlers.Sweep.RecurringBilling)
		sweeps.POST("/suspension", handlers.Sweep.Suspension)
		sweeps.POST("/ssl-reminders", handlers.Sweep.SSLReminders)
		sweeps.POST("/backup-cleanup", handlers.Sweep.BackupCleanup)
	}
}
