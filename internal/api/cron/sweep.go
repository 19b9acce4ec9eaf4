package cron

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/service"
	"github.com/hoststack/hoststack/internal/types"
)

// SweepHandler exposes the sweeps as HTTP endpoints so an external scheduler
// can drive them instead of, or alongside, the in-process cron.
type SweepHandler struct {
	sweepService service.SweepService
	log          *logger.Logger
}

func NewSweepHandler(sweepService service.SweepService, log *logger.Logger) *SweepHandler {
	return &SweepHandler{sweepService: sweepService, log: log}
}

func (h *SweepHandler) RecurringBilling(c *gin.Context) {
	h.run(c, h.sweepService.RunRecurringBilling)
}

func (h *SweepHandler) Suspension(c *gin.Context) {
	h.run(c, h.sweepService.RunSuspension)
}

func (h *SweepHandler) SSLReminders(c *gin.Context) {
	h.run(c, h.sweepService.RunSSLReminders)
}

func (h *SweepHandler) BackupCleanup(c *gin.Context) {
	h.run(c, h.sweepService.RunBackupCleanup)
}

func (h *SweepHandler) run(c *gin.Context, sweep func(ctx context.Context, now time.Time) (*service.SweepOutcome, error)) {
	// Cron endpoints run under the system tenant
	ctx := types.SetTenantID(c.Request.Context(), types.DefaultTenantID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)

	outcome, err := sweep(ctx, time.Now().UTC())
	if err != nil {
		h.log.Errorw("sweep run failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sweep":    outcome.Sweep,
		"enqueued": outcome.Enqueued,
	})
}
