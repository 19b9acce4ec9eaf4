package scheduler

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/config"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/service"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/robfig/cron"
)

// Scheduler drives the sweep producers on their configured cron schedules.
// Sweep runs are deduplicated per minute in the sweep service, so running
// several replicas with the scheduler enabled is safe.
type Scheduler struct {
	cron   *cron.Cron
	sweeps service.SweepService
	cfg    *config.Configuration
	logger *logger.Logger
}

func New(sweeps service.SweepService, cfg *config.Configuration, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		sweeps: sweeps,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the sweep entries and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.cfg.Sweeps.Enabled {
		s.logger.Infow("sweep scheduler disabled")
		return nil
	}

	entries := []struct {
		name     string
		schedule string
		run      func(ctx context.Context, now time.Time) (*service.SweepOutcome, error)
	}{
		{"recurring_billing", s.cfg.Sweeps.RecurringBilling, s.sweeps.RunRecurringBilling},
		{"suspension", s.cfg.Sweeps.Suspension, s.sweeps.RunSuspension},
		{"ssl_reminders", s.cfg.Sweeps.SSLReminders, s.sweeps.RunSSLReminders},
		{"backup_cleanup", s.cfg.Sweeps.BackupCleanup, s.sweeps.RunBackupCleanup},
	}

	for _, entry := range entries {
		if entry.schedule == "" {
			continue
		}
		run := entry.run
		name := entry.name
		if err := s.cron.AddFunc(entry.schedule, func() {
			ctx := types.SetTenantID(context.Background(), types.DefaultTenantID)
			ctx = types.SetUserID(ctx, types.DefaultUserID)

			if _, err := run(ctx, time.Now().UTC()); err != nil {
				s.logger.Errorw("scheduled sweep failed", "sweep", name, "error", err)
			}
		}); err != nil {
			return err
		}
		s.logger.Infow("registered sweep schedule", "sweep", name, "schedule", entry.schedule)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop; running entries finish on their own
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
