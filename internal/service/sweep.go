package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/domain/job"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// sweepRunTTL bounds how long one sweep minute stays deduplicated
const sweepRunTTL = 24 * time.Hour

// billingLookahead is how far ahead of next_billing_at renewal invoices are
// generated.
const billingLookahead = 7 * 24 * time.Hour

// SweepService runs the scheduled maintenance passes. Each sweep is an
// enqueue-only producer: it finds work and creates jobs, and the queue
// handlers do the actual mutation. A sweep run is deduplicated per minute so
// overlapping schedulers produce each job once.
type SweepService interface {
	// RunRecurringBilling enqueues invoice generation for subscriptions whose
	// billing anchor falls inside the lookahead window
	RunRecurringBilling(ctx context.Context, now time.Time) (*SweepOutcome, error)
	// RunSuspension enqueues suspension for subscriptions with invoices unpaid
	// beyond the grace period
	RunSuspension(ctx context.Context, now time.Time) (*SweepOutcome, error)
	// RunSSLReminders enqueues expiry reminders for certificates inside the
	// reminder window
	RunSSLReminders(ctx context.Context, now time.Time) (*SweepOutcome, error)
	// RunBackupCleanup enqueues one retention pass over backup records
	RunBackupCleanup(ctx context.Context, now time.Time) (*SweepOutcome, error)

	// HandleGenerateInvoiceJob is the `generate_invoice` queue handler
	HandleGenerateInvoiceJob(ctx context.Context, j *job.Job) error
	// HandleSSLReminderJob is the `ssl_expiry_reminder` queue handler
	HandleSSLReminderJob(ctx context.Context, j *job.Job) error
	// HandleBackupCleanupJob is the `backup_cleanup` queue handler
	HandleBackupCleanupJob(ctx context.Context, j *job.Job) error

	// MarkInvoicePaid records a confirmed renewal payment and advances the
	// subscription's billing anchor
	MarkInvoicePaid(ctx context.Context, invoiceID string) (*invoice.Invoice, error)
}

// SweepOutcome is the stored result of one sweep run
type SweepOutcome struct {
	Sweep    string `json:"sweep"`
	Enqueued int    `json:"enqueued"`
	Replayed bool   `json:"-"`
}

type sweepService struct {
	ServiceParams
}

// NewSweepService creates the sweep service
func NewSweepService(params ServiceParams) SweepService {
	return &sweepService{ServiceParams: params}
}

// runDeduplicated wraps one sweep pass in the per-minute idempotency guard
func (s *sweepService) runDeduplicated(ctx context.Context, name string, now time.Time, pass func(ctx context.Context) (int, error)) (*SweepOutcome, error) {
	key := fmt.Sprintf("%s:%s", name, now.UTC().Format("2006-01-02-15-04"))

	stored, replayed, err := s.IdempotencyStore.Remember(
		ctx, idempotency.ScopeSweep, key, sweepRunTTL,
		func(txCtx context.Context) ([]byte, error) {
			enqueued, err := pass(txCtx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(&SweepOutcome{Sweep: name, Enqueued: enqueued})
		},
	)
	if err != nil {
		return nil, err
	}

	var outcome SweepOutcome
	if err := json.Unmarshal(stored, &outcome); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode stored sweep outcome").
			Mark(ierr.ErrSystem)
	}
	outcome.Replayed = replayed

	s.Logger.Infow("sweep run finished",
		"sweep", name,
		"enqueued", outcome.Enqueued,
		"deduplicated", replayed,
	)
	return &outcome, nil
}

func (s *sweepService) RunRecurringBilling(ctx context.Context, now time.Time) (*SweepOutcome, error) {
	return s.runDeduplicated(ctx, "recurring_billing", now, func(ctx context.Context) (int, error) {
		filter := &types.SubscriptionFilter{
			QueryFilter:        types.NewNoLimitQueryFilter(),
			SubscriptionStatus: lo.ToPtr(types.SubscriptionStatusActive),
			NextBillingBefore:  lo.ToPtr(now.Add(billingLookahead)),
		}
		subs, err := s.SubscriptionRepo.List(ctx, filter)
		if err != nil {
			return 0, err
		}

		enqueued := 0
		for _, sub := range subs {
			if sub.LastInvoicedAt != nil && !sub.LastInvoicedAt.Before(sub.NextBillingAt) {
				// The current cycle is already invoiced
				continue
			}
			_, err := s.Queue.Enqueue(ctx, types.QueueInvoices, types.JobKindGenerateInvoice,
				&InvoiceJobPayload{SubscriptionID: sub.ID}, job.EnqueueOptions{})
			if err != nil {
				return 0, err
			}
			enqueued++
		}
		return enqueued, nil
	})
}

func (s *sweepService) RunSuspension(ctx context.Context, now time.Time) (*SweepOutcome, error) {
	return s.runDeduplicated(ctx, "suspension", now, func(ctx context.Context) (int, error) {
		cutoff := now.AddDate(0, 0, -s.Config.Sweeps.GetGracePeriodDays())
		overdue, err := s.InvoiceRepo.ListUnpaidDueBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}

		enqueued := 0
		seen := make(map[string]struct{})
		for _, inv := range overdue {
			if _, ok := seen[inv.SubscriptionID]; ok {
				continue
			}
			seen[inv.SubscriptionID] = struct{}{}

			sub, err := s.SubscriptionRepo.Get(ctx, inv.SubscriptionID)
			if err != nil {
				return 0, err
			}
			if sub.SubscriptionStatus != types.SubscriptionStatusActive {
				continue
			}

			_, err = s.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindSuspendSubscription,
				&SuspendJobPayload{
					SubscriptionID: inv.SubscriptionID,
					Reason:         "payment_overdue",
				}, job.EnqueueOptions{})
			if err != nil {
				return 0, err
			}
			enqueued++
		}
		return enqueued, nil
	})
}

func (s *sweepService) RunSSLReminders(ctx context.Context, now time.Time) (*SweepOutcome, error) {
	return s.runDeduplicated(ctx, "ssl_reminders", now, func(ctx context.Context) (int, error) {
		windowDays := s.Config.Sweeps.GetSSLReminderDays()
		expiring, err := s.CertificateRepo.ListExpiringBefore(ctx, now.AddDate(0, 0, windowDays))
		if err != nil {
			return 0, err
		}

		enqueued := 0
		for _, crt := range expiring {
			if !crt.NeedsReminder(now, windowDays) {
				continue
			}
			_, err := s.Queue.Enqueue(ctx, types.QueueEmails, types.JobKindSSLExpiryReminder,
				&SSLReminderJobPayload{CertificateID: crt.ID}, job.EnqueueOptions{})
			if err != nil {
				return 0, err
			}
			enqueued++
		}
		return enqueued, nil
	})
}

func (s *sweepService) RunBackupCleanup(ctx context.Context, now time.Time) (*SweepOutcome, error) {
	return s.runDeduplicated(ctx, "backup_cleanup", now, func(ctx context.Context) (int, error) {
		_, err := s.Queue.Enqueue(ctx, types.QueueBackups, types.JobKindBackupCleanup,
			&BackupCleanupJobPayload{RetentionDays: s.Config.Sweeps.GetBackupRetentionDays()},
			job.EnqueueOptions{})
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
}

func (s *sweepService) HandleGenerateInvoiceJob(ctx context.Context, j *job.Job) error {
	var payload InvoiceJobPayload
	if err := j.DecodePayload(&payload); err != nil {
		return ierr.WithError(err).
			WithHint("Invoice job payload is malformed").
			Mark(ierr.ErrAdapterFatal)
	}

	sub, err := s.SubscriptionRepo.Get(ctx, payload.SubscriptionID)
	if err != nil {
		return err
	}
	if sub.LastInvoicedAt != nil && !sub.LastInvoicedAt.Before(sub.NextBillingAt) {
		return nil
	}

	periodStart := sub.NextBillingAt
	periodEnd := sub.BillingPeriod.NextBillingDate(periodStart)

	inv := invoice.New(ctx, sub.CustomerID, sub.ID, periodStart, periodEnd, sub.PriceMinor, sub.Currency)
	inv.InvoiceStatus = types.InvoiceStatusFinalized

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.InvoiceRepo.Create(txCtx, inv); err != nil {
			if ierr.IsAlreadyExists(err) {
				// A concurrent handler invoiced this cycle first
				return nil
			}
			return err
		}

		sub.LastInvoicedAt = &periodStart
		if err := s.SubscriptionRepo.Update(txCtx, sub); err != nil {
			return err
		}

		s.Logger.Infow("generated renewal invoice",
			"invoice_id", inv.ID,
			"subscription_id", sub.ID,
			"period_start", periodStart,
			"amount", inv.AmountDisplay(),
			"currency", inv.Currency,
		)
		return nil
	})
}

func (s *sweepService) HandleSSLReminderJob(ctx context.Context, j *job.Job) error {
	var payload SSLReminderJobPayload
	if err := j.DecodePayload(&payload); err != nil {
		return ierr.WithError(err).
			WithHint("SSL reminder job payload is malformed").
			Mark(ierr.ErrAdapterFatal)
	}

	now := time.Now().UTC()
	crt, err := s.CertificateRepo.Get(ctx, payload.CertificateID)
	if err != nil {
		return err
	}
	if !crt.NeedsReminder(now, s.Config.Sweeps.GetSSLReminderDays()) {
		return nil
	}

	site, err := s.WebsiteRepo.Get(ctx, crt.WebsiteID)
	if err != nil {
		return err
	}
	cust, err := s.CustomerRepo.Get(ctx, site.CustomerID)
	if err != nil {
		return err
	}

	daysLeft := int(time.Until(crt.NotAfter).Hours() / 24)
	idemKey := s.KeyGen.GenerateKey(idempotency.ScopeStep, map[string]interface{}{
		"kind":    "ssl_reminder",
		"cert_id": crt.ID,
		"window":  crt.NotAfter.Format("2006-01-02"),
	})
	if err := s.Notifier.SendSSLExpiryReminder(ctx, cust.Email, crt.Domain, daysLeft, idemKey); err != nil {
		if !ierr.IsAlreadyExists(err) {
			return err
		}
	}

	crt.RemindedAt = &now
	return s.CertificateRepo.Update(ctx, crt)
}

func (s *sweepService) HandleBackupCleanupJob(ctx context.Context, j *job.Job) error {
	var payload BackupCleanupJobPayload
	if err := j.DecodePayload(&payload); err != nil {
		return ierr.WithError(err).
			WithHint("Backup cleanup job payload is malformed").
			Mark(ierr.ErrAdapterFatal)
	}

	retention := payload.RetentionDays
	if retention <= 0 {
		retention = s.Config.Sweeps.GetBackupRetentionDays()
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retention)

	removed, err := s.BackupRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	s.Logger.Infow("backup retention pass finished",
		"cutoff", cutoff,
		"removed", removed,
	)
	return nil
}

func (s *sweepService) MarkInvoicePaid(ctx context.Context, invoiceID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.InvoiceStatus == types.InvoiceStatusPaid {
		return inv, nil
	}

	now := time.Now().UTC()
	if err := inv.MarkPaid(now); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.InvoiceRepo.Update(txCtx, inv); err != nil {
			return err
		}

		sub, err := s.SubscriptionRepo.Get(txCtx, inv.SubscriptionID)
		if err != nil {
			return err
		}
		sub.AdvanceBillingAnchor()
		return s.SubscriptionRepo.Update(txCtx, sub)
	})
	if err != nil {
		return nil, err
	}

	// A paid renewal lifts a payment suspension
	if err := s.reinstate(ctx, inv.SubscriptionID); err != nil {
		s.Logger.Errorw("failed to reinstate subscription after payment",
			"subscription_id", inv.SubscriptionID, "error", err)
	}

	s.Logger.Infow("marked invoice paid",
		"invoice_id", inv.ID,
		"subscription_id", inv.SubscriptionID,
	)
	return inv, nil
}

// reinstate unsuspends the hosting account and reactivates the website and
// subscription after an overdue invoice is settled.
func (s *sweepService) reinstate(ctx context.Context, subscriptionID string) error {
	sub, err := s.SubscriptionRepo.Get(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus != types.SubscriptionStatusSuspended {
		return nil
	}

	site, err := s.WebsiteRepo.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	srv, err := s.ServerRepo.Get(ctx, site.ServerID)
	if err != nil {
		return err
	}
	adapter, err := s.HostingAdapters.ForServer(srv)
	if err != nil {
		return err
	}
	if err := adapter.Unsuspend(ctx, srv, site.HostingAccountID); err != nil {
		return err
	}

	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		site.WebsiteStatus = types.WebsiteStatusActive
		if err := s.WebsiteRepo.Update(txCtx, site); err != nil {
			return err
		}
		if err := sub.Activate(); err != nil {
			return err
		}
		return s.SubscriptionRepo.Update(txCtx, sub)
	})
}
