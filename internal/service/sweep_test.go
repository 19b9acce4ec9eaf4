package service

import (
	"testing"
	"time"

	"github.com/hoststack/hoststack/internal/domain/backup"
	"github.com/hoststack/hoststack/internal/domain/invoice"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	"github.com/hoststack/hoststack/internal/domain/website"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type SweepServiceSuite struct {
	testutil.BaseServiceTestSuite
	params       ServiceParams
	service      SweepService
	provisioning ProvisioningService
}

func TestSweepService(t *testing.T) {
	suite.Run(t, new(SweepServiceSuite))
}

func (s *SweepServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite)
	s.service = NewSweepService(s.params)
	s.provisioning = NewProvisioningService(s.params)
}

// seedActiveSub creates an active subscription billed at nextBillingAt
func (s *SweepServiceSuite) seedActiveSub(nextBillingAt time.Time) *subscription.Subscription {
	ctx := s.GetContext()

	cust := seedCustomer(&s.BaseServiceTestSuite, "jane@example.org", "Jane Doe")
	sub := subscription.New(ctx, cust.ID, "starter-monthly", types.BillingPeriodMonthly, 999, "USD")
	s.Require().NoError(sub.Activate())
	sub.NextBillingAt = nextBillingAt
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))
	return sub
}

// seedActiveSite runs a full provisioning pass so the website, certificate
// and hosting account all exist.
func (s *SweepServiceSuite) seedActiveSite() (*provisioningFixture, *website.Website) {
	ctx := s.GetContext()

	fix := seedProvisioning(&s.BaseServiceTestSuite, s.params, 3)
	j := claimOne(&s.BaseServiceTestSuite, types.QueueProvisioning)
	s.Require().NoError(s.provisioning.HandleProvisionJob(ctx, j))
	s.Require().NoError(s.GetStores().JobRepo.Complete(ctx, j.ID, "worker-1"))

	site, err := s.GetStores().WebsiteRepo.GetBySubscriptionID(ctx, fix.sub.ID)
	s.Require().NoError(err)
	return fix, site
}

// suspendSite pushes an active site through the suspension handler
func (s *SweepServiceSuite) suspendSite(fix *provisioningFixture) {
	ctx := s.GetContext()

	_, err := s.params.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindSuspendSubscription,
		&SuspendJobPayload{SubscriptionID: fix.sub.ID, Reason: "payment_overdue"},
		job.EnqueueOptions{})
	s.Require().NoError(err)

	j := claimOne(&s.BaseServiceTestSuite, types.QueueProvisioning)
	s.Require().NoError(s.provisioning.HandleSuspendJob(ctx, j))
	s.Require().NoError(s.GetStores().JobRepo.Complete(ctx, j.ID, "worker-1"))
}

// seedOverdueInvoice creates a finalized invoice due daysOverdue days ago
func (s *SweepServiceSuite) seedOverdueInvoice(sub *subscription.Subscription, daysOverdue int) *invoice.Invoice {
	ctx := s.GetContext()

	periodStart := time.Now().UTC().AddDate(0, 0, -daysOverdue)
	inv := invoice.New(ctx, sub.CustomerID, sub.ID, periodStart,
		sub.BillingPeriod.NextBillingDate(periodStart), sub.PriceMinor, sub.Currency)
	inv.InvoiceStatus = types.InvoiceStatusFinalized
	s.Require().NoError(s.GetStores().InvoiceRepo.Create(ctx, inv))
	return inv
}

func (s *SweepServiceSuite) TestRecurringBillingEnqueuesDueSubscriptions() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	due := s.seedActiveSub(now.AddDate(0, 0, 3))

	// Already invoiced for the current cycle.
	invoiced := s.seedActiveSub(now.AddDate(0, 0, 3))
	invoiced.LastInvoicedAt = lo.ToPtr(invoiced.NextBillingAt)
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(ctx, invoiced))

	// Anchor well outside the lookahead window.
	s.seedActiveSub(now.AddDate(0, 0, 60))

	outcome, err := s.service.RunRecurringBilling(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, outcome.Enqueued)
	s.False(outcome.Replayed)

	jobs, err := s.GetStores().JobRepo.Claim(ctx, types.QueueInvoices, "worker-1", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(types.JobKindGenerateInvoice, jobs[0].Kind)

	var payload InvoiceJobPayload
	s.Require().NoError(jobs[0].DecodePayload(&payload))
	s.Equal(due.ID, payload.SubscriptionID)
}

func (s *SweepServiceSuite) TestRecurringBillingRunIsDeduplicatedPerMinute() {
	ctx := s.GetContext()
	now := time.Now().UTC()
	s.seedActiveSub(now.AddDate(0, 0, 3))

	first, err := s.service.RunRecurringBilling(ctx, now)
	s.Require().NoError(err)
	s.False(first.Replayed)
	s.Equal(1, first.Enqueued)

	second, err := s.service.RunRecurringBilling(ctx, now)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(1, second.Enqueued)

	stats, err := s.GetStores().JobRepo.Stats(ctx, types.QueueInvoices)
	s.Require().NoError(err)
	s.Equal(1, stats.Queued)
}

func (s *SweepServiceSuite) TestHandleGenerateInvoiceJob() {
	ctx := s.GetContext()
	now := time.Now().UTC()
	sub := s.seedActiveSub(now.AddDate(0, 0, 3))
	anchor := sub.NextBillingAt

	_, err := s.service.RunRecurringBilling(ctx, now)
	s.Require().NoError(err)

	j := claimOne(&s.BaseServiceTestSuite, types.QueueInvoices)
	s.Require().NoError(s.service.HandleGenerateInvoiceJob(ctx, j))

	inv, err := s.GetStores().InvoiceRepo.GetLatestBySubscription(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusFinalized, inv.InvoiceStatus)
	s.True(inv.PeriodStart.Equal(anchor))
	s.True(inv.PeriodEnd.Equal(sub.BillingPeriod.NextBillingDate(anchor)))
	s.Equal(sub.PriceMinor, inv.AmountMinor)
	s.Equal(sub.Currency, inv.Currency)

	sub, err = s.GetStores().SubscriptionRepo.Get(ctx, sub.ID)
	s.Require().NoError(err)
	s.Require().NotNil(sub.LastInvoicedAt)
	s.True(sub.LastInvoicedAt.Equal(anchor))

	// Replaying the job sees the cycle already invoiced and does nothing.
	s.Require().NoError(s.service.HandleGenerateInvoiceJob(ctx, j))
	latest, err := s.GetStores().InvoiceRepo.GetLatestBySubscription(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(inv.ID, latest.ID)
}

func (s *SweepServiceSuite) TestSuspensionSweepEnqueuesOverdueSubscriptions() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	fix, _ := s.seedActiveSite()

	// Two overdue invoices on the same subscription collapse to one job.
	s.seedOverdueInvoice(fix.sub, 40)
	s.seedOverdueInvoice(fix.sub, 10)

	// An overdue invoice on a pending subscription is left alone.
	cust := seedCustomer(&s.BaseServiceTestSuite, "other@example.org", "Other")
	pending := subscription.New(ctx, cust.ID, "starter-monthly", types.BillingPeriodMonthly, 999, "USD")
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, pending))
	s.seedOverdueInvoice(pending, 40)

	outcome, err := s.service.RunSuspension(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, outcome.Enqueued)

	j := claimOne(&s.BaseServiceTestSuite, types.QueueProvisioning)
	s.Equal(types.JobKindSuspendSubscription, j.Kind)

	var payload SuspendJobPayload
	s.Require().NoError(j.DecodePayload(&payload))
	s.Equal(fix.sub.ID, payload.SubscriptionID)
	s.Equal("payment_overdue", payload.Reason)
}

func (s *SweepServiceSuite) TestSuspensionSweepRespectsGracePeriod() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	fix, _ := s.seedActiveSite()

	// Due yesterday, still inside the default 3 day grace period.
	s.seedOverdueInvoice(fix.sub, 1)

	outcome, err := s.service.RunSuspension(ctx, now)
	s.Require().NoError(err)
	s.Zero(outcome.Enqueued)
}

func (s *SweepServiceSuite) TestSSLReminderFlow() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	s.seedActiveSite()

	// The freshly issued certificate has ~90 days left; pull it inside the
	// reminder window.
	certs, err := s.GetStores().CertificateRepo.ListExpiringBefore(ctx, now.AddDate(0, 0, 120))
	s.Require().NoError(err)
	s.Require().Len(certs, 1)
	crt := certs[0]
	crt.NotAfter = now.AddDate(0, 0, 10)
	s.Require().NoError(s.GetStores().CertificateRepo.Update(ctx, crt))

	outcome, err := s.service.RunSSLReminders(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, outcome.Enqueued)

	j := claimOne(&s.BaseServiceTestSuite, types.QueueEmails)
	s.Equal(types.JobKindSSLExpiryReminder, j.Kind)
	s.Require().NoError(s.service.HandleSSLReminderJob(ctx, j))

	reminders := s.GetFakes().Notifier.Reminders()
	s.Require().Len(reminders, 1)
	s.Equal(testDomain, reminders[0])

	crt, err = s.GetStores().CertificateRepo.Get(ctx, crt.ID)
	s.Require().NoError(err)
	s.Require().NotNil(crt.RemindedAt)

	// A redelivered job sees the reminder already sent.
	s.Require().NoError(s.service.HandleSSLReminderJob(ctx, j))
	s.Len(s.GetFakes().Notifier.Reminders(), 1)

	// The next sweep minute skips the reminded certificate entirely.
	outcome, err = s.service.RunSSLReminders(ctx, now.Add(time.Minute))
	s.Require().NoError(err)
	s.Zero(outcome.Enqueued)
}

func (s *SweepServiceSuite) TestBackupCleanup() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	_, site := s.seedActiveSite()

	old := backup.New(ctx, site.ID, 4096)
	old.TakenAt = now.AddDate(0, 0, -40)
	s.Require().NoError(s.GetStores().BackupRepo.Create(ctx, old))

	fresh := backup.New(ctx, site.ID, 8192)
	s.Require().NoError(s.GetStores().BackupRepo.Create(ctx, fresh))

	outcome, err := s.service.RunBackupCleanup(ctx, now)
	s.Require().NoError(err)
	s.Equal(1, outcome.Enqueued)

	j := claimOne(&s.BaseServiceTestSuite, types.QueueBackups)
	s.Equal(types.JobKindBackupCleanup, j.Kind)

	var payload BackupCleanupJobPayload
	s.Require().NoError(j.DecodePayload(&payload))
	s.Equal(s.GetConfig().Sweeps.GetBackupRetentionDays(), payload.RetentionDays)

	s.Require().NoError(s.service.HandleBackupCleanupJob(ctx, j))

	// Only the fresh backup survives the retention pass.
	remaining, err := s.GetStores().BackupRepo.DeleteOlderThan(ctx, now.AddDate(1, 0, 0))
	s.Require().NoError(err)
	s.Equal(1, remaining)
}

func (s *SweepServiceSuite) TestMarkInvoicePaidAdvancesBillingAnchor() {
	ctx := s.GetContext()
	now := time.Now().UTC()

	sub := s.seedActiveSub(now.AddDate(0, 0, 3))
	anchor := sub.NextBillingAt
	inv := s.seedOverdueInvoice(sub, 0)

	paid, err := s.service.MarkInvoicePaid(ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, paid.InvoiceStatus)
	s.Require().NotNil(paid.PaidAt)

	sub, err = s.GetStores().SubscriptionRepo.Get(ctx, sub.ID)
	s.Require().NoError(err)
	s.True(sub.NextBillingAt.Equal(sub.BillingPeriod.NextBillingDate(anchor)))

	// Paying an already paid invoice is a no-op.
	again, err := s.service.MarkInvoicePaid(ctx, inv.ID)
	s.Require().NoError(err)
	s.Equal(paid.ID, again.ID)

	afterSecond, err := s.GetStores().SubscriptionRepo.Get(ctx, sub.ID)
	s.Require().NoError(err)
	s.True(afterSecond.NextBillingAt.Equal(sub.NextBillingAt))
}

func (s *SweepServiceSuite) TestMarkInvoicePaidReinstatesSuspendedSite() {
	ctx := s.GetContext()

	fix, site := s.seedActiveSite()
	s.suspendSite(fix)

	site, err := s.GetStores().WebsiteRepo.Get(ctx, site.ID)
	s.Require().NoError(err)
	s.Equal(types.WebsiteStatusSuspended, site.WebsiteStatus)
	s.True(s.GetFakes().Hosting.Adapter.IsSuspended(site.HostingAccountID))

	inv := s.seedOverdueInvoice(fix.sub, 10)
	_, err = s.service.MarkInvoicePaid(ctx, inv.ID)
	s.Require().NoError(err)

	site, err = s.GetStores().WebsiteRepo.Get(ctx, site.ID)
	s.Require().NoError(err)
	s.Equal(types.WebsiteStatusActive, site.WebsiteStatus)
	s.False(s.GetFakes().Hosting.Adapter.IsSuspended(site.HostingAccountID))

	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}
