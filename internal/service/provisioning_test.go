package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/domain/server"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	"github.com/hoststack/hoststack/internal/domain/website"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/stretchr/testify/suite"
)

const (
	testDomain   = "example.org"
	testUsername = "example0001"
	testPassword = "tmp-secret-123"
)

type ProvisioningServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service ProvisioningService
}

func TestProvisioningService(t *testing.T) {
	suite.Run(t, new(ProvisioningServiceSuite))
}

func (s *ProvisioningServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite)
	s.service = NewProvisioningService(s.params)
}

type provisioningFixture struct {
	srv  *server.Server
	cust *customer.Customer
	sub  *subscription.Subscription
	task *provisioning.Task
}

// seedProvisioning creates the rows a provisioning job expects and enqueues
// the job itself.
func seedProvisioning(s *testutil.BaseServiceTestSuite, params ServiceParams, maxAttempts int) *provisioningFixture {
	ctx := s.GetContext()

	srv := seedServer(s)
	cust := seedCustomer(s, "jane@example.org", "Jane Doe")

	sub := subscription.New(ctx, cust.ID, "starter-monthly", types.BillingPeriodMonthly, 999, "USD")
	s.Require().NoError(s.GetStores().SubscriptionRepo.Create(ctx, sub))

	task := provisioning.NewTask(ctx, sub.ID, maxAttempts)
	s.Require().NoError(s.GetStores().TaskRepo.Create(ctx, task))

	_, err := params.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&ProvisionJobPayload{
			TaskID:            task.ID,
			SubscriptionID:    sub.ID,
			CustomerID:        cust.ID,
			Domain:            testDomain,
			Username:          testUsername,
			TemporaryPassword: testPassword,
		},
		job.EnqueueOptions{Priority: types.ProvisioningJobPriority, MaxAttempts: maxAttempts})
	s.Require().NoError(err)

	return &provisioningFixture{srv: srv, cust: cust, sub: sub, task: task}
}

func claimOne(s *testutil.BaseServiceTestSuite, queue types.QueueName) *job.Job {
	jobs, err := s.GetStores().JobRepo.Claim(s.GetContext(), queue, "worker-1", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	return jobs[0]
}

func (s *ProvisioningServiceSuite) seedProvisioning(maxAttempts int) *provisioningFixture {
	return seedProvisioning(&s.BaseServiceTestSuite, s.params, maxAttempts)
}

func (s *ProvisioningServiceSuite) claimOne(queue types.QueueName) *job.Job {
	return claimOne(&s.BaseServiceTestSuite, queue)
}

func (s *ProvisioningServiceSuite) TestHappyPath() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))

	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusSucceeded, task.TaskStatus)
	s.Equal(1, task.AttemptCount)
	s.NotNil(task.FinishedAt)
	s.Equal(fix.srv.ID, task.ServerID)

	s.Require().Len(task.StepLog, len(types.ProvisioningSteps))
	for i, step := range types.ProvisioningSteps {
		rec := task.StepLog[i]
		s.Equal(step, rec.StepKind)
		s.Equal(types.StepRecordKindExecute, rec.RecordKind)
		s.Equal(types.StepStatusSucceeded, rec.StepStatus)
		s.NotEmpty(rec.IdempotencyKey)
	}

	// The notify record must carry only the delivery fact, never the secret.
	notifyRec := task.StepLog[len(task.StepLog)-1]
	s.Equal(types.StepKindNotify, notifyRec.StepKind)
	s.Equal(true, notifyRec.Result["notified"])
	for _, rec := range task.StepLog {
		for key, value := range rec.Result {
			s.NotEqual(testPassword, value, "step %s leaked the password under %q", rec.StepKind, key)
		}
	}

	site, err := s.GetStores().WebsiteRepo.GetBySubscriptionID(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.WebsiteStatusActive, site.WebsiteStatus)
	s.Equal("acct_"+testUsername, site.HostingAccountID)
	s.Equal("zone_"+testDomain, site.DNSZoneID)
	s.Equal("ca_"+testDomain, site.SSLCertID)
	s.Equal("admin@"+testDomain, site.DefaultMailbox)
	s.Equal(testUsername+"_db", site.DefaultDatabase)

	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)

	srv, err := s.GetStores().ServerRepo.Get(ctx, fix.srv.ID)
	s.Require().NoError(err)
	s.Equal(1, srv.CurrentAccounts)

	// The welcome email is the only place the password travels.
	welcomes := s.GetFakes().Notifier.Welcomes()
	s.Require().Len(welcomes, 1)
	s.Equal("jane@example.org", welcomes[0].To)
	s.Equal(testPassword, welcomes[0].TemporaryPassword)
	s.Equal(fmt.Sprintf("https://%s:2083", fix.srv.Hostname), welcomes[0].ControlPanelURL)
	s.Equal("admin@"+testDomain, welcomes[0].DefaultMailbox)
	s.Equal(fix.srv.DefaultNameservers, welcomes[0].Nameservers)

	// Zone gets A, MX, TXT plus one NS per nameserver.
	records := s.GetFakes().DNS.Records("zone_" + testDomain)
	s.Len(records, 3+len(fix.srv.DefaultNameservers))

	// The certificate row exists for the expiry reminder sweep.
	certs, err := s.GetStores().CertificateRepo.ListExpiringBefore(ctx, time.Now().UTC().AddDate(0, 0, 120))
	s.Require().NoError(err)
	s.Require().Len(certs, 1)
	s.Equal(site.ID, certs[0].WebsiteID)
	s.Equal("ca_"+testDomain, certs[0].CertID)
}

func (s *ProvisioningServiceSuite) TestTransientDNSFailureRetriesAndConverges() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	dns := s.GetFakes().DNS
	dns.ScriptError("create_zone", testutil.RetryableAdapterError("dns backend timeout"))
	dns.ScriptError("create_zone", testutil.RetryableAdapterError("dns backend timeout"))

	for attempt := 1; attempt <= 2; attempt++ {
		j := s.claimOne(types.QueueProvisioning)
		err := s.service.HandleProvisionJob(ctx, j)
		s.Require().Error(err)
		s.True(ierr.IsRetryable(err))
		s.Require().NoError(s.GetStores().JobRepo.FailRetry(ctx, j.ID, "worker-1", err.Error(), 0))
	}

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))

	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusSucceeded, task.TaskStatus)
	s.Equal(3, task.AttemptCount)

	// Three dns execute records: two failed, one succeeded.
	var dnsRecs []*provisioning.StepRecord
	for _, rec := range task.StepLog {
		if rec.StepKind == types.StepKindDNS {
			dnsRecs = append(dnsRecs, rec)
		}
	}
	s.Require().Len(dnsRecs, 3)
	s.Equal(types.StepStatusFailed, dnsRecs[0].StepStatus)
	s.Equal(ierr.ErrCodeAdapterRetryable, dnsRecs[0].ErrorCode)
	s.Equal(types.StepStatusFailed, dnsRecs[1].StepStatus)
	s.Equal(types.StepStatusSucceeded, dnsRecs[2].StepStatus)

	// All three attempts reused one idempotency key.
	s.Equal(dnsRecs[0].IdempotencyKey, dnsRecs[1].IdempotencyKey)
	s.Equal(dnsRecs[0].IdempotencyKey, dnsRecs[2].IdempotencyKey)

	// The account step succeeded on attempt one and was skipped afterwards.
	s.Len(s.GetFakes().Hosting.Adapter.CallsFor("create_account"), 1)

	site, err := s.GetStores().WebsiteRepo.GetBySubscriptionID(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.WebsiteStatusActive, site.WebsiteStatus)
}

func (s *ProvisioningServiceSuite) TestFatalSSLFailureCompensatesInReverse() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	s.GetFakes().Cert.ScriptError("issue", testutil.FatalAdapterError("domain blocked by CA policy"))

	j := s.claimOne(types.QueueProvisioning)
	err := s.service.HandleProvisionJob(ctx, j)
	s.Require().Error(err)
	s.True(ierr.IsFatal(err))

	task, terr := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(terr)
	s.Equal(types.ProvisioningTaskStatusFailed, task.TaskStatus)
	s.Contains(task.LastError, "domain blocked")
	s.NotNil(task.FinishedAt)

	// Compensation runs in reverse workflow order: dns before account.
	var comps []*provisioning.StepRecord
	for _, rec := range task.StepLog {
		if rec.RecordKind == types.StepRecordKindCompensate {
			comps = append(comps, rec)
		}
	}
	s.Require().Len(comps, 2)
	s.Equal(types.StepKindDNS, comps[0].StepKind)
	s.Equal(types.StepKindAccount, comps[1].StepKind)
	s.Equal(types.StepStatusSucceeded, comps[0].StepStatus)
	s.Equal(types.StepStatusSucceeded, comps[1].StepStatus)

	s.Len(s.GetFakes().DNS.CallsFor("delete_zone"), 1)
	terminates := s.GetFakes().Hosting.Adapter.CallsFor("terminate")
	s.Require().Len(terminates, 1)
	s.Equal("acct_"+testUsername, terminates[0].Target)

	// The server slot is released and the subscription stays pending.
	srv, serr := s.GetStores().ServerRepo.Get(ctx, fix.srv.ID)
	s.Require().NoError(serr)
	s.Equal(0, srv.CurrentAccounts)

	sub, suberr := s.GetStores().SubscriptionRepo.Get(ctx, fix.sub.ID)
	s.Require().NoError(suberr)
	s.Equal(types.SubscriptionStatusPending, sub.SubscriptionStatus)

	site, werr := s.GetStores().WebsiteRepo.GetBySubscriptionID(ctx, fix.sub.ID)
	s.Require().NoError(werr)
	s.Equal(types.WebsiteStatusPending, site.WebsiteStatus)
}

func (s *ProvisioningServiceSuite) TestLockedSubscriptionReEnqueuesWithDelay() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	locked, err := s.GetStores().TaskRepo.AcquireSubscriptionLock(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Require().True(locked)
	defer func() {
		s.Require().NoError(s.GetStores().TaskRepo.ReleaseSubscriptionLock(ctx, fix.sub.ID))
	}()

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))

	// The task was not touched and a delayed duplicate sits in the queue.
	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusQueued, task.TaskStatus)
	s.Equal(0, task.AttemptCount)

	stats, err := s.GetStores().JobRepo.Stats(ctx, types.QueueProvisioning)
	s.Require().NoError(err)
	s.Equal(1, stats.Queued)

	// Not eligible yet: the re-enqueue carries the lock retry delay.
	jobs, err := s.GetStores().JobRepo.Claim(ctx, types.QueueProvisioning, "worker-2", 1, time.Minute)
	s.Require().NoError(err)
	s.Empty(jobs)

	s.Empty(s.GetFakes().Hosting.Adapter.Calls())
}

func (s *ProvisioningServiceSuite) TestAlreadyActiveSubscriptionFinishesWithoutSteps() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Require().NoError(sub.Activate())
	s.Require().NoError(s.GetStores().SubscriptionRepo.Update(ctx, sub))

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))

	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusSucceeded, task.TaskStatus)
	s.Empty(task.StepLog)
	s.Empty(s.GetFakes().Hosting.Adapter.Calls())
}

func (s *ProvisioningServiceSuite) TestTerminalTaskIsNotRerun() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Require().NoError(task.TransitionTo(types.ProvisioningTaskStatusFailed))
	s.Require().NoError(s.GetStores().TaskRepo.Update(ctx, task))

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))
	s.Empty(s.GetFakes().Hosting.Adapter.Calls())
}

func (s *ProvisioningServiceSuite) TestLastAttemptFailureDeadLettersTask() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(1)

	s.GetFakes().DNS.ScriptError("create_zone", testutil.RetryableAdapterError("dns backend timeout"))

	j := s.claimOne(types.QueueProvisioning)
	err := s.service.HandleProvisionJob(ctx, j)
	s.Require().Error(err)

	task, terr := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(terr)
	s.Equal(types.ProvisioningTaskStatusDeadLettered, task.TaskStatus)
	s.NotNil(task.FinishedAt)
	s.Contains(task.LastError, "dns backend timeout")
}

func (s *ProvisioningServiceSuite) TestNoCapacityIsRetryable() {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	srv, err := s.GetStores().ServerRepo.Get(ctx, fix.srv.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().ServerRepo.IncrementAccounts(ctx, srv.ID, srv.MaxAccounts))

	j := s.claimOne(types.QueueProvisioning)
	err = s.service.HandleProvisionJob(ctx, j)
	s.Require().Error(err)
	s.True(ierr.IsRetryable(err))

	task, terr := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(terr)
	s.Equal(types.ProvisioningTaskStatusQueued, task.TaskStatus)
}

func (s *ProvisioningServiceSuite) TestMalformedPayloadIsFatal() {
	ctx := s.GetContext()

	j, err := job.New(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		"not-a-payload", job.EnqueueOptions{})
	s.Require().NoError(err)

	err = s.service.HandleProvisionJob(ctx, j)
	s.Require().Error(err)
	s.True(ierr.IsFatal(err))
}

func (s *ProvisioningServiceSuite) seedSuspendable() (*provisioningFixture, *website.Website, *job.Job) {
	ctx := s.GetContext()
	fix := s.seedProvisioning(3)

	j := s.claimOne(types.QueueProvisioning)
	s.Require().NoError(s.service.HandleProvisionJob(ctx, j))
	s.Require().NoError(s.GetStores().JobRepo.Complete(ctx, j.ID, "worker-1"))

	site, err := s.GetStores().WebsiteRepo.GetBySubscriptionID(ctx, fix.sub.ID)
	s.Require().NoError(err)

	_, err = s.params.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindSuspendSubscription,
		&SuspendJobPayload{SubscriptionID: fix.sub.ID, Reason: "payment_overdue"},
		job.EnqueueOptions{})
	s.Require().NoError(err)

	return fix, site, s.claimOne(types.QueueProvisioning)
}

func (s *ProvisioningServiceSuite) TestSuspendJob() {
	ctx := s.GetContext()
	fix, site, j := s.seedSuspendable()

	s.Require().NoError(s.service.HandleSuspendJob(ctx, j))

	site, err := s.GetStores().WebsiteRepo.Get(ctx, site.ID)
	s.Require().NoError(err)
	s.Equal(types.WebsiteStatusSuspended, site.WebsiteStatus)

	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, fix.sub.ID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, sub.SubscriptionStatus)

	s.True(s.GetFakes().Hosting.Adapter.IsSuspended(site.HostingAccountID))

	// Overdue suspension notifies the customer once.
	s.Equal([]string{testDomain}, s.GetFakes().Notifier.Overdues())
}

func (s *ProvisioningServiceSuite) TestSuspendJobIsIdempotent() {
	ctx := s.GetContext()
	_, _, j := s.seedSuspendable()

	s.Require().NoError(s.service.HandleSuspendJob(ctx, j))
	s.Require().NoError(s.service.HandleSuspendJob(ctx, j))

	s.Len(s.GetFakes().Hosting.Adapter.CallsFor("suspend"), 1)
	s.Len(s.GetFakes().Notifier.Overdues(), 1)
}
