package service

import (
	"context"
	"time"

	"github.com/hoststack/hoststack/internal/adapter/dbengine"
	"github.com/hoststack/hoststack/internal/adapter/dns"
	"github.com/hoststack/hoststack/internal/adapter/hosting"
	"github.com/hoststack/hoststack/internal/adapter/mail"
	"github.com/hoststack/hoststack/internal/adapter/notify"
	"github.com/hoststack/hoststack/internal/domain/certificate"
	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/domain/server"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	"github.com/hoststack/hoststack/internal/domain/website"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// lockRetryDelay is how long a provisioning job waits before re-enqueueing
// when another worker holds the subscription lock.
const lockRetryDelay = 5 * time.Second

const (
	defaultAccountQuotaMB = 10240
	defaultMailboxQuotaMB = 1024
)

// ProvisioningService runs the fixed six-step workflow that turns a paid
// subscription into a live hosted service.
type ProvisioningService interface {
	// HandleProvisionJob is the `provision_subscription` queue handler
	HandleProvisionJob(ctx context.Context, j *job.Job) error
	// HandleSuspendJob is the `suspend_subscription` queue handler
	HandleSuspendJob(ctx context.Context, j *job.Job) error
}

type provisioningService struct {
	ServiceParams
}

// NewProvisioningService creates the provisioning orchestrator
func NewProvisioningService(params ServiceParams) ProvisioningService {
	return &provisioningService{ServiceParams: params}
}

// stepEnv carries the loaded rows and harvested step outputs through one
// orchestrator run
type stepEnv struct {
	payload *ProvisionJobPayload
	task    *provisioning.Task
	sub     *subscription.Subscription
	srv     *server.Server
	site    *website.Website
	cust    *customer.Customer

	// results holds the output of every succeeded step, whether from this
	// attempt or harvested from the step-log of a prior one
	results map[types.StepKind]map[string]interface{}
}

func (e *stepEnv) resultString(step types.StepKind, key string) string {
	if m, ok := e.results[step]; ok {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}

func (s *provisioningService) HandleProvisionJob(ctx context.Context, j *job.Job) error {
	var payload ProvisionJobPayload
	if err := j.DecodePayload(&payload); err != nil {
		return ierr.WithError(err).
			WithHint("Provisioning job payload is malformed").
			Mark(ierr.ErrAdapterFatal)
	}

	locked, err := s.TaskRepo.AcquireSubscriptionLock(ctx, payload.SubscriptionID)
	if err != nil {
		return err
	}
	if !locked {
		// Another worker is provisioning this subscription. Re-enqueue with a
		// short delay and let this claim complete.
		s.Logger.Infow("subscription locked by another worker, re-enqueueing",
			"task_id", payload.TaskID,
			"subscription_id", payload.SubscriptionID,
		)
		_, err := s.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
			&payload, job.EnqueueOptions{
				Priority:    j.Priority,
				Delay:       lockRetryDelay,
				MaxAttempts: j.MaxAttempts,
			})
		return err
	}
	defer func() {
		if err := s.TaskRepo.ReleaseSubscriptionLock(ctx, payload.SubscriptionID); err != nil {
			s.Logger.Errorw("failed to release subscription lock",
				"subscription_id", payload.SubscriptionID, "error", err)
		}
	}()

	return s.runTask(ctx, j, &payload)
}

func (s *provisioningService) runTask(ctx context.Context, j *job.Job, payload *ProvisionJobPayload) error {
	task, err := s.TaskRepo.Get(ctx, payload.TaskID)
	if err != nil {
		return err
	}
	if task.TaskStatus.IsTerminal() {
		s.Logger.Infow("task already terminal, nothing to do",
			"task_id", task.ID, "task_status", task.TaskStatus)
		return nil
	}

	sub, err := s.SubscriptionRepo.Get(ctx, task.SubscriptionID)
	if err != nil {
		return err
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusActive {
		// A concurrent duplicate already provisioned the subscription.
		return s.finishNoop(ctx, task)
	}

	if err := task.TransitionTo(types.ProvisioningTaskStatusRunning); err != nil {
		return err
	}
	task.AttemptCount++
	if task.StartedAt == nil {
		task.StartedAt = lo.ToPtr(time.Now().UTC())
	}
	if err := s.TaskRepo.Update(ctx, task); err != nil {
		return err
	}

	env := &stepEnv{
		payload: payload,
		task:    task,
		sub:     sub,
		results: make(map[types.StepKind]map[string]interface{}),
	}

	if err := s.prepare(ctx, env); err != nil {
		return s.failRetryable(ctx, j, env, err)
	}

	succeeded := task.SucceededSteps()
	for _, step := range types.ProvisioningSteps {
		if rec, ok := succeeded[step]; ok {
			env.results[step] = rec.Result
			continue
		}
		if err := s.runStep(ctx, env, step); err != nil {
			if ierr.IsFatal(err) {
				return s.failFatal(ctx, j, env, step, err)
			}
			return s.failRetryable(ctx, j, env, err)
		}
		if err := s.persistArtefacts(ctx, env, step); err != nil {
			return s.failRetryable(ctx, j, env, err)
		}
	}

	return s.finish(ctx, env)
}

// prepare places the task on a server and ensures the website row exists
func (s *provisioningService) prepare(ctx context.Context, env *stepEnv) error {
	cust, err := s.CustomerRepo.Get(ctx, env.sub.CustomerID)
	if err != nil {
		return err
	}
	env.cust = cust

	if env.task.ServerID == "" {
		srv, err := s.placeOnServer(ctx)
		if err != nil {
			return err
		}
		env.task.ServerID = srv.ID
		if err := s.TaskRepo.Update(ctx, env.task); err != nil {
			return err
		}
		env.srv = srv
	} else {
		srv, err := s.ServerRepo.Get(ctx, env.task.ServerID)
		if err != nil {
			return err
		}
		env.srv = srv
	}

	site, err := s.WebsiteRepo.GetBySubscriptionID(ctx, env.sub.ID)
	if ierr.IsNotFound(err) {
		site = website.New(ctx, env.cust.ID, env.sub.ID, env.srv.ID, env.payload.Domain)
		if err := s.WebsiteRepo.Create(ctx, site); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	env.site = site
	return nil
}

// placeOnServer picks the active server with the most spare capacity and
// claims one account slot on it.
func (s *provisioningService) placeOnServer(ctx context.Context) (*server.Server, error) {
	servers, err := s.ServerRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	for _, srv := range servers {
		if !srv.HasCapacity() {
			continue
		}
		if err := s.ServerRepo.IncrementAccounts(ctx, srv.ID, 1); err != nil {
			if ierr.IsInvalidOperation(err) {
				// Lost the slot to a concurrent placement; try the next server.
				continue
			}
			return nil, err
		}
		return srv, nil
	}

	return nil, ierr.NewError("no server with spare capacity").
		WithHint("Every active server is at max_accounts").
		Mark(ierr.ErrAdapterRetryable)
}

// runStep appends an execute record, calls the adapter, and finalises the
// record with the outcome.
func (s *provisioningService) runStep(ctx context.Context, env *stepEnv, step types.StepKind) error {
	idemKey := s.KeyGen.StepKey(env.task.ID, string(step))

	rec := &provisioning.StepRecord{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STEP_RECORD),
		TaskID:         env.task.ID,
		StepKind:       step,
		RecordKind:     types.StepRecordKindExecute,
		StepStatus:     types.StepStatusPending,
		Sequence:       env.task.NextSequence(),
		StartedAt:      time.Now().UTC(),
		IdempotencyKey: idemKey,
	}
	env.task.StepLog = append(env.task.StepLog, rec)
	if err := s.TaskRepo.AppendStepRecord(ctx, rec); err != nil {
		return err
	}

	result, err := s.executeStep(ctx, env, step, idemKey)
	if err != nil && ierr.IsAlreadyExists(err) && result != nil {
		// The adapter already holds this resource from a prior attempt with
		// the same idemKey; the returned result is authoritative.
		err = nil
	}

	rec.FinishedAt = lo.ToPtr(time.Now().UTC())
	if err != nil {
		rec.StepStatus = types.StepStatusFailed
		rec.ErrorCode = classificationCode(err)
		rec.ErrorMessage = err.Error()
		if uerr := s.TaskRepo.UpdateStepRecord(ctx, rec); uerr != nil {
			s.Logger.Errorw("failed to finalise step record", "step", step, "error", uerr)
		}
		return err
	}

	rec.StepStatus = types.StepStatusSucceeded
	rec.Result = result
	env.results[step] = result

	s.Logger.Infow("provisioning step succeeded",
		"task_id", env.task.ID,
		"step", step,
		"attempt", env.task.AttemptCount,
		"idempotency_key", idemKey,
	)
	return s.TaskRepo.UpdateStepRecord(ctx, rec)
}

func (s *provisioningService) executeStep(ctx context.Context, env *stepEnv, step types.StepKind, idemKey string) (map[string]interface{}, error) {
	switch step {
	case types.StepKindAccount:
		return s.stepAccount(ctx, env, idemKey)
	case types.StepKindDNS:
		return s.stepDNS(ctx, env, idemKey)
	case types.StepKindSSL:
		return s.stepSSL(ctx, env, idemKey)
	case types.StepKindEmail:
		return s.stepEmail(ctx, env, idemKey)
	case types.StepKindDatabase:
		return s.stepDatabase(ctx, env, idemKey)
	case types.StepKindNotify:
		return s.stepNotify(ctx, env, idemKey)
	default:
		return nil, ierr.NewError("unknown step kind").
			WithHintf("No executor for step %s", step).
			Mark(ierr.ErrAdapterFatal)
	}
}

func (s *provisioningService) stepAccount(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	adapter, err := s.HostingAdapters.ForServer(env.srv)
	if err != nil {
		return nil, err
	}

	res, err := adapter.CreateAccount(ctx, env.srv, hostingCreateRequest(env), idemKey)
	if res == nil {
		return nil, err
	}
	return map[string]interface{}{
		"account_id":        res.AccountID,
		"control_panel_url": res.ControlPanelURL,
	}, err
}

func (s *provisioningService) stepDNS(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	zone, err := s.DNSProvider.CreateZone(ctx, env.payload.Domain, env.srv.DefaultNameservers, idemKey)
	if err != nil && !(ierr.IsAlreadyExists(err) && zone != nil) {
		return nil, err
	}

	// Baseline records. AddRecord swallows duplicates, so replays of a
	// partially created zone converge.
	records := []dns.Record{
		{Name: "@", Type: dns.RecordTypeA, Content: env.srv.IPAddress, TTL: 3600},
		{Name: "@", Type: dns.RecordTypeMX, Content: s.Config.Adapters.MailHostname, TTL: 3600, Priority: 10},
		{Name: "@", Type: dns.RecordTypeTXT, Content: "v=spf1 mx ~all", TTL: 3600},
	}
	for _, ns := range env.srv.DefaultNameservers {
		records = append(records, dns.Record{Name: "@", Type: dns.RecordTypeNS, Content: ns, TTL: 86400})
	}
	for _, rec := range records {
		if err := s.DNSProvider.AddRecord(ctx, zone.ZoneID, rec, idemKey); err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{"zone_id": zone.ZoneID}, nil
}

func (s *provisioningService) stepSSL(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	crt, err := s.CertIssuer.Issue(ctx, env.payload.Domain, s.Config.Adapters.CertContactEmail, idemKey)
	if err != nil && !(ierr.IsAlreadyExists(err) && crt != nil) {
		return nil, err
	}

	record := certificate.New(ctx, env.site.ID, env.payload.Domain, crt.CertID, crt.NotBefore, crt.NotAfter)
	if cerr := s.CertificateRepo.Create(ctx, record); cerr != nil && !ierr.IsAlreadyExists(cerr) {
		return nil, cerr
	}

	return map[string]interface{}{"cert_id": crt.CertID}, nil
}

func (s *provisioningService) stepEmail(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	mb, err := s.MailProvider.CreateMailbox(ctx, mail.CreateMailboxRequest{
		Address:  "admin@" + env.payload.Domain,
		Password: env.payload.TemporaryPassword,
		QuotaMB:  defaultMailboxQuotaMB,
	}, idemKey)
	if mb == nil {
		return nil, err
	}
	return map[string]interface{}{
		"mailbox_id":  mb.MailboxID,
		"address":     mb.Address,
		"webmail_url": mb.WebmailURL,
	}, err
}

func (s *provisioningService) stepDatabase(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	db, err := s.DatabaseProvider.CreateDatabase(ctx, dbengine.CreateDatabaseRequest{
		Name:     env.payload.Username + "_db",
		Owner:    env.payload.Username,
		Password: env.payload.TemporaryPassword,
	}, idemKey)
	if db == nil {
		return nil, err
	}
	return map[string]interface{}{
		"database_id": db.DatabaseID,
		"name":        db.Name,
	}, err
}

func (s *provisioningService) stepNotify(ctx context.Context, env *stepEnv, idemKey string) (map[string]interface{}, error) {
	err := s.Notifier.SendWelcome(ctx, notify.WelcomeEmail{
		To:                env.cust.Email,
		CustomerName:      env.cust.Name,
		Domain:            env.payload.Domain,
		Username:          env.payload.Username,
		TemporaryPassword: env.payload.TemporaryPassword,
		ControlPanelURL:   env.resultString(types.StepKindAccount, "control_panel_url"),
		WebmailURL:        env.resultString(types.StepKindEmail, "webmail_url"),
		DefaultMailbox:    env.resultString(types.StepKindEmail, "address"),
		Nameservers:       env.srv.DefaultNameservers,
	}, idemKey)
	if err != nil && !ierr.IsAlreadyExists(err) {
		return nil, err
	}
	// Only the fact of delivery is recorded; the password never enters the log.
	return map[string]interface{}{"notified": true}, nil
}

// persistArtefacts writes step outputs onto the website row
func (s *provisioningService) persistArtefacts(ctx context.Context, env *stepEnv, step types.StepKind) error {
	switch step {
	case types.StepKindAccount:
		env.site.HostingAccountID = env.resultString(step, "account_id")
	case types.StepKindDNS:
		env.site.DNSZoneID = env.resultString(step, "zone_id")
	case types.StepKindSSL:
		env.site.SSLCertID = env.resultString(step, "cert_id")
	case types.StepKindEmail:
		env.site.DefaultMailbox = env.resultString(step, "address")
	case types.StepKindDatabase:
		env.site.DefaultDatabase = env.resultString(step, "name")
	default:
		return nil
	}
	return s.WebsiteRepo.Update(ctx, env.site)
}

// finish commits the success state: website active, subscription active,
// task succeeded.
func (s *provisioningService) finish(ctx context.Context, env *stepEnv) error {
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		env.site.WebsiteStatus = types.WebsiteStatusActive
		if err := s.WebsiteRepo.Update(txCtx, env.site); err != nil {
			return err
		}

		if err := env.sub.Activate(); err != nil {
			return err
		}
		if err := s.SubscriptionRepo.Update(txCtx, env.sub); err != nil {
			return err
		}

		if err := env.task.TransitionTo(types.ProvisioningTaskStatusSucceeded); err != nil {
			return err
		}
		env.task.FinishedAt = lo.ToPtr(time.Now().UTC())
		env.task.LastError = ""
		return s.TaskRepo.Update(txCtx, env.task)
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("provisioning task succeeded",
		"task_id", env.task.ID,
		"subscription_id", env.sub.ID,
		"server_id", env.srv.ID,
		"attempts", env.task.AttemptCount,
	)
	return nil
}

// finishNoop closes a task whose subscription was already provisioned by a
// concurrent duplicate.
func (s *provisioningService) finishNoop(ctx context.Context, task *provisioning.Task) error {
	if err := task.TransitionTo(types.ProvisioningTaskStatusSucceeded); err != nil {
		return err
	}
	task.FinishedAt = lo.ToPtr(time.Now().UTC())
	return s.TaskRepo.Update(ctx, task)
}

// failRetryable records the error and hands the retry decision to the queue.
// When the job has burned its last attempt the task dead-letters here, since
// the queue will not run it again.
func (s *provisioningService) failRetryable(ctx context.Context, j *job.Job, env *stepEnv, stepErr error) error {
	env.task.LastError = stepErr.Error()

	if j.Attempts >= j.MaxAttempts {
		if err := env.task.TransitionTo(types.ProvisioningTaskStatusDeadLettered); err == nil {
			env.task.FinishedAt = lo.ToPtr(time.Now().UTC())
		}
	} else if err := env.task.TransitionTo(types.ProvisioningTaskStatusQueued); err != nil {
		s.Logger.Errorw("failed to re-queue task", "task_id", env.task.ID, "error", err)
	}

	if err := s.TaskRepo.Update(ctx, env.task); err != nil {
		s.Logger.Errorw("failed to persist task failure", "task_id", env.task.ID, "error", err)
	}
	return stepErr
}

// failFatal dead-letters the task and compensates completed steps in reverse
// order.
func (s *provisioningService) failFatal(ctx context.Context, j *job.Job, env *stepEnv, failedStep types.StepKind, stepErr error) error {
	s.Logger.Errorw("provisioning step failed fatally",
		"task_id", env.task.ID,
		"step", failedStep,
		"attempt", env.task.AttemptCount,
		"error", stepErr,
	)

	s.compensate(ctx, env, failedStep)

	if err := s.ServerRepo.IncrementAccounts(ctx, env.srv.ID, -1); err != nil {
		s.Logger.Errorw("failed to release server slot", "server_id", env.srv.ID, "error", err)
	}

	env.task.LastError = stepErr.Error()
	if err := env.task.TransitionTo(types.ProvisioningTaskStatusFailed); err == nil {
		env.task.FinishedAt = lo.ToPtr(time.Now().UTC())
	}
	if err := s.TaskRepo.Update(ctx, env.task); err != nil {
		s.Logger.Errorw("failed to persist task failure", "task_id", env.task.ID, "error", err)
	}
	return stepErr
}

// compensate undoes the external artefacts of every succeeded step before
// failedStep, in reverse workflow order. Failures are recorded and skipped.
func (s *provisioningService) compensate(ctx context.Context, env *stepEnv, failedStep types.StepKind) {
	var toUndo []types.StepKind
	for _, step := range types.ProvisioningSteps {
		if step == failedStep {
			break
		}
		if _, ok := env.results[step]; ok {
			toUndo = append(toUndo, step)
		}
	}

	for i := len(toUndo) - 1; i >= 0; i-- {
		step := toUndo[i]

		rec := &provisioning.StepRecord{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_STEP_RECORD),
			TaskID:     env.task.ID,
			StepKind:   step,
			RecordKind: types.StepRecordKindCompensate,
			StepStatus: types.StepStatusPending,
			Sequence:   env.task.NextSequence(),
			StartedAt:  time.Now().UTC(),
		}
		env.task.StepLog = append(env.task.StepLog, rec)
		if err := s.TaskRepo.AppendStepRecord(ctx, rec); err != nil {
			s.Logger.Errorw("failed to append compensation record", "step", step, "error", err)
			continue
		}

		err := s.compensateStep(ctx, env, step)
		rec.FinishedAt = lo.ToPtr(time.Now().UTC())
		if err != nil {
			rec.StepStatus = types.StepStatusFailed
			rec.ErrorCode = classificationCode(err)
			rec.ErrorMessage = err.Error()
			s.Logger.Warnw("compensation failed, continuing",
				"task_id", env.task.ID, "step", step, "error", err)
		} else {
			rec.StepStatus = types.StepStatusSucceeded
		}
		if uerr := s.TaskRepo.UpdateStepRecord(ctx, rec); uerr != nil {
			s.Logger.Errorw("failed to finalise compensation record", "step", step, "error", uerr)
		}
	}
}

func (s *provisioningService) compensateStep(ctx context.Context, env *stepEnv, step types.StepKind) error {
	switch step {
	case types.StepKindAccount:
		adapter, err := s.HostingAdapters.ForServer(env.srv)
		if err != nil {
			return err
		}
		return adapter.Terminate(ctx, env.srv, env.resultString(step, "account_id"))
	case types.StepKindDNS:
		return s.DNSProvider.DeleteZone(ctx, env.resultString(step, "zone_id"))
	case types.StepKindSSL:
		return s.CertIssuer.Revoke(ctx, env.resultString(step, "cert_id"))
	case types.StepKindEmail:
		return s.MailProvider.Delete(ctx, env.resultString(step, "mailbox_id"))
	case types.StepKindDatabase:
		return s.DatabaseProvider.DropDatabase(ctx, env.resultString(step, "database_id"))
	default:
		return nil
	}
}

func (s *provisioningService) HandleSuspendJob(ctx context.Context, j *job.Job) error {
	var payload SuspendJobPayload
	if err := j.DecodePayload(&payload); err != nil {
		return ierr.WithError(err).
			WithHint("Suspension job payload is malformed").
			Mark(ierr.ErrAdapterFatal)
	}

	site, err := s.WebsiteRepo.GetBySubscriptionID(ctx, payload.SubscriptionID)
	if err != nil {
		return err
	}
	if site.WebsiteStatus == types.WebsiteStatusSuspended {
		return nil
	}

	srv, err := s.ServerRepo.Get(ctx, site.ServerID)
	if err != nil {
		return err
	}
	adapter, err := s.HostingAdapters.ForServer(srv)
	if err != nil {
		return err
	}
	if err := adapter.Suspend(ctx, srv, site.HostingAccountID); err != nil {
		return err
	}

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		site.WebsiteStatus = types.WebsiteStatusSuspended
		if err := s.WebsiteRepo.Update(txCtx, site); err != nil {
			return err
		}

		sub, err := s.SubscriptionRepo.Get(txCtx, payload.SubscriptionID)
		if err != nil {
			return err
		}
		sub.SubscriptionStatus = types.SubscriptionStatusSuspended
		return s.SubscriptionRepo.Update(txCtx, sub)
	})
	if err != nil {
		return err
	}

	s.Logger.Infow("suspended subscription",
		"subscription_id", payload.SubscriptionID,
		"website_id", site.ID,
		"reason", payload.Reason,
	)

	if payload.Reason == "payment_overdue" {
		s.notifyOverdue(ctx, j, site.CustomerID, site.Domain)
	}
	return nil
}

// notifyOverdue sends the payment overdue notice. Delivery is best effort;
// the suspension itself already committed.
func (s *provisioningService) notifyOverdue(ctx context.Context, j *job.Job, customerID, domain string) {
	cust, err := s.CustomerRepo.Get(ctx, customerID)
	if err != nil {
		s.Logger.Errorw("failed to load customer for overdue notice",
			"customer_id", customerID, "error", err)
		return
	}

	idemKey := s.KeyGen.GenerateKey(idempotency.ScopeStep, map[string]interface{}{
		"kind":   "payment_overdue",
		"job_id": j.ID,
	})
	if err := s.Notifier.SendPaymentOverdue(ctx, cust.Email, domain, idemKey); err != nil && !ierr.IsAlreadyExists(err) {
		s.Logger.Errorw("failed to send payment overdue notice",
			"customer_id", customerID, "domain", domain, "error", err)
	}
}

// hostingCreateRequest builds the control panel account request. The password
// is the customer's temporary secret; it is never logged.
func hostingCreateRequest(env *stepEnv) hosting.CreateAccountRequest {
	return hosting.CreateAccountRequest{
		Username: env.payload.Username,
		Domain:   env.payload.Domain,
		Password: env.payload.TemporaryPassword,
		Plan:     env.sub.ProductCode,
		QuotaMB:  defaultAccountQuotaMB,
	}
}

// classificationCode maps a classified adapter error to its step-log code
func classificationCode(err error) string {
	switch {
	case ierr.IsFatal(err):
		return ierr.ErrCodeAdapterFatal
	case ierr.IsAlreadyExists(err):
		return ierr.ErrCodeAlreadyExists
	case ierr.IsRetryable(err):
		return ierr.ErrCodeAdapterRetryable
	default:
		return ierr.ErrCodeSystemError
	}
}
