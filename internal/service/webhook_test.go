package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hoststack/hoststack/internal/domain/customer"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/stretchr/testify/suite"
)

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	service WebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite)
	s.service = NewWebhookService(s.params)
}

func (s *WebhookServiceSuite) signedEvent(eventID, kind, sessionID string) ([]byte, string) {
	payload, err := json.Marshal(map[string]interface{}{
		"eventId":      eventID,
		"kind":         kind,
		"sessionId":    sessionID,
		"email":        "jane@example.org",
		"customerName": "Jane Doe",
		"productCode":  "starter-monthly",
		"period":       "monthly",
		"amountMinor":  999,
		"currency":     "USD",
		"domain":       "example.org",
	})
	s.Require().NoError(err)
	return payload, s.params.Verifier.Sign(payload, time.Now().UTC())
}

func (s *WebhookServiceSuite) TestCheckoutCompletedProvisions() {
	ctx := s.GetContext()
	payload, sig := s.signedEvent("evt_1", "checkout.completed", "cs_100")

	outcome, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)
	s.True(outcome.Received)
	s.True(outcome.Provisioned)
	s.False(outcome.Replayed)
	s.Require().NotEmpty(outcome.TaskID)

	// Event stored for audit.
	event, err := s.GetStores().PaymentEventRepo.GetByExternalID(ctx, "evt_1")
	s.Require().NoError(err)
	s.Equal(types.PaymentEventCheckoutCompleted, event.Kind)

	// Session completed, customer, credential and pending subscription exist.
	session, err := s.GetStores().CheckoutRepo.GetByExternalID(ctx, "cs_100")
	s.Require().NoError(err)
	s.Equal(types.CheckoutSessionStatusCompleted, session.SessionStatus)
	s.Equal("example.org", session.Domain)

	cust, err := s.GetStores().CustomerRepo.GetByEmail(ctx, "jane@example.org")
	s.Require().NoError(err)
	s.Equal("Jane Doe", cust.Name)

	cred, err := s.GetStores().UserRepo.GetByCustomerID(ctx, cust.ID)
	s.Require().NoError(err)
	s.True(cred.MustChangePassword)
	s.NotEmpty(cred.PasswordHash)

	task, err := s.GetStores().TaskRepo.Get(ctx, outcome.TaskID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusQueued, task.TaskStatus)

	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, task.SubscriptionID)
	s.Require().NoError(err)
	s.Equal(types.SubscriptionStatusPending, sub.SubscriptionStatus)
	s.Equal(session.ID, sub.Metadata["checkout_id"])

	// One provisioning job, at provisioning priority, carrying the secret.
	jobs, err := s.GetStores().JobRepo.Claim(ctx, types.QueueProvisioning, "worker-1", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(types.JobKindProvisionSubscription, jobs[0].Kind)
	s.Equal(types.ProvisioningJobPriority, jobs[0].Priority)

	var jp ProvisionJobPayload
	s.Require().NoError(jobs[0].DecodePayload(&jp))
	s.Equal(task.ID, jp.TaskID)
	s.Equal("example.org", jp.Domain)
	s.NotEmpty(jp.Username)
	s.NotEmpty(jp.TemporaryPassword)
}

func (s *WebhookServiceSuite) TestDuplicateEventIDReplays() {
	ctx := s.GetContext()
	payload, sig := s.signedEvent("evt_1", "checkout.completed", "cs_100")

	first, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)
	s.False(first.Replayed)

	second, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.TaskID, second.TaskID)

	// Exactly one task and one job exist.
	count, err := s.GetStores().TaskRepo.Count(ctx, nil)
	s.Require().NoError(err)
	s.Equal(1, count)

	stats, err := s.GetStores().JobRepo.Stats(ctx, types.QueueProvisioning)
	s.Require().NoError(err)
	s.Equal(1, stats.Queued)
}

func (s *WebhookServiceSuite) TestCompletedSessionUnderNewEventIDIsAcknowledged() {
	ctx := s.GetContext()

	payload1, sig1 := s.signedEvent("evt_1", "checkout.completed", "cs_100")
	first, err := s.service.ProcessEvent(ctx, payload1, sig1)
	s.Require().NoError(err)
	s.True(first.Provisioned)

	// The provider re-announces the same session under a fresh event id.
	payload2, sig2 := s.signedEvent("evt_2", "checkout.completed", "cs_100")
	second, err := s.service.ProcessEvent(ctx, payload2, sig2)
	s.Require().NoError(err)
	s.True(second.Received)
	s.False(second.Provisioned)
	s.False(second.Replayed)

	count, err := s.GetStores().TaskRepo.Count(ctx, nil)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *WebhookServiceSuite) TestNonCheckoutKindIsStoredOnly() {
	ctx := s.GetContext()
	payload, sig := s.signedEvent("evt_9", "invoice.paid", "")

	outcome, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)
	s.True(outcome.Received)
	s.False(outcome.Provisioned)

	_, err = s.GetStores().PaymentEventRepo.GetByExternalID(ctx, "evt_9")
	s.Require().NoError(err)

	count, err := s.GetStores().TaskRepo.Count(ctx, nil)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *WebhookServiceSuite) TestExistingCustomerIsReused() {
	ctx := s.GetContext()
	existing := seedCustomer(&s.BaseServiceTestSuite, "jane@example.org", "J. Doe")

	payload, sig := s.signedEvent("evt_1", "checkout.completed", "cs_100")
	_, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)

	cust, err := s.GetStores().CustomerRepo.GetByEmail(ctx, "jane@example.org")
	s.Require().NoError(err)
	s.Equal(existing.ID, cust.ID)
	// The name from the newer event wins.
	s.Equal("Jane Doe", cust.Name)
}

// staleReadCustomerRepo misses the first email lookup, modelling a read that
// ran before a concurrent checkout committed the same email.
type staleReadCustomerRepo struct {
	customer.Repository
	missedOnce bool
}

func (r *staleReadCustomerRepo) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	if !r.missedOnce {
		r.missedOnce = true
		return nil, ierr.NewError("customer not found").
			WithHintf("No customer with email %s", email).
			Mark(ierr.ErrNotFound)
	}
	return r.Repository.GetByEmail(ctx, email)
}

func (s *WebhookServiceSuite) TestConcurrentCustomerCreateFoldsIntoExistingRow() {
	ctx := s.GetContext()
	existing := seedCustomer(&s.BaseServiceTestSuite, "jane@example.org", "Jane Doe")

	params := s.params
	params.CustomerRepo = &staleReadCustomerRepo{Repository: s.GetStores().CustomerRepo}
	svc := NewWebhookService(params)

	payload, sig := s.signedEvent("evt_1", "checkout.completed", "cs_100")
	outcome, err := svc.ProcessEvent(ctx, payload, sig)
	s.Require().NoError(err)
	s.True(outcome.Provisioned)

	// The insert hit the unique email index and folded into the winner's row.
	task, err := s.GetStores().TaskRepo.Get(ctx, outcome.TaskID)
	s.Require().NoError(err)
	sub, err := s.GetStores().SubscriptionRepo.Get(ctx, task.SubscriptionID)
	s.Require().NoError(err)
	s.Equal(existing.ID, sub.CustomerID)
}

func (s *WebhookServiceSuite) TestBadSignatureIsRejected() {
	ctx := s.GetContext()
	payload, _ := s.signedEvent("evt_1", "checkout.completed", "cs_100")

	_, err := s.service.ProcessEvent(ctx, payload, "t=1,v1=deadbeef")
	s.Require().Error(err)
	s.True(ierr.IsBadSignature(err))

	// Nothing was stored for a rejected delivery.
	_, err = s.GetStores().PaymentEventRepo.GetByExternalID(ctx, "evt_1")
	s.True(ierr.IsNotFound(err))
}

func (s *WebhookServiceSuite) TestMissingRequiredFieldsIsValidationError() {
	ctx := s.GetContext()

	payload := []byte(`{"kind":"checkout.completed"}`)
	sig := s.params.Verifier.Sign(payload, time.Now().UTC())

	_, err := s.service.ProcessEvent(ctx, payload, sig)
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}
