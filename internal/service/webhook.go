package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hoststack/hoststack/internal/domain/checkout"
	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/job"
	"github.com/hoststack/hoststack/internal/domain/paymentevent"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	"github.com/hoststack/hoststack/internal/domain/subscription"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/types"
)

// webhookEventTTL bounds how long a processed event id blocks replays
const webhookEventTTL = 24 * time.Hour

// WebhookService handles inbound payment provider events
type WebhookService interface {
	// ProcessEvent verifies and processes one raw webhook delivery. The
	// returned outcome is the stored (possibly replayed) processing result.
	ProcessEvent(ctx context.Context, payload []byte, signatureHeader string) (*WebhookOutcome, error)
}

// WebhookOutcome is the stored result of processing one event
type WebhookOutcome struct {
	Received    bool   `json:"received"`
	Provisioned bool   `json:"provisioned"`
	TaskID      string `json:"task_id,omitempty"`
	Replayed    bool   `json:"-"`
}

// paymentEventEnvelope is the provider's event shape
type paymentEventEnvelope struct {
	EventID      string `json:"eventId"`
	Kind         string `json:"kind"`
	SessionID    string `json:"sessionId"`
	Email        string `json:"email"`
	CustomerName string `json:"customerName"`
	ProductCode  string `json:"productCode"`
	Period       string `json:"period"`
	AmountMinor  int64  `json:"amountMinor"`
	Currency     string `json:"currency"`
	Domain       string `json:"domain"`
}

type webhookService struct {
	ServiceParams
}

// NewWebhookService creates the webhook intake service
func NewWebhookService(params ServiceParams) WebhookService {
	return &webhookService{ServiceParams: params}
}

func (s *webhookService) ProcessEvent(ctx context.Context, payload []byte, signatureHeader string) (*WebhookOutcome, error) {
	if err := s.Verifier.Verify(payload, signatureHeader, time.Now().UTC()); err != nil {
		return nil, err
	}

	var env paymentEventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed event payload").
			Mark(ierr.ErrValidation)
	}
	if env.EventID == "" || env.Kind == "" {
		return nil, ierr.NewError("event id and kind are required").
			WithHint("Event envelope is missing required fields").
			Mark(ierr.ErrValidation)
	}

	// The produce block (store event, provision) runs in one transaction with
	// the idempotency insert; the provider retrying a failed delivery re-runs
	// it because nothing was committed.
	outcome, replayed, err := s.IdempotencyStore.Remember(
		ctx, idempotency.ScopeWebhook, env.EventID, webhookEventTTL,
		func(txCtx context.Context) ([]byte, error) {
			return s.processVerified(txCtx, env, payload)
		},
	)
	if err != nil {
		return nil, err
	}

	var result WebhookOutcome
	if err := json.Unmarshal(outcome, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode stored webhook outcome").
			Mark(ierr.ErrSystem)
	}
	result.Replayed = replayed

	s.Logger.Infow("processed payment event",
		"event_id", env.EventID,
		"kind", env.Kind,
		"replayed", replayed,
		"task_id", result.TaskID,
	)
	return &result, nil
}

func (s *webhookService) processVerified(ctx context.Context, env paymentEventEnvelope, payload []byte) ([]byte, error) {
	event := paymentevent.New(ctx, env.EventID, types.PaymentEventKind(env.Kind), json.RawMessage(payload))
	if err := s.PaymentEventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	if types.PaymentEventKind(env.Kind) != types.PaymentEventCheckoutCompleted {
		return json.Marshal(&WebhookOutcome{Received: true})
	}

	return s.provision(ctx, env)
}

// provision performs the intake steps inside the protected transaction:
// session lookup, customer/credential/subscription creation, session
// completion, task creation and job enqueue.
func (s *webhookService) provision(ctx context.Context, env paymentEventEnvelope) ([]byte, error) {
	if env.SessionID == "" || env.Email == "" || env.Domain == "" {
		return nil, ierr.NewError("session id, email and domain are required").
			WithHint("Checkout completion is missing required fields").
			Mark(ierr.ErrValidation)
	}

	session, err := s.CheckoutRepo.GetByExternalID(ctx, env.SessionID)
	switch {
	case err == nil:
		if session.SessionStatus == types.CheckoutSessionStatusCompleted {
			// A different event id re-announced a session we already
			// provisioned; acknowledge without doing anything.
			return json.Marshal(&WebhookOutcome{Received: true})
		}
		if session.SessionStatus != types.CheckoutSessionStatusPending {
			if terr := session.TransitionTo(types.CheckoutSessionStatusFailed); terr == nil {
				if uerr := s.CheckoutRepo.Update(ctx, session); uerr != nil {
					return nil, uerr
				}
			}
			return json.Marshal(&WebhookOutcome{Received: true})
		}
	case ierr.IsNotFound(err):
		session = checkout.NewSession(ctx, env.SessionID)
		if err := s.CheckoutRepo.Create(ctx, session); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	session.CustomerEmail = env.Email
	session.ProductCode = env.ProductCode
	session.BillingPeriod = types.BillingPeriod(env.Period)
	session.AmountMinor = env.AmountMinor
	session.Currency = env.Currency
	session.Domain = env.Domain

	cust, err := s.upsertCustomer(ctx, env.Email, env.CustomerName)
	if err != nil {
		return nil, err
	}

	tempPassword, err := rotateCredential(ctx, s.ServiceParams, cust)
	if err != nil {
		return nil, err
	}

	sub := subscription.New(ctx, cust.ID, env.ProductCode, types.BillingPeriod(env.Period), env.AmountMinor, env.Currency)
	sub.Metadata["checkout_id"] = session.ID
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	if err := session.TransitionTo(types.CheckoutSessionStatusCompleted); err != nil {
		return nil, err
	}
	if err := s.CheckoutRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	task := provisioning.NewTask(ctx, sub.ID, s.Config.Queue.GetMaxAttempts())
	if err := s.TaskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	username, err := deriveUsername(ctx, s.ServiceParams, env.Domain)
	if err != nil {
		return nil, err
	}

	_, err = s.Queue.Enqueue(ctx, types.QueueProvisioning, types.JobKindProvisionSubscription,
		&ProvisionJobPayload{
			TaskID:            task.ID,
			SubscriptionID:    sub.ID,
			CustomerID:        cust.ID,
			Domain:            env.Domain,
			Username:          username,
			TemporaryPassword: tempPassword,
		},
		job.EnqueueOptions{
			Priority:    types.ProvisioningJobPriority,
			MaxAttempts: s.Config.Queue.GetMaxAttempts(),
		},
	)
	if err != nil {
		return nil, err
	}

	return json.Marshal(&WebhookOutcome{Received: true, Provisioned: true, TaskID: task.ID})
}

func (s *webhookService) upsertCustomer(ctx context.Context, email, name string) (*customer.Customer, error) {
	existing, err := s.CustomerRepo.GetByEmail(ctx, email)
	if err == nil {
		if name != "" && existing.Name != name {
			existing.Name = name
			if err := s.CustomerRepo.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	cust := customer.New(ctx, email, name)
	if err := cust.Validate(); err != nil {
		return nil, err
	}
	if err := s.CustomerRepo.Create(ctx, cust); err != nil {
		if ierr.IsAlreadyExists(err) {
			// A concurrent checkout for the same email committed between the
			// lookup and the insert; fold into the winner's row.
			return s.CustomerRepo.GetByEmail(ctx, email)
		}
		return nil, err
	}
	return cust, nil
}

