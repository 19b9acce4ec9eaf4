package provisioning

import (
	"context"

	"github.com/hoststack/hoststack/internal/types"
)

// Repository defines the interface for provisioning task operations
type Repository interface {
	Create(ctx context.Context, task *Task) error
	// Get returns the task with its full step log in order
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter *types.ProvisioningTaskFilter) ([]*Task, error)
	Count(ctx context.Context, filter *types.ProvisioningTaskFilter) (int, error)
	Update(ctx context.Context, task *Task) error
	// GetRunningBySubscription returns the running task for a subscription, if any
	GetRunningBySubscription(ctx context.Context, subscriptionID string) (*Task, error)

	// AppendStepRecord appends to the task's step log; the log is append-only
	AppendStepRecord(ctx context.Context, record *StepRecord) error
	// UpdateStepRecord finalises a previously appended record (status, result, error)
	UpdateStepRecord(ctx context.Context, record *StepRecord) error

	// AcquireSubscriptionLock takes the per-subscription advisory lock that
	// serialises provisioning for one subscription. Returns false without
	// blocking when another worker holds it.
	AcquireSubscriptionLock(ctx context.Context, subscriptionID string) (bool, error)
	ReleaseSubscriptionLock(ctx context.Context, subscriptionID string) error
}
