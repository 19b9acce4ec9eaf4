package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/hoststack/hoststack/internal/domain/provisioning"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

// InMemoryProvisioningStore implements provisioning.Repository. The step log
// is held separately from the task rows, as in the postgres repository, so
// task updates never touch the append-only log.
type InMemoryProvisioningStore struct {
	*InMemoryStore[*provisioning.Task]

	mu    sync.Mutex
	steps map[string][]*provisioning.StepRecord
	locks map[string]bool
}

func NewInMemoryProvisioningStore() *InMemoryProvisioningStore {
	return &InMemoryProvisioningStore{
		InMemoryStore: NewInMemoryStore[*provisioning.Task](),
		steps:         make(map[string][]*provisioning.StepRecord),
		locks:         make(map[string]bool),
	}
}

func copyStepRecord(rec *provisioning.StepRecord) *provisioning.StepRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	if rec.Result != nil {
		cp.Result = make(map[string]interface{}, len(rec.Result))
		for k, v := range rec.Result {
			cp.Result[k] = v
		}
	}
	return &cp
}

func copyTask(task *provisioning.Task) *provisioning.Task {
	if task == nil {
		return nil
	}
	cp := *task
	cp.StepLog = lo.Map(task.StepLog, func(rec *provisioning.StepRecord, _ int) *provisioning.StepRecord {
		return copyStepRecord(rec)
	})
	return &cp
}

func provisioningTaskFilterFn(_ context.Context, item *provisioning.Task, filter interface{}) bool {
	f, ok := filter.(*types.ProvisioningTaskFilter)
	if !ok || f == nil {
		return true
	}
	if f.TaskStatus != nil && item.TaskStatus != *f.TaskStatus {
		return false
	}
	if f.SubscriptionID != nil && item.SubscriptionID != *f.SubscriptionID {
		return false
	}
	if f.CreatedAfter != nil && !item.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	return true
}

func provisioningTaskSortFn(i, j *provisioning.Task) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryProvisioningStore) Create(ctx context.Context, task *provisioning.Task) error {
	cp := copyTask(task)
	cp.StepLog = nil
	return s.InMemoryStore.Create(ctx, task.ID, cp)
}

func (s *InMemoryProvisioningStore) Get(ctx context.Context, id string) (*provisioning.Task, error) {
	task, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withStepLog(task), nil
}

func (s *InMemoryProvisioningStore) withStepLog(task *provisioning.Task) *provisioning.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyTask(task)
	cp.StepLog = lo.Map(s.steps[task.ID], func(rec *provisioning.StepRecord, _ int) *provisioning.StepRecord {
		return copyStepRecord(rec)
	})
	sort.Slice(cp.StepLog, func(i, j int) bool {
		return cp.StepLog[i].Sequence < cp.StepLog[j].Sequence
	})
	return cp
}

func (s *InMemoryProvisioningStore) List(ctx context.Context, filter *types.ProvisioningTaskFilter) ([]*provisioning.Task, error) {
	tasks, err := s.InMemoryStore.List(ctx, filter, provisioningTaskFilterFn, provisioningTaskSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(tasks, func(task *provisioning.Task, _ int) *provisioning.Task {
		return copyTask(task)
	}), nil
}

func (s *InMemoryProvisioningStore) Count(ctx context.Context, filter *types.ProvisioningTaskFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, provisioningTaskFilterFn)
}

func (s *InMemoryProvisioningStore) Update(ctx context.Context, task *provisioning.Task) error {
	cp := copyTask(task)
	cp.StepLog = nil
	return s.InMemoryStore.Update(ctx, task.ID, cp)
}

func (s *InMemoryProvisioningStore) GetRunningBySubscription(ctx context.Context, subscriptionID string) (*provisioning.Task, error) {
	tasks, err := s.InMemoryStore.List(ctx, nil, func(_ context.Context, item *provisioning.Task, _ interface{}) bool {
		return item.SubscriptionID == subscriptionID &&
			item.TaskStatus == types.ProvisioningTaskStatusRunning
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ierr.NewError("running task not found").
			WithHintf("No running task for subscription %s", subscriptionID).
			Mark(ierr.ErrNotFound)
	}
	return s.withStepLog(tasks[0]), nil
}

func (s *InMemoryProvisioningStore) AppendStepRecord(ctx context.Context, record *provisioning.StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[record.TaskID] = append(s.steps[record.TaskID], copyStepRecord(record))
	return nil
}

func (s *InMemoryProvisioningStore) UpdateStepRecord(ctx context.Context, record *provisioning.StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.steps[record.TaskID] {
		if rec.ID == record.ID {
			s.steps[record.TaskID][i] = copyStepRecord(record)
			return nil
		}
	}
	return ierr.NewError("step record not found").
		WithHintf("Step record %s was not found", record.ID).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryProvisioningStore) AcquireSubscriptionLock(ctx context.Context, subscriptionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := types.GetTenantID(ctx) + ":" + subscriptionID
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *InMemoryProvisioningStore) ReleaseSubscriptionLock(ctx context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, types.GetTenantID(ctx)+":"+subscriptionID)
	return nil
}

// Clear removes all tasks, step records and locks
func (s *InMemoryProvisioningStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = make(map[string][]*provisioning.StepRecord)
	s.locks = make(map[string]bool)
}
