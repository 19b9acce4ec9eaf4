package service

import (
	"context"
	"testing"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/idempotency"
	"github.com/hoststack/hoststack/internal/testutil"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type TaskControlServiceSuite struct {
	testutil.BaseServiceTestSuite
	params       ServiceParams
	service      TaskControlService
	provisioning ProvisioningService
}

func TestTaskControlService(t *testing.T) {
	suite.Run(t, new(TaskControlServiceSuite))
}

func (s *TaskControlServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite)
	s.service = NewTaskControlService(s.params)
	s.provisioning = NewProvisioningService(s.params)
}

// seedFailedTask provisions up to a fatal ssl failure so the task is failed
// with a partial step log, and drains the burned job.
func (s *TaskControlServiceSuite) seedFailedTask() *provisioningFixture {
	ctx := s.GetContext()

	fix := seedProvisioning(&s.BaseServiceTestSuite, s.params, 3)
	s.GetFakes().Cert.ScriptError("issue", testutil.FatalAdapterError("domain blocked by CA policy"))

	j := claimOne(&s.BaseServiceTestSuite, types.QueueProvisioning)
	err := s.provisioning.HandleProvisionJob(ctx, j)
	s.Require().Error(err)
	s.Require().NoError(s.GetStores().JobRepo.FailDead(ctx, j.ID, "worker-1", err.Error()))

	return fix
}

func (s *TaskControlServiceSuite) TestListTasks() {
	ctx := s.GetContext()
	fix := s.seedFailedTask()

	resp, err := s.service.ListTasks(ctx, nil)
	s.Require().NoError(err)
	s.Equal(1, resp.Total)
	s.Require().Len(resp.Items, 1)
	s.Equal(fix.task.ID, resp.Items[0].ID)

	filter := types.NewProvisioningTaskFilter()
	filter.TaskStatus = lo.ToPtr(types.ProvisioningTaskStatusSucceeded)
	resp, err = s.service.ListTasks(ctx, filter)
	s.Require().NoError(err)
	s.Zero(resp.Total)
	s.Empty(resp.Items)
}

func (s *TaskControlServiceSuite) TestGetTaskIncludesStepLog() {
	ctx := s.GetContext()
	fix := s.seedFailedTask()

	task, err := s.service.GetTask(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusFailed, task.TaskStatus)
	s.NotEmpty(task.StepLog)

	// Records come back ordered by sequence.
	for i := 1; i < len(task.StepLog); i++ {
		s.Greater(task.StepLog[i].Sequence, task.StepLog[i-1].Sequence)
	}
}

func (s *TaskControlServiceSuite) TestReplayFailedTask() {
	ctx := s.GetContext()
	fix := s.seedFailedTask()

	before, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	logLen := len(before.StepLog)

	outcome, err := s.service.ReplayTask(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(fix.task.ID, outcome.TaskID)
	s.NotEmpty(outcome.JobID)
	s.False(outcome.Replayed)

	// The task is queued again with its history preserved.
	task, err := s.GetStores().TaskRepo.Get(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.Equal(types.ProvisioningTaskStatusQueued, task.TaskStatus)
	s.Zero(task.AttemptCount)
	s.Empty(task.LastError)
	s.Nil(task.FinishedAt)
	s.Len(task.StepLog, logLen)

	// A fresh provisioning job carries a rotated credential.
	jobs, err := s.GetStores().JobRepo.Claim(ctx, types.QueueProvisioning, "worker-1", 10, time.Minute)
	s.Require().NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(outcome.JobID, jobs[0].ID)

	var jp ProvisionJobPayload
	s.Require().NoError(jobs[0].DecodePayload(&jp))
	s.Equal(fix.task.ID, jp.TaskID)
	s.Equal(testDomain, jp.Domain)
	s.NotEmpty(jp.TemporaryPassword)
	s.NotEqual(testPassword, jp.TemporaryPassword)
}

func (s *TaskControlServiceSuite) TestReplayDoubleSubmitCollapses() {
	ctx := s.GetContext()
	fix := s.seedFailedTask()

	first, err := s.service.ReplayTask(ctx, fix.task.ID)
	s.Require().NoError(err)

	second, err := s.service.ReplayTask(ctx, fix.task.ID)
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.JobID, second.JobID)

	stats, err := s.GetStores().JobRepo.Stats(ctx, types.QueueProvisioning)
	s.Require().NoError(err)
	s.Equal(1, stats.Queued)
}

func (s *TaskControlServiceSuite) TestReplayRequiresTerminalFailure() {
	ctx := s.GetContext()

	fix := seedProvisioning(&s.BaseServiceTestSuite, s.params, 3)

	_, err := s.service.ReplayTask(ctx, fix.task.ID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *TaskControlServiceSuite) TestQueueStats() {
	ctx := s.GetContext()
	s.seedFailedTask()

	stats, err := s.service.QueueStats(ctx)
	s.Require().NoError(err)
	s.Require().Len(stats, len(types.QueueNames))
	s.Equal(types.QueueProvisioning, stats[0].QueueName)
	s.Equal(1, stats[0].Failed)
}

func (s *TaskControlServiceSuite) TestForgetIdempotency() {
	ctx := s.GetContext()

	_, _, err := s.params.IdempotencyStore.Remember(ctx, idempotency.ScopeWebhook, "evt_1", time.Hour,
		func(ctx context.Context) ([]byte, error) { return []byte(`{}`), nil })
	s.Require().NoError(err)

	s.Require().NoError(s.service.ForgetIdempotency(ctx, "webhook", "evt_1"))

	err = s.service.ForgetIdempotency(ctx, "webhook", "evt_1")
	s.True(ierr.IsNotFound(err))

	err = s.service.ForgetIdempotency(ctx, "nonsense", "evt_1")
	s.True(ierr.IsValidation(err))
}
