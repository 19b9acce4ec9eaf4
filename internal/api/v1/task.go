package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoststack/hoststack/internal/api/dto"
	"github.com/hoststack/hoststack/internal/domain/provisioning"
	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/logger"
	"github.com/hoststack/hoststack/internal/service"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/samber/lo"
)

type TaskHandler struct {
	service service.TaskControlService
	log     *logger.Logger
}

func NewTaskHandler(service service.TaskControlService, log *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, log: log}
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	var filter types.ProvisioningTaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.log.Errorw("failed to bind query", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.service.ListTasks(ctx, &filter)
	if err != nil {
		h.log.Errorw("failed to list tasks", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ListTasksResponse{
		Items: lo.Map(resp.Items, func(task *provisioning.Task, _ int) dto.TaskResponse {
			return dto.ToTaskResponse(task, false)
		}),
		Total: resp.Total,
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	ctx := c.Request.Context()

	task, err := h.service.GetTask(ctx, c.Param("id"))
	if err != nil {
		h.log.Errorw("failed to get task", "task_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskResponse(task, true))
}

func (h *TaskHandler) ReplayTask(c *gin.Context) {
	ctx := c.Request.Context()

	outcome, err := h.service.ReplayTask(ctx, c.Param("id"))
	if err != nil {
		h.log.Errorw("failed to replay task", "task_id", c.Param("id"), "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, dto.ReplayTaskResponse{
		TaskID: outcome.TaskID,
		JobID:  outcome.JobID,
	})
}

func (h *TaskHandler) QueueStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.service.QueueStats(ctx)
	if err != nil {
		h.log.Errorw("failed to collect queue stats", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.QueueStatsResponse{Queues: stats})
}

func (h *TaskHandler) ForgetIdempotency(c *gin.Context) {
	ctx := c.Request.Context()

	scope := c.Param("scope")
	key := c.Param("key")
	if err := h.service.ForgetIdempotency(ctx, scope, key); err != nil {
		h.log.Errorw("failed to forget idempotency record",
			"scope", scope, "key", key, "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Idempotency record removed"})
}
