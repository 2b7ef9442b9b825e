package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/stockledger/internal/infrastructure/scheduler"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
)

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// SweepTrigger submits an on-demand sweep
type SweepTrigger interface {
	TriggerNow(jobType scheduler.JobType) (*scheduler.Job, error)
}

var sweepTypes = map[string]scheduler.JobType{
	"expiry":  scheduler.JobTypeExpirySweep,
	"reorder": scheduler.JobTypeReorderSweep,
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

// SweepResponse describes a submitted sweep. Status is always PENDING; the
// job runs asynchronously.
type SweepResponse struct {
	JobID  string `json:"job_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// SystemHandler serves health checks and manual sweep triggers
type SystemHandler struct {
	BaseHandler
	checks       map[string]HealthCheck
	trigger      SweepTrigger
	checkTimeout time.Duration
}

// NewSystemHandler creates a new SystemHandler. trigger may be nil when the
// scheduler is disabled.
func NewSystemHandler(checks map[string]HealthCheck, trigger SweepTrigger) *SystemHandler {
	return &SystemHandler{
		checks:       checks,
		trigger:      trigger,
		checkTimeout: 2 * time.Second,
	}
}

// Health godoc
// @ID           health
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} HealthResponse
// @Failure      503 {object} HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(names)), Time: time.Now().UTC()}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// TriggerSweep godoc
// @ID           triggerSweep
// @Summary      Run a sweep now
// @Description  Queues an expiry or reorder sweep on the background scheduler
// @Tags         system
// @Produce      json
// @Param        type path string true "Sweep type" Enums(expiry, reorder)
// @Success      202 {object} APIResponse[SweepResponse]
// @Failure      404 {object} dto.ErrorResponse
// @Failure      503 {object} dto.ErrorResponse
// @Router       /sweeps/{type} [post]
func (h *SystemHandler) TriggerSweep(c *gin.Context) {
	jobType, ok := sweepTypes[c.Param("type")]
	if !ok {
		h.NotFound(c, "Unknown sweep type")
		return
	}
	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, "Scheduler is disabled")
		return
	}

	job, err := h.trigger.TriggerNow(jobType)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrJobQueueFull):
			h.Error(c, http.StatusTooManyRequests, dto.ErrCodeRateLimited, err.Error())
		case errors.Is(err, scheduler.ErrSchedulerNotRunning):
			h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable, err.Error())
		default:
			h.HandleDomainError(c, err)
		}
		return
	}

	h.Accepted(c, SweepResponse{
		JobID:  job.ID.String(),
		Type:   string(job.Type),
		Status: string(scheduler.JobStatusPending),
	})
}
