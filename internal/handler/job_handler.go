package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/ratelimit"
	"github.com/minisource/httpscheduler/internal/scheduler"
	"github.com/minisource/httpscheduler/internal/service"
)

// JobHandler handles job CRUD and manual-trigger HTTP requests.
type JobHandler struct {
	jobService *service.JobService
	sched      *scheduler.Scheduler
	triggers   *ratelimit.TriggerLimiter
}

// NewJobHandler creates a new job handler.
func NewJobHandler(jobService *service.JobService, sched *scheduler.Scheduler, triggers *ratelimit.TriggerLimiter) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		sched:      sched,
		triggers:   triggers,
	}
}

// Create creates a new job.
// @Summary Create a job
// @Description Create a new scheduled HTTP job
// @Tags jobs
// @Accept json
// @Produce json
// @Param request body models.CreateJobRequest true "Job creation request"
// @Success 201 {object} Response{data=models.Job}
// @Failure 400 {object} Response
// @Failure 500 {object} Response
// @Router /api/jobs [post]
func (h *JobHandler) Create(c *fiber.Ctx) error {
	var req models.CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	job, err := h.jobService.Create(c.Context(), &req)
	if err != nil {
		return BadRequest(c, err.Error())
	}

	return Created(c, job)
}

// Get retrieves a job by ID.
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} Response{data=models.Job}
// @Failure 404 {object} Response
// @Router /api/jobs/{id} [get]
func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	job, err := h.jobService.GetByID(c.Context(), id)
	if err != nil {
		return NotFound(c, "Job not found")
	}

	return Success(c, job)
}

// List lists jobs with filtering and pagination.
// @Summary List jobs
// @Tags jobs
// @Produce json
// @Param status query string false "active or inactive"
// @Param scheduleType query string false "cron or repeat"
// @Param name query string false "Filter by name substring"
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Success 200 {object} Response{data=[]models.Job}
// @Router /api/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	filter := models.JobFilter{
		Status:       c.Query("status"),
		ScheduleType: models.ScheduleType(c.Query("scheduleType")),
		Name:         c.Query("name"),
		Page:         c.QueryInt("page", 1),
		PageSize:     c.QueryInt("pageSize", 20),
	}

	result, err := h.jobService.List(c.Context(), filter)
	if err != nil {
		return InternalError(c, err.Error())
	}

	return SuccessWithMeta(c, result.Jobs, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Update updates an existing job.
// @Summary Update a job
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body models.UpdateJobRequest true "Job update request"
// @Success 200 {object} Response{data=models.Job}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/jobs/{id} [put]
func (h *JobHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	var req models.UpdateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	job, err := h.jobService.Update(c.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return NotFound(c, "Job not found")
		}
		return BadRequest(c, err.Error())
	}

	return Success(c, job)
}

// Delete deletes a job and its execution history.
// @Summary Delete a job
// @Tags jobs
// @Param id path string true "Job ID"
// @Success 204 "No Content"
// @Failure 404 {object} Response
// @Router /api/jobs/{id} [delete]
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	if err := h.jobService.Delete(c.Context(), id); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return NotFound(c, "Job not found")
		}
		return InternalError(c, err.Error())
	}

	return NoContent(c)
}

// Toggle pauses or resumes a job.
// @Summary Pause or resume a job
// @Tags jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param request body object{active=bool} true "Desired active state"
// @Success 200 {object} Response{data=models.Job}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /api/jobs/{id}/toggle [put]
func (h *JobHandler) Toggle(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&body); err != nil {
		return BadRequest(c, "Invalid request body")
	}

	job, err := h.jobService.SetActive(c.Context(), id, body.Active)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			return NotFound(c, "Job not found")
		}
		return InternalError(c, err.Error())
	}

	return Success(c, job)
}

// Trigger manually fires a job outside its schedule, subject to the
// per-job rate limit.
// @Summary Manually trigger a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 429 {object} Response
// @Router /api/jobs/{id}/trigger [post]
func (h *JobHandler) Trigger(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	if _, err := h.jobService.GetByID(c.Context(), id); err != nil {
		return NotFound(c, "Job not found")
	}

	if ok, retryAfter := h.triggers.Allow(id); !ok {
		c.Set("Retry-After", formatRetryAfter(retryAfter))
		return TooManyRequests(c, "Job was triggered too recently", retryAfter)
	}

	if err := h.sched.ExecuteManually(c.Context(), id); err != nil {
		if errors.Is(err, scheduler.ErrNotRegistered) {
			return BadRequest(c, "Job is not active")
		}
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			return BadRequest(c, "Job is already running")
		}
		return InternalError(c, err.Error())
	}

	return Success(c, map[string]bool{"triggered": true})
}

// GetStats retrieves aggregate job counts.
// @Summary Get job statistics
// @Tags jobs
// @Produce json
// @Success 200 {object} Response{data=models.JobStats}
// @Router /api/jobs/stats [get]
func (h *JobHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.jobService.GetStats(c.Context())
	if err != nil {
		return InternalError(c, err.Error())
	}

	return Success(c, stats)
}
