package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/service"
)

// LogHandler serves execution log reads and aggregate statistics,
// generalizing the teacher's separate execution/history handlers into
// one read path over the insert-only ExecutionLog table.
type LogHandler struct {
	logService *service.LogService
}

// NewLogHandler creates a new log handler.
func NewLogHandler(logService *service.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// Get retrieves a single execution log entry.
// @Summary Get an execution log
// @Tags logs
// @Produce json
// @Param id path string true "Log ID"
// @Success 200 {object} Response{data=models.ExecutionLog}
// @Failure 404 {object} Response
// @Router /api/logs/{id} [get]
func (h *LogHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid log ID")
	}

	logEntry, err := h.logService.GetByID(c.Context(), id)
	if err != nil {
		return NotFound(c, "Log not found")
	}

	return Success(c, logEntry)
}

// Search lists execution logs with filtering and pagination.
// @Summary Search execution logs
// @Tags logs
// @Produce json
// @Param jobId query string false "Filter by job ID"
// @Param status query string false "success or failed"
// @Param triggeredManually query bool false "Filter by trigger source"
// @Param startDate query string false "RFC3339 start of range"
// @Param endDate query string false "RFC3339 end of range"
// @Param jobName query string false "Filter by job name substring"
// @Param responseContent query string false "Filter by response body substring"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param expand query bool false "Include full responseBody" default(false)
// @Success 200 {object} Response{data=[]models.ExecutionLog}
// @Router /api/logs/search [get]
func (h *LogHandler) Search(c *fiber.Ctx) error {
	filter := models.LogFilter{
		JobName:         c.Query("jobName"),
		ResponseContent: c.Query("responseContent"),
		Page:            c.QueryInt("page", 1),
		PageSize:        c.QueryInt("limit", 20),
		Expand:          c.QueryBool("expand", false),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = models.ExecutionStatus(status)
	}

	if jobIDStr := c.Query("jobId"); jobIDStr != "" {
		jobID, err := uuid.Parse(jobIDStr)
		if err != nil {
			return BadRequest(c, "Invalid jobId")
		}
		filter.JobID = &jobID
	}

	if triggeredStr := c.Query("triggeredManually"); triggeredStr != "" {
		triggered := c.QueryBool("triggeredManually")
		filter.TriggeredManually = &triggered
	}

	if startStr := c.Query("startDate"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return BadRequest(c, "Invalid startDate, expected RFC3339")
		}
		filter.StartDate = &t
	}

	if endStr := c.Query("endDate"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return BadRequest(c, "Invalid endDate, expected RFC3339")
		}
		filter.EndDate = &t
	}

	result, err := h.logService.List(c.Context(), filter)
	if err != nil {
		return InternalError(c, err.Error())
	}
	if !filter.Expand {
		models.CollapseResponseBody(result.Logs)
	}

	return SuccessWithMeta(c, result.Logs, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// ListByJob lists execution logs for a single job.
// @Summary List execution logs for a job
// @Tags logs
// @Produce json
// @Param id path string true "Job ID"
// @Param status query string false "success or failed"
// @Param triggeredManually query bool false "Filter by trigger source"
// @Param startDate query string false "RFC3339 start of range"
// @Param endDate query string false "RFC3339 end of range"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Param expand query bool false "Include full responseBody" default(false)
// @Success 200 {object} Response{data=[]models.ExecutionLog}
// @Failure 400 {object} Response
// @Router /api/jobs/{id}/logs [get]
func (h *LogHandler) ListByJob(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return BadRequest(c, "Invalid job ID")
	}

	filter := models.LogFilter{
		JobID:    &jobID,
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("limit", 20),
		Expand:   c.QueryBool("expand", false),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = models.ExecutionStatus(status)
	}
	if triggeredStr := c.Query("triggeredManually"); triggeredStr != "" {
		triggered := c.QueryBool("triggeredManually")
		filter.TriggeredManually = &triggered
	}
	if startStr := c.Query("startDate"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return BadRequest(c, "Invalid startDate, expected RFC3339")
		}
		filter.StartDate = &t
	}
	if endStr := c.Query("endDate"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return BadRequest(c, "Invalid endDate, expected RFC3339")
		}
		filter.EndDate = &t
	}

	result, err := h.logService.List(c.Context(), filter)
	if err != nil {
		return InternalError(c, err.Error())
	}
	if !filter.Expand {
		models.CollapseResponseBody(result.Logs)
	}

	return SuccessWithMeta(c, result.Logs, &Meta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

// Stats computes overall and per-job success/failure/timing statistics.
// @Summary Get execution statistics
// @Tags logs
// @Produce json
// @Param jobId query string false "Restrict to one job"
// @Param startDate query string false "RFC3339 start of range"
// @Param endDate query string false "RFC3339 end of range"
// @Success 200 {object} Response{data=models.LogStats}
// @Router /api/logs/stats [get]
func (h *LogHandler) Stats(c *fiber.Ctx) error {
	var filter models.LogFilter

	if jobIDStr := c.Query("jobId"); jobIDStr != "" {
		jobID, err := uuid.Parse(jobIDStr)
		if err != nil {
			return BadRequest(c, "Invalid jobId")
		}
		filter.JobID = &jobID
	}

	if startStr := c.Query("startDate"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return BadRequest(c, "Invalid startDate, expected RFC3339")
		}
		filter.StartDate = &t
	}

	if endStr := c.Query("endDate"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return BadRequest(c, "Invalid endDate, expected RFC3339")
		}
		filter.EndDate = &t
	}

	stats, err := h.logService.Stats(c.Context(), filter)
	if err != nil {
		return InternalError(c, err.Error())
	}

	return Success(c, stats)
}
