package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/minisource/httpscheduler/internal/scheduler"
	"gorm.io/gorm"
)

// HealthHandler serves liveness/readiness probes.
type HealthHandler struct {
	db        *gorm.DB
	scheduler *scheduler.Scheduler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, sched *scheduler.Scheduler) *HealthHandler {
	return &HealthHandler{db: db, scheduler: sched}
}

// Health returns overall service health.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"scheduler": h.scheduler.IsRunning(),
	}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		healthData["status"] = "unhealthy"
		healthData["database"] = "disconnected"
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{Success: false, Data: healthData})
	}

	healthData["database"] = "connected"
	return Success(c, healthData)
}

// Ready reports whether the service is ready to accept traffic.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if !h.scheduler.IsRunning() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Success: false,
			Error:   &ErrorInfo{Code: "NOT_READY", Message: "Scheduler is not running"},
		})
	}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(Response{
			Success: false,
			Error:   &ErrorInfo{Code: "NOT_READY", Message: "Database connection error"},
		})
	}

	return Success(c, map[string]string{"status": "ready"})
}

// Live reports process liveness.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /live [get]
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return Success(c, map[string]string{"status": "alive"})
}
