package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/repository"
)

// LogService handles ExecutionLog read access and the aggregate
// statistics GET /api/logs/stats serves, generalizing the teacher's
// ExecutionService and HistoryService into a single read path over the
// insert-only ExecutionLog table.
type LogService struct {
	logRepo *repository.LogRepository
}

// NewLogService creates a new log service.
func NewLogService(logRepo *repository.LogRepository) *LogService {
	return &LogService{logRepo: logRepo}
}

// GetByID retrieves a single log entry.
func (s *LogService) GetByID(ctx context.Context, id uuid.UUID) (*models.ExecutionLog, error) {
	return s.logRepo.FindByID(ctx, id)
}

// List lists logs matching filter, most recent first.
func (s *LogService) List(ctx context.Context, filter models.LogFilter) (*models.LogListResult, error) {
	return s.logRepo.List(ctx, filter)
}

// Stats computes overall and per-job execution statistics.
func (s *LogService) Stats(ctx context.Context, filter models.LogFilter) (*models.LogStats, error) {
	return s.logRepo.Stats(ctx, filter)
}
