package repository

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"gorm.io/gorm"
)

// LogRepository handles ExecutionLog persistence. Rows are insert-only:
// the scheduler writes one row per completed attempt sequence and nothing
// ever updates it afterward.
type LogRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Insert writes one ExecutionLog row.
func (r *LogRepository) Insert(ctx context.Context, log *models.ExecutionLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// FindByID retrieves a single log entry.
func (r *LogRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ExecutionLog, error) {
	var log models.ExecutionLog
	if err := r.db.WithContext(ctx).First(&log, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// List finds logs matching the filter, most recent first.
func (r *LogRepository) List(ctx context.Context, filter models.LogFilter) (*models.LogListResult, error) {
	var logs []models.ExecutionLog
	var total int64

	query := r.buildQuery(filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	offset := (page - 1) * pageSize
	err := query.Order("executed_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return &models.LogListResult{
		Logs:       logs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

// Count returns the number of logs matching the filter, without paginating.
func (r *LogRepository) Count(ctx context.Context, filter models.LogFilter) (int64, error) {
	var total int64
	err := r.buildQuery(filter).Count(&total).Error
	return total, err
}

func (r *LogRepository) buildQuery(filter models.LogFilter) *gorm.DB {
	query := r.db.Model(&models.ExecutionLog{})

	if filter.JobID != nil {
		query = query.Where("job_id = ?", *filter.JobID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TriggeredManually != nil {
		query = query.Where("triggered_manually = ?", *filter.TriggeredManually)
	}
	if filter.StartDate != nil {
		query = query.Where("executed_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("executed_at <= ?", *filter.EndDate)
	}
	if filter.JobName != "" {
		query = query.Where("job_id IN (?)", gormLikeJobIDs(r.db, filter.JobName))
	}
	if filter.ResponseContent != "" {
		query = query.Where("response_body LIKE ?", "%"+filter.ResponseContent+"%")
	}

	return query
}

func gormLikeJobIDs(db *gorm.DB, nameFragment string) *gorm.DB {
	return db.Model(&models.Job{}).
		Select("id").
		Where("LOWER(name) LIKE ?", "%"+strings.ToLower(nameFragment)+"%")
}

// DeleteOlderThan removes every log whose ExecutedAt precedes cutoff,
// used by the Retention Sweeper.
func (r *LogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("executed_at < ?", cutoff).
		Delete(&models.ExecutionLog{})
	return result.RowsAffected, result.Error
}

// Stats computes aggregate and per-job execution statistics for
// GET /api/logs/stats, generalizing the teacher's GetExecutionStats.
func (r *LogRepository) Stats(ctx context.Context, filter models.LogFilter) (*models.LogStats, error) {
	base := r.buildQuery(filter)

	overall, err := statsFromQuery(base, nil)
	if err != nil {
		return nil, err
	}

	var jobIDs []uuid.UUID
	if err := r.buildQuery(filter).Distinct("job_id").Pluck("job_id", &jobIDs).Error; err != nil {
		return nil, err
	}

	byJob := make([]models.LogStatsEntry, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		jobID := jobID
		perJob := r.buildQuery(filter).Where("job_id = ?", jobID)
		entry, err := statsFromQuery(perJob, &jobID)
		if err != nil {
			return nil, err
		}

		var job models.Job
		if err := r.db.WithContext(ctx).Select("name").First(&job, "id = ?", jobID).Error; err == nil {
			entry.JobName = job.Name
		}
		byJob = append(byJob, *entry)
	}

	return &models.LogStats{Overall: *overall, ByJob: byJob}, nil
}

func statsFromQuery(query *gorm.DB, jobID *uuid.UUID) (*models.LogStatsEntry, error) {
	entry := &models.LogStatsEntry{JobID: jobID}

	if err := query.Session(&gorm.Session{}).Count(&entry.TotalCount).Error; err != nil {
		return nil, err
	}
	if entry.TotalCount == 0 {
		return entry, nil
	}

	if err := query.Session(&gorm.Session{}).Where("status = ?", models.ExecutionStatusSuccess).Count(&entry.SuccessCount).Error; err != nil {
		return nil, err
	}
	entry.FailureCount = entry.TotalCount - entry.SuccessCount
	entry.SuccessRate = math.Round(float64(entry.SuccessCount)/float64(entry.TotalCount)*100) / 100

	var agg struct {
		MinMS int64
		AvgMS float64
		MaxMS int64
	}
	if err := query.Session(&gorm.Session{}).
		Select("MIN(execution_time) as min_ms, AVG(execution_time) as avg_ms, MAX(execution_time) as max_ms").
		Scan(&agg).Error; err != nil {
		return nil, err
	}
	entry.MinExecutionMS = agg.MinMS
	entry.AvgExecutionMS = agg.AvgMS
	entry.MaxExecutionMS = agg.MaxMS

	return entry, nil
}
