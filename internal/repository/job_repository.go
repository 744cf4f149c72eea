package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"gorm.io/gorm"
)

// JobRepository handles Job persistence.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Update saves the full row for a job.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// FindByID retrieves a job by ID.
func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Query finds jobs matching the filter.
func (r *JobRepository) Query(ctx context.Context, filter models.JobFilter) (*models.JobListResult, error) {
	var jobs []models.Job
	var total int64

	query := r.buildJobQuery(filter)

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
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return &models.JobListResult{
		Jobs:       jobs,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		HasMore:    int64(page*pageSize) < total,
	}, nil
}

func (r *JobRepository) buildJobQuery(filter models.JobFilter) *gorm.DB {
	query := r.db.Model(&models.Job{})

	switch filter.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	if filter.ScheduleType != "" {
		query = query.Where("schedule_type = ?", filter.ScheduleType)
	}

	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}

	return query
}

// ListActive returns every job with IsActive=true, used by Bootstrap to
// seed the scheduler registry at startup.
func (r *JobRepository) ListActive(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&jobs).Error
	return jobs, err
}

// UpdateRuntime best-effort patches the runtime bookkeeping columns a
// finished (or just-dispatched) execution touches. A nil pointer leaves
// the corresponding column untouched.
func (r *JobRepository) UpdateRuntime(ctx context.Context, id uuid.UUID, currentRunning *int, lastExecutedAt *time.Time, incrementExecutionCount bool) error {
	updates := map[string]interface{}{}
	if currentRunning != nil {
		updates["current_running"] = *currentRunning
	}
	if lastExecutedAt != nil {
		updates["last_executed_at"] = *lastExecutedAt
	}
	if incrementExecutionCount {
		updates["execution_count"] = gorm.Expr("execution_count + 1")
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetActive toggles IsActive (the Job pause/resume surface per §4.8).
func (r *JobRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// Delete removes a job and, in the same transaction, every ExecutionLog
// row referencing it (the FK "ON DELETE CASCADE" semantics of §6).
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&models.ExecutionLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Job{}, "id = ?", id).Error
	})
}

// GetStats retrieves job counts for GET /api/jobs/stats.
func (r *JobRepository) GetStats(ctx context.Context) (*models.JobStats, error) {
	stats := &models.JobStats{}

	if err := r.db.WithContext(ctx).Model(&models.Job{}).Count(&stats.TotalJobs).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Job{}).Where("is_active = ?", true).Count(&stats.ActiveJobs).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
