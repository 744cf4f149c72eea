package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/reconciler"
	"github.com/minisource/httpscheduler/internal/repository"
	"github.com/minisource/httpscheduler/internal/schedule"
	"gorm.io/gorm"
)

// ErrJobNotFound is returned by JobService methods operating on a job id
// that has no matching row.
var ErrJobNotFound = errors.New("service: job not found")

// JobService handles Job CRUD business logic and notifies the
// scheduling engine of lifecycle changes via the injected Reconciler
// (spec.md §4.8), keeping this package free of any dependency on
// internal/scheduler's concrete types.
type JobService struct {
	jobRepo    *repository.JobRepository
	reconciler reconciler.Reconciler
}

// NewJobService creates a new job service.
func NewJobService(jobRepo *repository.JobRepository, r reconciler.Reconciler) *JobService {
	return &JobService{jobRepo: jobRepo, reconciler: r}
}

// Create validates and persists a new Job, then registers it with the
// scheduling engine if it starts active.
func (s *JobService) Create(ctx context.Context, req *models.CreateJobRequest) (*models.Job, error) {
	if ok, msg := schedule.Validate(req.Schedule, req.ScheduleType); !ok {
		return nil, fmt.Errorf("invalid schedule: %s", msg)
	}

	method := req.Method
	if method == "" {
		method = models.MethodGET
	}

	timeout := req.RequestTimeout
	if timeout == 0 {
		timeout = models.DefaultRequestTimeoutMS
	}
	timeout = clampInt(timeout, models.MinRequestTimeoutMS, models.MaxRequestTimeoutMS)

	mode := req.ExecutionMode
	if mode == "" {
		mode = models.ExecutionModeSequential
	}

	maxConcurrent := req.MaxConcurrent
	if maxConcurrent == 0 {
		maxConcurrent = models.DefaultMaxConcurrent
	}
	maxConcurrent = clampInt(maxConcurrent, models.MinMaxConcurrent, models.MaxMaxConcurrent)

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	job := &models.Job{
		ID:             uuid.New(),
		Name:           req.Name,
		URL:            req.URL,
		Method:         method,
		Headers:        req.Headers,
		Body:           req.Body,
		Schedule:       req.Schedule,
		ScheduleType:   req.ScheduleType,
		IsActive:       isActive,
		RequestTimeout: timeout,
		ExecutionMode:  mode,
		MaxConcurrent:  maxConcurrent,
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if isActive {
		if err := s.reconciler.OnCreated(*job); err != nil {
			return nil, fmt.Errorf("job stored but failed to register with scheduler: %w", err)
		}
	}

	return job, nil
}

// GetByID retrieves a job by ID.
func (s *JobService) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return job, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrJobNotFound
	}
	return err
}

// List lists jobs with filtering and pagination.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) (*models.JobListResult, error) {
	return s.jobRepo.Query(ctx, filter)
}

// Update applies req's non-nil fields to the job and, per spec.md §4.8,
// re-registers it with the scheduling engine regardless of which field
// changed.
func (s *JobService) Update(ctx context.Context, id uuid.UUID, req *models.UpdateJobRequest) (*models.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	scheduleChanged := false

	if req.Name != nil {
		job.Name = *req.Name
	}
	if req.URL != nil {
		job.URL = *req.URL
	}
	if req.Method != nil {
		job.Method = *req.Method
	}
	if req.Headers != nil {
		job.Headers = *req.Headers
	}
	if req.Body != nil {
		job.Body = *req.Body
	}
	if req.Schedule != nil {
		job.Schedule = *req.Schedule
		scheduleChanged = true
	}
	if req.ScheduleType != nil {
		job.ScheduleType = *req.ScheduleType
		scheduleChanged = true
	}
	if req.RequestTimeout != nil {
		job.RequestTimeout = clampInt(*req.RequestTimeout, models.MinRequestTimeoutMS, models.MaxRequestTimeoutMS)
	}
	if req.ExecutionMode != nil {
		job.ExecutionMode = *req.ExecutionMode
	}
	if req.MaxConcurrent != nil {
		job.MaxConcurrent = clampInt(*req.MaxConcurrent, models.MinMaxConcurrent, models.MaxMaxConcurrent)
	}

	if scheduleChanged {
		if ok, msg := schedule.Validate(job.Schedule, job.ScheduleType); !ok {
			return nil, fmt.Errorf("invalid schedule: %s", msg)
		}
	}

	job.UpdatedAt = time.Now()

	if err := s.jobRepo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if job.IsActive {
		if err := s.reconciler.OnUpdated(*job); err != nil {
			return nil, fmt.Errorf("job stored but failed to re-register with scheduler: %w", err)
		}
	}

	return job, nil
}

// SetActive toggles a job's IsActive flag (the pause/resume surface).
func (s *JobService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Job, error) {
	job, err := s.jobRepo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err)
	}

	if err := s.jobRepo.SetActive(ctx, id, active); err != nil {
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}
	job.IsActive = active

	if err := s.reconciler.OnToggled(id, active); err != nil {
		return nil, fmt.Errorf("job stored but failed to notify scheduler: %w", err)
	}

	return job, nil
}

// Delete removes a job and its execution logs, and unregisters it from
// the scheduling engine.
func (s *JobService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.jobRepo.FindByID(ctx, id); err != nil {
		return wrapNotFound(err)
	}

	if err := s.jobRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.reconciler.OnDeleted(id)
	return nil
}

// GetStats retrieves job counts for GET /api/jobs/stats.
func (s *JobService) GetStats(ctx context.Context) (*models.JobStats, error) {
	return s.jobRepo.GetStats(ctx)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
