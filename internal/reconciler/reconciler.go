// Package reconciler maps the job CRUD lifecycle onto the scheduling
// engine's register/update/enable/disable/remove calls (spec.md §4.8),
// via an interface so internal/service never imports the concrete
// internal/scheduler.Scheduler type.
package reconciler

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/repository"
)

// Reconciler is satisfied by *scheduler.Scheduler without that package
// needing to import this one.
type Reconciler interface {
	OnCreated(job models.Job) error
	OnUpdated(job models.Job) error
	OnToggled(jobID uuid.UUID, active bool) error
	OnDeleted(jobID uuid.UUID)
}

// Bootstrap loads every active job at startup and registers it with r,
// tolerating individual registration failures without aborting the rest:
// each failure is logged here and the failed job ids are returned.
func Bootstrap(ctx context.Context, jobRepo *repository.JobRepository, r Reconciler) ([]uuid.UUID, error) {
	jobs, err := jobRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var failed []uuid.UUID
	for _, job := range jobs {
		if err := r.OnCreated(job); err != nil {
			log.Printf("reconciler: failed to register job %s at startup: %v", job.ID, err)
			failed = append(failed, job.ID)
		}
	}
	return failed, nil
}
