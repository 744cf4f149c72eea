package scheduler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/config"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/repository"
	"gorm.io/gorm"
)

// ErrAlreadyRunning is returned by ExecuteManually whenever Dispatch does
// not submit the run: the job's concurrency gate is already saturated, the
// worker pool queue is full, or the store reload failed or found the job
// gone or inactive.
var ErrAlreadyRunning = errors.New("scheduler: job is already running")

// Scheduler is the core scheduling engine described in spec.md §4.3: a
// live per-job timer (Registry), a pure HTTP invocation pipeline
// (Executor), and a bounded worker pool used as a system-wide
// backpressure valve layered on top of each job's own gating.
type Scheduler struct {
	jobRepo  *repository.JobRepository
	logRepo  *repository.LogRepository
	executor *Executor
	pool     *WorkerPool
	registry *Registry

	mu      sync.RWMutex
	running bool
}

// NewScheduler wires a Scheduler from its dependencies. The returned
// value implements internal/reconciler's Reconciler interface.
func NewScheduler(cfg *config.Config, jobRepo *repository.JobRepository, logRepo *repository.LogRepository) *Scheduler {
	s := &Scheduler{
		jobRepo:  jobRepo,
		logRepo:  logRepo,
		executor: NewExecutor(&http.Client{}),
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Printf("scheduler: unknown TZ %q, defaulting to UTC: %v", cfg.Scheduler.Timezone, err)
		loc = time.UTC
	}

	s.registry = NewRegistry(loc, s)
	s.pool = NewWorkerPool(cfg.Scheduler.WorkerCount, s.runTask)
	return s
}

// Start launches the live timer registry and the worker pool. Safe to
// call once; subsequent calls are no-ops.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.pool.Start(ctx)
	s.registry.Start()
	s.running = true
}

// Stop halts the timer registry and stops the worker pool, waiting for
// executions already running to finish, per spec.md §4.3's Termination
// rule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.registry.Stop()
	s.pool.Stop()
	s.running = false
}

// OnCreated registers a newly created job, if active. Implements
// reconciler.Reconciler.
func (s *Scheduler) OnCreated(job models.Job) error {
	return s.registry.Register(job)
}

// OnUpdated re-registers job after any field change. Implements
// reconciler.Reconciler.
func (s *Scheduler) OnUpdated(job models.Job) error {
	return s.registry.Update(job)
}

// OnToggled enables or disables jobID's timer. Enabling reloads the job
// from the store and registers it, so a job without a live entry (created
// inactive, or paused before a restart) is scheduled as well. Disabling a
// job without a live entry is a no-op. Implements reconciler.Reconciler.
func (s *Scheduler) OnToggled(jobID uuid.UUID, active bool) error {
	if active {
		job, err := s.jobRepo.FindByID(context.Background(), jobID)
		if err != nil {
			return err
		}
		return s.registry.Register(*job)
	}
	if err := s.registry.Disable(jobID); err != nil && !errors.Is(err, ErrNotRegistered) {
		return err
	}
	return nil
}

// OnDeleted removes jobID's timer and registry entry. Implements
// reconciler.Reconciler.
func (s *Scheduler) OnDeleted(jobID uuid.UUID) {
	s.registry.Remove(jobID)
}

// IsJobRunning reports whether jobID currently has an in-flight execution.
func (s *Scheduler) IsJobRunning(jobID uuid.UUID) bool {
	return s.registry.IsRunning(jobID)
}

// IsRunning reports whether the scheduling engine itself has been
// started and not yet stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Dispatch implements the Dispatcher interface the Registry calls on
// every schedule fire (spec.md §4.3 steps 3-5). It reports whether the
// fire was actually submitted, so a manual trigger can tell the caller
// apart from a silently-skipped one.
func (s *Scheduler) Dispatch(e *Entry, triggeredManually bool) bool {
	id := e.Job().ID

	// spec.md §4.3 step 2: reload the job from the store on every fire
	// and drop the registry entry if it is gone or was turned inactive
	// out from under the timer. A transient store failure merely skips
	// this fire; the entry is left in place to retry on the next tick.
	jobPtr, err := s.jobRepo.FindByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.registry.Remove(id)
			return false
		}
		log.Printf("scheduler: failed to reload job %s for dispatch, skipping fire: %v", id, err)
		return false
	}
	job := *jobPtr

	if !job.IsActive {
		s.registry.Remove(id)
		return false
	}

	if !e.TryAcquire() {
		log.Printf("scheduler: job %s skipped fire, already at max concurrency", job.ID)
		return false
	}

	running := int(e.RunningCount())
	if err := s.jobRepo.UpdateRuntime(context.Background(), job.ID, &running, nil, false); err != nil {
		log.Printf("scheduler: failed to persist currentRunning for job %s: %v", job.ID, err)
	}

	if !s.pool.Submit(task{entry: e, job: job, triggeredManually: triggeredManually}) {
		log.Printf("scheduler: worker pool saturated, dropping fire for job %s", job.ID)
		e.Release()
		return false
	}
	return true
}

// ExecuteManually bypasses the timer and dispatches job immediately,
// setting triggeredManually=true on the resulting log. It performs the
// same gating as a scheduled fire per spec.md §4.3.
func (s *Scheduler) ExecuteManually(ctx context.Context, jobID uuid.UUID) error {
	e, ok := s.registry.Get(jobID)
	if !ok {
		return ErrNotRegistered
	}
	if !e.Job().IsActive {
		return ErrNotRegistered
	}
	if !s.Dispatch(e, true) {
		return ErrAlreadyRunning
	}
	return nil
}

// runTask is the worker pool's WorkerFunc: it runs the HTTP Invoker,
// hands the result to the Log Writer, and finalizes the job's runtime
// bookkeeping (spec.md §4.3 step 5, §4.5).
func (s *Scheduler) runTask(t task) {
	defer s.finalize(t)

	start := time.Now()
	result := s.executor.Execute(context.Background(), t.job, t.triggeredManually, start)

	if err := s.logRepo.Insert(context.Background(), &result); err != nil {
		log.Printf("scheduler: failed to persist execution log for job %s: %v", t.job.ID, err)
	}
}

// finalize decrements the in-flight counter and persists currentRunning/
// lastExecutedAt/executionCount, tolerating a store failure by logging
// and accepting transient drift, per spec.md §4.3's Failure semantics.
func (s *Scheduler) finalize(t task) {
	t.entry.Release()

	now := time.Now()
	running := int(t.entry.RunningCount())
	if err := s.jobRepo.UpdateRuntime(context.Background(), t.job.ID, &running, &now, true); err != nil {
		log.Printf("scheduler: failed to update runtime for job %s: %v", t.job.ID, err)
	}
}
