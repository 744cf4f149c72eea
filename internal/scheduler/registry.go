package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/schedule"
	"github.com/robfig/cron/v3"
)

// ErrNotRegistered is returned by Registry methods operating on a job id
// that has no live entry.
var ErrNotRegistered = errors.New("scheduler: job is not registered")

// Dispatcher is notified every time a registered job's schedule fires. It
// reports whether the fire was actually submitted for execution, as
// opposed to skipped by gating or an inactive job.
type Dispatcher interface {
	Dispatch(e *Entry, triggeredManually bool) bool
}

// Entry is one job's live scheduling state. It is looked up and mutated
// only through the Registry; the embedded mutex guards the Job/Schedule
// snapshot against concurrent reads from dispatch and writes from
// Update/Enable/Disable.
type Entry struct {
	mu           sync.RWMutex
	job          models.Job
	sched        schedule.Schedule
	cronEntryID  cron.EntryID
	scheduled    bool
	runningCount int32 // atomic
	lastRun      *time.Time
}

// Job returns a snapshot of the entry's current Job.
func (e *Entry) Job() models.Job {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.job
}

// RunningCount returns the number of in-flight executions for this entry.
func (e *Entry) RunningCount() int32 {
	return atomic.LoadInt32(&e.runningCount)
}

// LastRun returns the last dispatch time, if any.
func (e *Entry) LastRun() *time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRun
}

// TryAcquire enforces spec.md §4.3/§5's gating rule atomically: in
// sequential mode at most one execution may be in flight; in parallel
// mode at most MaxConcurrent.
func (e *Entry) TryAcquire() bool {
	e.mu.RLock()
	mode := e.job.ExecutionMode
	max := int32(e.job.MaxConcurrent)
	e.mu.RUnlock()

	if max < 1 {
		max = 1
	}
	if mode == models.ExecutionModeSequential {
		return atomic.CompareAndSwapInt32(&e.runningCount, 0, 1)
	}

	for {
		cur := atomic.LoadInt32(&e.runningCount)
		if cur >= max {
			return false
		}
		if atomic.CompareAndSwapInt32(&e.runningCount, cur, cur+1) {
			return true
		}
	}
}

// Release decrements the in-flight count. Call exactly once per
// successful TryAcquire, from the finalizer.
func (e *Entry) Release() {
	atomic.AddInt32(&e.runningCount, -1)
}

func (e *Entry) markFired(at time.Time) {
	e.mu.Lock()
	e.lastRun = &at
	e.mu.Unlock()
}

// cronJob adapts an Entry to robfig/cron's cron.Job interface.
type cronJob struct {
	registry *Registry
	entry    *Entry
}

func (j cronJob) Run() {
	j.entry.markFired(time.Now())
	_ = j.registry.dispatcher.Dispatch(j.entry, false)
}

// Registry holds one Entry per registered job. Scheduling itself is
// delegated to a single shared *cron.Cron instance: robfig/cron/v3 runs
// its own schedule-evaluation loop on one internal goroutine, which is
// the "single owner task" spec.md §9 calls for — the Registry does not
// need to roll its own timer-ownership goroutine on top of it.
type Registry struct {
	cronRunner *cron.Cron
	dispatcher Dispatcher

	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
}

// NewRegistry creates a Registry whose cron evaluation runs in location
// (the configured TZ, spec.md §6), notifying dispatcher on every fire.
func NewRegistry(location *time.Location, dispatcher Dispatcher) *Registry {
	return &Registry{
		cronRunner: cron.New(cron.WithLocation(location)),
		dispatcher: dispatcher,
		entries:    make(map[uuid.UUID]*Entry),
	}
}

// Start begins evaluating every currently scheduled entry.
func (r *Registry) Start() { r.cronRunner.Start() }

// Stop halts the cron loop and waits for it to drain, per spec.md §4.3's
// Termination rule: no new fires are accepted, in-flight runs are not
// force-cancelled here.
func (r *Registry) Stop() { <-r.cronRunner.Stop().Done() }

// Register installs job's schedule. Re-registering an already-known job
// id removes and reinstalls the timer, matching spec.md §4.3's
// idempotency requirement. Registering an inactive job clears any
// existing timer without scheduling a new one.
func (r *Registry) Register(job models.Job) error {
	return r.upsert(job)
}

// Update reloads job (schedule and all other fields) and, if still
// active, re-registers it with the new schedule.
func (r *Registry) Update(job models.Job) error {
	return r.upsert(job)
}

func (r *Registry) upsert(job models.Job) error {
	sch, err := schedule.Parse(job.Schedule, job.ScheduleType)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[job.ID]
	if !ok {
		e = &Entry{}
		r.entries[job.ID] = e
	} else {
		r.unscheduleLocked(e)
	}

	e.mu.Lock()
	e.job = job
	e.sched = sch
	e.mu.Unlock()

	if job.IsActive {
		r.scheduleLocked(e)
	}
	return nil
}

// Enable marks id's existing entry active and (re)installs its timer from
// the entry's current Job and schedule snapshot. It does not reload the
// job from the store.
func (r *Registry) Enable(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return ErrNotRegistered
	}

	e.mu.Lock()
	e.job.IsActive = true
	e.mu.Unlock()

	r.unscheduleLocked(e)
	r.scheduleLocked(e)
	return nil
}

// Disable removes id's timer without deleting its registry entry, so
// RunningCount/LastRun observability survives a toggle-off.
func (r *Registry) Disable(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return ErrNotRegistered
	}

	e.mu.Lock()
	e.job.IsActive = false
	e.mu.Unlock()

	r.unscheduleLocked(e)
	return nil
}

// Remove deletes id's timer and registry entry. In-flight executions
// already dispatched for id are allowed to complete; their finalizer
// must tolerate Get reporting not-found afterward.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		r.unscheduleLocked(e)
		delete(r.entries, id)
	}
}

// Get returns the live entry for id, if any.
func (r *Registry) Get(id uuid.UUID) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// IsRunning reports whether id has any in-flight execution.
func (r *Registry) IsRunning(id uuid.UUID) bool {
	e, ok := r.Get(id)
	return ok && e.RunningCount() > 0
}

func (r *Registry) scheduleLocked(e *Entry) {
	e.mu.Lock()
	id := r.cronRunner.Schedule(e.sched.AsCronSchedule(), cronJob{registry: r, entry: e})
	e.cronEntryID = id
	e.scheduled = true
	e.mu.Unlock()
}

func (r *Registry) unscheduleLocked(e *Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scheduled {
		r.cronRunner.Remove(e.cronEntryID)
		e.scheduled = false
	}
}
