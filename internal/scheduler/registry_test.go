package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	fires int32
}

func (d *recordingDispatcher) Dispatch(e *Entry, triggeredManually bool) bool {
	atomic.AddInt32(&d.fires, 1)
	return true
}

func TestRegistryRegisterRejectsInvalidSchedule(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRegistry(time.UTC, d)

	job := models.Job{ID: uuid.New(), Schedule: "not-a-schedule", ScheduleType: models.ScheduleTypeRepeat, IsActive: true}
	err := r.Register(job)
	require.Error(t, err)

	_, ok := r.Get(job.ID)
	assert.False(t, ok)
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRegistry(time.UTC, d)

	job := models.Job{ID: uuid.New(), Schedule: "5s", ScheduleType: models.ScheduleTypeRepeat, IsActive: true}
	require.NoError(t, r.Register(job))
	require.NoError(t, r.Register(job))

	e, ok := r.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.ID, e.Job().ID)
}

func TestRegistryDisableKeepsEntry(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRegistry(time.UTC, d)

	job := models.Job{ID: uuid.New(), Schedule: "5s", ScheduleType: models.ScheduleTypeRepeat, IsActive: true}
	require.NoError(t, r.Register(job))

	require.NoError(t, r.Disable(job.ID))
	e, ok := r.Get(job.ID)
	require.True(t, ok)
	assert.False(t, e.Job().IsActive)
}

func TestRegistryEnableUnknownFails(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRegistry(time.UTC, d)

	err := r.Enable(uuid.New())
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistryRemove(t *testing.T) {
	d := &recordingDispatcher{}
	r := NewRegistry(time.UTC, d)

	job := models.Job{ID: uuid.New(), Schedule: "5s", ScheduleType: models.ScheduleTypeRepeat, IsActive: true}
	require.NoError(t, r.Register(job))
	r.Remove(job.ID)

	_, ok := r.Get(job.ID)
	assert.False(t, ok)
}

func TestEntryTryAcquireSequential(t *testing.T) {
	e := &Entry{}
	e.job = models.Job{ExecutionMode: models.ExecutionModeSequential}

	assert.True(t, e.TryAcquire())
	assert.False(t, e.TryAcquire())
	e.Release()
	assert.True(t, e.TryAcquire())
}

func TestEntryTryAcquireParallel(t *testing.T) {
	e := &Entry{}
	e.job = models.Job{ExecutionMode: models.ExecutionModeParallel, MaxConcurrent: 2}

	assert.True(t, e.TryAcquire())
	assert.True(t, e.TryAcquire())
	assert.False(t, e.TryAcquire())
	e.Release()
	assert.True(t, e.TryAcquire())
}
