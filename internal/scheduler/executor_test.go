package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(url string) models.Job {
	return models.Job{
		ID:             uuid.New(),
		Name:           "test-job",
		URL:            url,
		Method:         models.MethodGET,
		ScheduleType:   models.ScheduleTypeRepeat,
		Schedule:       "5s",
		RequestTimeout: models.DefaultRequestTimeoutMS,
		ExecutionMode:  models.ExecutionModeSequential,
		MaxConcurrent:  1,
		IsActive:       true,
	}
}

func TestExecuteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewExecutor(nil)
	job := newTestJob(srv.URL)

	log := e.Execute(context.Background(), job, false, time.Now())

	assert.Equal(t, models.ExecutionStatusSuccess, log.Status)
	require.NotNil(t, log.ResponseCode)
	assert.Equal(t, http.StatusOK, *log.ResponseCode)
	assert.Contains(t, log.ResponseBody, "ok")
}

func TestExecuteNonRetryable404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewExecutor(nil)
	job := newTestJob(srv.URL)

	log := e.Execute(context.Background(), job, false, time.Now())

	assert.Equal(t, models.ExecutionStatusFailed, log.Status)
	require.NotNil(t, log.ResponseCode)
	assert.Equal(t, http.StatusNotFound, *log.ResponseCode)
	assert.Contains(t, log.ErrorMessage, "HTTP 404: ")
	assert.Equal(t, 0, log.RetryCount)
}

func TestExecuteRetries500(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewExecutor(nil)
	job := newTestJob(srv.URL)

	log := e.Execute(context.Background(), job, false, time.Now())

	assert.Equal(t, models.ExecutionStatusFailed, log.Status)
	assert.Equal(t, 4, attempts) // 1 initial + 3 retries
	assert.Equal(t, 3, log.RetryCount)
}

func TestExecuteManualFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewExecutor(nil)
	job := newTestJob(srv.URL)

	log := e.Execute(context.Background(), job, true, time.Now())
	assert.True(t, log.TriggeredManually)
}
