//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	schedulerconfig "github.com/minisource/httpscheduler/config"
	"github.com/minisource/httpscheduler/internal/handler"
	"github.com/minisource/httpscheduler/internal/models"
	"github.com/minisource/httpscheduler/internal/ratelimit"
	"github.com/minisource/httpscheduler/internal/reconciler"
	"github.com/minisource/httpscheduler/internal/repository"
	"github.com/minisource/httpscheduler/internal/router"
	"github.com/minisource/httpscheduler/internal/scheduler"
	"github.com/minisource/httpscheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testApp wires the real router against an in-memory sqlite store and a
// running scheduling engine, the same components cmd/main.go wires,
// minus Redis (tests run single-instance, so the guard is skipped).
type testApp struct {
	app   *fiber.App
	sched *scheduler.Scheduler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Job{}, &models.ExecutionLog{}))

	jobRepo := repository.NewJobRepository(db)
	logRepo := repository.NewLogRepository(db)

	cfg := &schedulerconfig.Config{
		Scheduler: schedulerconfig.SchedulerConfig{WorkerCount: 4, Timezone: "UTC"},
	}
	sched := scheduler.NewScheduler(cfg, jobRepo, logRepo)
	sched.Start(context.Background())

	jobService := service.NewJobService(jobRepo, sched)
	logService := service.NewLogService(logRepo)
	triggers := ratelimit.NewTriggerLimiter()

	handlers := &router.Handlers{
		Job:    handler.NewJobHandler(jobService, sched, triggers),
		Log:    handler.NewLogHandler(logService),
		Health: handler.NewHealthHandler(db, sched),
	}

	app := fiber.New()
	router.SetupRouter(app, handlers)

	t.Cleanup(sched.Stop)

	return &testApp{app: app, sched: sched}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestApp(t)

	resp := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result handler.Response
	decode(t, resp, &result)
	assert.True(t, result.Success)
}

func TestCreateJob(t *testing.T) {
	a := newTestApp(t)

	t.Run("cron job", func(t *testing.T) {
		req := models.CreateJobRequest{
			Name:         "daily-report",
			URL:          "http://example.com/webhook/report",
			Method:       models.MethodPOST,
			Schedule:     "0 9 * * *",
			ScheduleType: models.ScheduleTypeCron,
		}

		resp := a.do(t, http.MethodPost, "/api/jobs", req)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result handler.Response
		decode(t, resp, &result)
		assert.True(t, result.Success)
	})

	t.Run("repeat job", func(t *testing.T) {
		req := models.CreateJobRequest{
			Name:         "poll-task",
			URL:          "http://example.com/webhook/task",
			Schedule:     "30s",
			ScheduleType: models.ScheduleTypeRepeat,
		}

		resp := a.do(t, http.MethodPost, "/api/jobs", req)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("rejects invalid schedule", func(t *testing.T) {
		req := models.CreateJobRequest{
			Name:         "bad-schedule",
			URL:          "http://example.com/webhook",
			Schedule:     "not-a-schedule",
			ScheduleType: models.ScheduleTypeCron,
		}

		resp := a.do(t, http.MethodPost, "/api/jobs", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestListJobs(t *testing.T) {
	a := newTestApp(t)

	for i := 0; i < 3; i++ {
		req := models.CreateJobRequest{
			Name:         fmt.Sprintf("job-%d", i),
			URL:          "http://example.com/webhook",
			Schedule:     "1h",
			ScheduleType: models.ScheduleTypeRepeat,
		}
		resp := a.do(t, http.MethodPost, "/api/jobs", req)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := a.do(t, http.MethodGet, "/api/jobs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result handler.Response
	decode(t, resp, &result)
	assert.True(t, result.Success)
	assert.EqualValues(t, 3, result.Meta.TotalCount)
}

func TestPauseResumeJob(t *testing.T) {
	a := newTestApp(t)

	created := a.do(t, http.MethodPost, "/api/jobs", models.CreateJobRequest{
		Name:         "toggle-me",
		URL:          "http://example.com/webhook",
		Schedule:     "1h",
		ScheduleType: models.ScheduleTypeRepeat,
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)

	var createResult handler.Response
	decode(t, created, &createResult)
	jobMap := createResult.Data.(map[string]interface{})
	jobID := jobMap["id"].(string)

	t.Run("pause", func(t *testing.T) {
		resp := a.do(t, http.MethodPut, "/api/jobs/"+jobID+"/toggle", map[string]bool{"active": false})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result handler.Response
		decode(t, resp, &result)
		job := result.Data.(map[string]interface{})
		assert.Equal(t, false, job["isActive"])
	})

	t.Run("resume", func(t *testing.T) {
		resp := a.do(t, http.MethodPut, "/api/jobs/"+jobID+"/toggle", map[string]bool{"active": true})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result handler.Response
		decode(t, resp, &result)
		job := result.Data.(map[string]interface{})
		assert.Equal(t, true, job["isActive"])
	})
}

func TestCronScheduleValidationAcrossDialects(t *testing.T) {
	testCases := []struct {
		name         string
		expression   string
		scheduleType models.ScheduleType
		valid        bool
	}{
		{"every minute", "* * * * *", models.ScheduleTypeCron, true},
		{"daily at 9am", "0 9 * * *", models.ScheduleTypeCron, true},
		{"weekly on monday", "0 9 * * 1", models.ScheduleTypeCron, true},
		{"invalid expression", "invalid", models.ScheduleTypeCron, false},
		{"too few fields", "* * *", models.ScheduleTypeCron, false},
		{"five second repeat", "5s", models.ScheduleTypeRepeat, true},
		{"repeat below minimum", "1s", models.ScheduleTypeRepeat, false},
	}

	a := newTestApp(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := a.do(t, http.MethodPost, "/api/jobs", models.CreateJobRequest{
				Name:         "validation-" + tc.name,
				URL:          "http://example.com/webhook",
				Schedule:     tc.expression,
				ScheduleType: tc.scheduleType,
			})
			if tc.valid {
				assert.Equal(t, http.StatusCreated, resp.StatusCode)
			} else {
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			}
		})
	}
}

func TestJobExecutionRecordsLog(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer target.Close()

	a := newTestApp(t)

	created := a.do(t, http.MethodPost, "/api/jobs", models.CreateJobRequest{
		Name:         "webhook-job",
		URL:          target.URL,
		Schedule:     "1h",
		ScheduleType: models.ScheduleTypeRepeat,
	})
	require.Equal(t, http.StatusCreated, created.StatusCode)

	var createResult handler.Response
	decode(t, created, &createResult)
	jobMap := createResult.Data.(map[string]interface{})
	jobID := jobMap["id"].(string)

	triggerResp := a.do(t, http.MethodPost, "/api/jobs/"+jobID+"/trigger", nil)
	assert.Equal(t, http.StatusOK, triggerResp.StatusCode)

	require.Eventually(t, func() bool {
		logsResp := a.do(t, http.MethodGet, "/api/jobs/"+jobID+"/logs", nil)
		var result handler.Response
		decode(t, logsResp, &result)
		return result.Meta != nil && result.Meta.TotalCount >= 1
	}, 2*time.Second, 20*time.Millisecond, "expected one execution log to be recorded")

	secondTrigger := a.do(t, http.MethodPost, "/api/jobs/"+jobID+"/trigger", nil)
	assert.Equal(t, http.StatusTooManyRequests, secondTrigger.StatusCode)
}

// compile-time assertion that Scheduler still satisfies the reconciler
// contract the job lifecycle depends on.
var _ reconciler.Reconciler = (*scheduler.Scheduler)(nil)
