package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cronkeeper/commons/routes"
	memoryCache "cronkeeper/internal/cache/memory"
	logDispatch "cronkeeper/internal/dispatch/log"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/handler"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/registry"
	"cronkeeper/internal/repository/sqlite"
	internalRoutes "cronkeeper/internal/routes"
	"cronkeeper/internal/schedule"
	"cronkeeper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status    string          `json:"status"`
	ErrorCode int             `json:"errorCode"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

type apiFixture struct {
	router *gin.Engine
	db     *sql.DB
	timer  *schedule.FakeTimer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	log := logger.NewNop()

	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c, err := memoryCache.NewMemoryCache(memoryCache.DefaultMaxKeys, log)
	require.NoError(t, err)

	timer := schedule.NewFakeTimer()
	repo := sqlite.NewJobRepository(db, log)
	history := service.NewExecutionHistory(c, 10, log)
	scheduler := service.NewJobScheduler(registry.New(timer, log), repo, logDispatch.NewLogDispatcher(log), history, log)
	jobService := service.NewJobService(repo, scheduler, history, log)

	deps := routes.RouteDependencies{Logger: log}
	router := routes.NewRouter(routes.RouterConfig{ServiceName: "cronkeeper", Version: "v1"}, deps)
	internalRoutes.InitHealthRoutes(router, handler.NewHealthHandler(log, scheduler, timer, "cronkeeper"), log)
	internalRoutes.InitJobRoutes(router, handler.NewJobHandler(jobService, scheduler, log), log)
	internalRoutes.InitSchedulerRoutes(router, handler.NewSchedulerHandler(scheduler, nil, log), log)

	return &apiFixture{router: router, db: db, timer: timer}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (f *apiFixture) createJob(t *testing.T, enabled bool) dto.JobResponse {
	t.Helper()
	code, env := f.do(t, http.MethodPost, "/api/v1/jobs", map[string]interface{}{
		"name":            "nightly-report",
		"cron_expression": "0 2 * * *",
		"url":             "https://example.com/hooks/report",
		"method":          "post",
		"enabled":         enabled,
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	var job dto.JobResponse
	require.NoError(t, json.Unmarshal(env.Data, &job))
	return job
}

func TestCreateAndGetJob(t *testing.T) {
	f := newAPIFixture(t)

	created := f.createJob(t, true)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "POST", created.Method)
	assert.Equal(t, "active", created.Status)
	assert.True(t, created.Enabled)
	assert.True(t, created.Registered)
	assert.True(t, created.Running)
	assert.Equal(t, 30, created.TimeoutSeconds)

	code, env := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var got dto.JobResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "nightly-report", got.Name)

	code, env = f.do(t, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, code)
	var list dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Jobs, 1)
	assert.Equal(t, 1, list.Pagination.Count)
}

func TestCreateDisabledJobIsRegisteredButStopped(t *testing.T) {
	f := newAPIFixture(t)

	created := f.createJob(t, false)
	assert.Equal(t, "inactive", created.Status)
	assert.True(t, created.Registered)
	assert.False(t, created.Running)
}

func TestCreateJobValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "missing name",
			body: map[string]interface{}{"cron_expression": "* * * * *", "url": "https://example.com"},
		},
		{
			name: "invalid cron expression",
			body: map[string]interface{}{"name": "bad", "cron_expression": "every minute", "url": "https://example.com"},
		},
		{
			name: "six field cron expression",
			body: map[string]interface{}{"name": "bad", "cron_expression": "0 * * * * *", "url": "https://example.com"},
		},
		{
			name: "unsupported method",
			body: map[string]interface{}{"name": "bad", "cron_expression": "* * * * *", "url": "https://example.com", "method": "TRACE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := f.do(t, http.MethodPost, "/api/v1/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "FAILED", env.Status)
			assert.Equal(t, 400, env.ErrorCode)
		})
	}

	code, env := f.do(t, http.MethodGet, "/api/v1/jobs", nil)
	require.Equal(t, http.StatusOK, code)
	var list dto.ListJobsResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Jobs)
}

func TestJobNotFound(t *testing.T) {
	f := newAPIFixture(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/jobs/999"},
		{http.MethodDelete, "/api/v1/jobs/999"},
		{http.MethodPost, "/api/v1/jobs/999/resume"},
		{http.MethodPost, "/api/v1/jobs/999/trigger"},
		{http.MethodGet, "/api/v1/jobs/999/executions"},
	} {
		code, env := f.do(t, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, code, req.path)
		assert.Equal(t, 404, env.ErrorCode, req.path)
	}
}

func TestInvalidJobID(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/jobs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "job_id")
}

func TestPauseAndResumeJob(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createJob(t, true)
	task := f.timer.Last()

	code, env := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/pause", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var paused dto.JobResponse
	require.NoError(t, json.Unmarshal(env.Data, &paused))
	assert.Equal(t, "inactive", paused.Status)
	assert.False(t, paused.Enabled)
	assert.False(t, paused.Running)
	assert.False(t, task.Active())

	code, env = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/resume", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var resumed dto.JobResponse
	require.NoError(t, json.Unmarshal(env.Data, &resumed))
	assert.Equal(t, "active", resumed.Status)
	assert.True(t, resumed.Enabled)
	assert.True(t, resumed.Running)
	assert.True(t, task.Active())
}

func TestUpdateJob(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createJob(t, true)

	code, env := f.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/jobs/%d", created.ID), map[string]interface{}{
		"cron_expression": "*/5 * * * *",
		"enabled":         false,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var updated dto.JobResponse
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "*/5 * * * *", updated.CronExpression)
	assert.Equal(t, "nightly-report", updated.Name)
	assert.False(t, updated.Enabled)
	assert.True(t, updated.Registered)
	assert.False(t, updated.Running)

	code, env = f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/jobs/%d", created.ID), map[string]interface{}{
		"cron_expression": "61 * * * *",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, 400, env.ErrorCode)
}

func TestTriggerJobRecordsExecution(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createJob(t, false)

	code, env := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/trigger", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var triggered dto.TriggerJobResponse
	require.NoError(t, json.Unmarshal(env.Data, &triggered))
	assert.NotEmpty(t, triggered.ExecutionID)
	assert.Equal(t, "manual", triggered.TriggerType)

	code, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/executions?limit=5", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var executions dto.ListExecutionsResponse
	require.NoError(t, json.Unmarshal(env.Data, &executions))
	require.Len(t, executions.Executions, 1)
	assert.Equal(t, 5, executions.Pagination.Limit)
	assert.Equal(t, triggered.ExecutionID, executions.Executions[0].ExecutionID)
	assert.True(t, executions.Executions[0].Dispatched)

	// a manual trigger leaves the timer alone
	code, env = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d/status", created.ID), nil)
	require.Equal(t, http.StatusOK, code)
	var status dto.JobStatusResponse
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Registered)
	assert.False(t, status.Running)
}

func TestDeleteJob(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createJob(t, true)
	task := f.timer.Last()

	code, env := f.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/jobs/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.True(t, task.Destroyed())

	code, _ = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/jobs/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = f.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, code)
	var health dto.HealthCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, 0, health.RegisteredJobs)
	assert.Equal(t, 0, health.ActiveTimers)
}

func TestHealthReportsActiveTimers(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createJob(t, true)
	f.createJob(t, false)

	health := f.health(t)
	assert.Equal(t, 2, health.RegisteredJobs)
	assert.Equal(t, 1, health.ActiveTimers)

	code, env := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/jobs/%d/pause", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	health = f.health(t)
	assert.Equal(t, 2, health.RegisteredJobs)
	assert.Equal(t, 0, health.ActiveTimers)
}

func (f *apiFixture) health(t *testing.T) dto.HealthCheckResponse {
	t.Helper()
	code, env := f.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, code)
	var health dto.HealthCheckResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	return health
}

func TestStoreFailureIsInternalError(t *testing.T) {
	f := newAPIFixture(t)
	require.NoError(t, f.db.Close())

	code, env := f.do(t, http.MethodGet, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, 500, env.ErrorCode)
	assert.Equal(t, "failed to list jobs", env.Message)
}

func TestValidateCron(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodPost, "/api/v1/cron/validate", map[string]string{"cron_expression": "0 * * * *"})
	require.Equal(t, http.StatusOK, code)
	var valid dto.ValidateCronResponse
	require.NoError(t, json.Unmarshal(env.Data, &valid))
	assert.True(t, valid.Valid)
	assert.Len(t, valid.NextRuns, 5)
	for i := 1; i < len(valid.NextRuns); i++ {
		assert.True(t, valid.NextRuns[i].After(valid.NextRuns[i-1]))
	}

	code, env = f.do(t, http.MethodPost, "/api/v1/cron/validate", map[string]string{"cron_expression": "* * *"})
	require.Equal(t, http.StatusOK, code)
	var invalid dto.ValidateCronResponse
	require.NoError(t, json.Unmarshal(env.Data, &invalid))
	assert.False(t, invalid.Valid)
	assert.NotEmpty(t, invalid.Error)
	assert.Empty(t, invalid.NextRuns)
}

func TestListSchedulerJobs(t *testing.T) {
	f := newAPIFixture(t)
	f.createJob(t, true)
	f.createJob(t, false)

	code, env := f.do(t, http.MethodGet, "/api/v1/scheduler/jobs", nil)
	require.Equal(t, http.StatusOK, code)
	var resp dto.SchedulerJobsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 2, resp.RegisteredCount)
	assert.Len(t, resp.Jobs, 2)
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newAPIFixture(t)

	code, env := f.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "FAILED", env.Status)

	code, env = f.do(t, http.MethodDelete, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, 400, env.ErrorCode)
}
