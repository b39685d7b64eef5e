package service

import (
	"context"
	"testing"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJobServiceFixture(t *testing.T) (IJobService, *schedulerFixture) {
	f := newSchedulerFixture(t)
	return NewJobService(f.store, f.scheduler, f.history, logger.NewNop()), f
}

func newJob(name, expr string, enabled bool) *domain.JobDefinition {
	return &domain.JobDefinition{
		Name:           name,
		CronExpression: expr,
		URL:            "https://example.com/" + name,
		RetryCount:     domain.DefaultRetryCount,
		Enabled:        enabled,
	}
}

func TestJobServiceCreate(t *testing.T) {
	svc, f := newJobServiceFixture(t)
	ctx := context.Background()

	t.Run("enabled job is active and running", func(t *testing.T) {
		job, err := svc.Create(ctx, newJob("enabled", " */5 * * * * ", true))
		require.NoError(t, err)

		assert.NotZero(t, job.ID)
		assert.Equal(t, "*/5 * * * *", job.CronExpression)
		assert.Equal(t, domain.JobStatusActive, job.Status)
		assert.Equal(t, domain.DefaultMethod, job.Method)
		assert.Equal(t, domain.DefaultTimeoutSeconds, job.TimeoutSeconds)
		assert.True(t, f.scheduler.JobStatus(job.ID).Running)
	})

	t.Run("disabled job is registered but stopped", func(t *testing.T) {
		job, err := svc.Create(ctx, newJob("disabled", "0 * * * *", false))
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusInactive, job.Status)
		status := f.scheduler.JobStatus(job.ID)
		assert.True(t, status.Registered)
		assert.False(t, status.Running)
	})

	t.Run("invalid cron is a validation error", func(t *testing.T) {
		before := f.scheduler.RegisteredJobsCount()

		_, err := svc.Create(ctx, newJob("broken", "*/5 * *", true))

		assert.ErrorIs(t, err, ErrInvalidCronExpression)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, before, f.scheduler.RegisteredJobsCount())
	})

	t.Run("invalid definitions are rejected", func(t *testing.T) {
		noURL := newJob("no-url", "0 * * * *", false)
		noURL.URL = "ftp://example.com"
		_, err := svc.Create(ctx, noURL)
		assert.ErrorIs(t, err, ErrInvalidJob)

		badMethod := newJob("bad-method", "0 * * * *", false)
		badMethod.Method = "TRACE"
		_, err = svc.Create(ctx, badMethod)
		assert.ErrorIs(t, err, ErrInvalidJob)

		shortTimeout := newJob("short-timeout", "0 * * * *", false)
		shortTimeout.TimeoutSeconds = 1
		_, err = svc.Create(ctx, shortTimeout)
		assert.ErrorIs(t, err, ErrInvalidJob)

		_, err = svc.Create(ctx, newJob("", "0 * * * *", false))
		assert.ErrorIs(t, err, ErrInvalidJob)
	})
}

func TestJobServiceUpdate(t *testing.T) {
	svc, f := newJobServiceFixture(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, newJob("report", "0 * * * *", true))
	require.NoError(t, err)

	expr := "30 2 * * *"
	name := "nightly-report"
	updated, err := svc.Update(ctx, job.ID, JobUpdate{CronExpression: &expr, Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "nightly-report", updated.Name)
	assert.Equal(t, expr, updated.CronExpression)
	status := f.scheduler.JobStatus(job.ID)
	assert.True(t, status.Running, "update preserves run-state")
	assert.Equal(t, expr, status.CronExpression)

	disabled := false
	updated, err = svc.Update(ctx, job.ID, JobUpdate{Enabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusInactive, updated.Status)
	assert.False(t, f.scheduler.JobStatus(job.ID).Running)

	bad := "nope"
	_, err = svc.Update(ctx, job.ID, JobUpdate{CronExpression: &bad})
	assert.True(t, IsValidationError(err))
	assert.Equal(t, expr, f.store.get(job.ID).CronExpression, "rejected updates are not persisted")

	_, err = svc.Update(ctx, 404, JobUpdate{Name: &name})
	assert.True(t, IsNotFoundError(err))
}

func TestJobServicePauseResume(t *testing.T) {
	svc, f := newJobServiceFixture(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, newJob("heartbeat", "* * * * *", true))
	require.NoError(t, err)

	paused, err := svc.Pause(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, paused.ShouldRun())
	assert.False(t, f.scheduler.JobStatus(job.ID).Running)

	resumed, err := svc.Resume(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, resumed.ShouldRun())
	assert.True(t, f.scheduler.JobStatus(job.ID).Running)

	_, err = svc.Resume(ctx, 404)
	assert.True(t, IsNotFoundError(err))
}

func TestJobServiceDelete(t *testing.T) {
	svc, f := newJobServiceFixture(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, newJob("cleanup", "0 0 * * 0", true))
	require.NoError(t, err)
	_, err = svc.Trigger(ctx, job.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, job.ID))

	assert.False(t, f.scheduler.JobStatus(job.ID).Registered)
	assert.Nil(t, f.store.get(job.ID))
	records, err := f.history.Recent(ctx, job.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.True(t, IsNotFoundError(svc.Delete(ctx, job.ID)))
}

func TestJobServiceTriggerAndExecutions(t *testing.T) {
	svc, _ := newJobServiceFixture(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, newJob("sync", "*/15 * * * *", false))
	require.NoError(t, err)

	first, err := svc.Trigger(ctx, job.ID)
	require.NoError(t, err)
	second, err := svc.Trigger(ctx, job.ID)
	require.NoError(t, err)

	records, err := svc.Executions(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ExecutionID, records[0].ExecutionID, "newest first")
	assert.Equal(t, first.ExecutionID, records[1].ExecutionID)
	assert.Equal(t, domain.TriggerManual, records[0].TriggerType)

	got, err := svc.Get(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastExecution)

	_, err = svc.Executions(ctx, 404, 10)
	assert.True(t, IsNotFoundError(err))
}

func TestJobServiceList(t *testing.T) {
	svc, _ := newJobServiceFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, newJob(name, "0 * * * *", false))
		require.NoError(t, err)
	}

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "a", jobs[0].Name)
}
