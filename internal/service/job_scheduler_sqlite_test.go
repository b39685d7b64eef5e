package service

import (
	"context"
	"testing"

	"cronkeeper/internal/cache/memory"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/registry"
	"cronkeeper/internal/repository/sqlite"
	"cronkeeper/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadActiveJobsCountsCorruptSQLiteRow(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	db, err := sqlite.Open(ctx, sqlite.Config{Path: ":memory:"}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := sqlite.NewJobRepository(db, log)

	for _, name := range []string{"first", "second", "third"} {
		job := domain.NewJobDefinition(name, "*/5 * * * *", "https://example.com/hook", true)
		require.NoError(t, repo.Create(ctx, job))
	}
	_, err = db.ExecContext(ctx, `UPDATE cron_jobs SET headers = '{not json' WHERE id = 2`)
	require.NoError(t, err)

	c, err := memory.NewMemoryCache(0, log)
	require.NoError(t, err)
	reg := registry.New(schedule.NewFakeTimer(), log)
	scheduler := NewJobScheduler(reg, repo, &recordingDispatcher{}, NewExecutionHistory(c, 10, log), log)

	report, err := scheduler.LoadActiveJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Loaded: 2, Failed: 1}, report)
	assert.True(t, scheduler.JobStatus(1).Running)
	assert.False(t, scheduler.JobStatus(2).Registered)
	assert.True(t, scheduler.JobStatus(3).Running)
}
