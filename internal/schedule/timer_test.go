package schedule

import (
	"context"
	"testing"
	"time"

	"cronkeeper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return ts
}

func TestCronTimerTaskLifecycle(t *testing.T) {
	timer := NewCronTimer(time.UTC, logger.NewNop())

	task, err := timer.NewTask("*/5 * * * *", func() {})
	require.NoError(t, err)

	assert.False(t, task.Active(), "new tasks are stopped")
	assert.Equal(t, 0, timer.ActiveEntries())

	task.Start()
	task.Start()
	assert.True(t, task.Active())
	assert.Equal(t, 1, timer.ActiveEntries(), "starting twice schedules once")

	task.Stop()
	assert.False(t, task.Active())
	assert.Equal(t, 0, timer.ActiveEntries())

	task.Start()
	assert.Equal(t, 1, timer.ActiveEntries())

	task.Destroy()
	assert.False(t, task.Active())
	assert.Equal(t, 0, timer.ActiveEntries())

	task.Start()
	assert.False(t, task.Active(), "destroyed tasks cannot restart")
	assert.Equal(t, 0, timer.ActiveEntries())
}

func TestCronTimerRejectsInvalidExpression(t *testing.T) {
	timer := NewCronTimer(nil, logger.NewNop())

	task, err := timer.NewTask("61 * * * *", func() {})
	assert.Error(t, err)
	assert.Nil(t, task)
}

func TestCronTimerRunningLifecycle(t *testing.T) {
	timer := NewCronTimer(time.UTC, logger.NewNop())
	timer.Start()

	first, err := timer.NewTask("* * * * *", func() {})
	require.NoError(t, err)
	second, err := timer.NewTask("0 * * * *", func() {})
	require.NoError(t, err)

	first.Start()
	second.Start()
	assert.Equal(t, 2, timer.ActiveEntries())

	first.Destroy()
	assert.Equal(t, 1, timer.ActiveEntries())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, timer.Stop(ctx))
}

func TestFakeTaskFiresOnlyWhenActive(t *testing.T) {
	timer := NewFakeTimer()
	calls := 0

	task, err := timer.NewTask("*/5 * * * *", func() { calls++ })
	require.NoError(t, err)
	fake := timer.Last()
	require.NotNil(t, fake)

	assert.False(t, fake.Fire())
	task.Start()
	assert.True(t, fake.Fire())
	task.Destroy()
	assert.False(t, fake.Fire())
	assert.True(t, fake.Destroyed())
	assert.Equal(t, 1, calls)
}

func TestFakeTimerActiveEntries(t *testing.T) {
	timer := NewFakeTimer()

	first, err := timer.NewTask("*/5 * * * *", func() {})
	require.NoError(t, err)
	second, err := timer.NewTask("0 * * * *", func() {})
	require.NoError(t, err)
	assert.Equal(t, 0, timer.ActiveEntries())

	first.Start()
	second.Start()
	assert.Equal(t, 2, timer.ActiveEntries())

	first.Stop()
	assert.Equal(t, 1, timer.ActiveEntries())
	second.Destroy()
	assert.Equal(t, 0, timer.ActiveEntries())
}
