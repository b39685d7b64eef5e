package schedule

import (
	"context"
	"sync"
	"time"

	"cronkeeper/internal/logger"

	"github.com/robfig/cron/v3"
)

// Task is a scheduled-task handle. All methods are idempotent.
// Destroy is terminal: a destroyed task never starts again.
type Task interface {
	Start()
	Stop()
	Destroy()
	Active() bool
}

// Timer creates tasks. New tasks are always stopped.
type Timer interface {
	NewTask(expr string, fn func()) (Task, error)
}

// CronTimer drives every task from one robfig/cron instance
type CronTimer struct {
	cron     *cron.Cron
	location *time.Location
	logger   logger.Logger
}

// NewCronTimer creates the process-wide timer. Tasks may be created and
// started before Start; they begin firing once the timer runs.
func NewCronTimer(location *time.Location, log logger.Logger) *CronTimer {
	if location == nil {
		location = time.UTC
	}
	cronLog := logger.CronLogger(log)
	return &CronTimer{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		location: location,
		logger:   log.With(logger.String("component", "cron_timer")),
	}
}

// Start begins firing scheduled tasks
func (t *CronTimer) Start() {
	t.cron.Start()
	t.logger.Info("cron timer started", logger.String("location", t.location.String()))
}

// Stop stops firing and waits for running callbacks or ctx, whichever ends first
func (t *CronTimer) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	select {
	case <-done.Done():
		t.logger.Info("cron timer stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("cron timer stop timed out waiting for running jobs")
		return ctx.Err()
	}
}

// ActiveEntries returns the number of tasks currently scheduled on the cron
func (t *CronTimer) ActiveEntries() int {
	return len(t.cron.Entries())
}

// NewTask parses expr and returns a stopped task bound to fn
func (t *CronTimer) NewTask(expr string, fn func()) (Task, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	return &cronTask{
		cron:     t.cron,
		schedule: sched,
		job:      cron.FuncJob(fn),
	}, nil
}

type cronTask struct {
	mu        sync.Mutex
	cron      *cron.Cron
	schedule  cron.Schedule
	job       cron.Job
	entryID   cron.EntryID
	active    bool
	destroyed bool
}

func (t *cronTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active || t.destroyed {
		return
	}
	t.entryID = t.cron.Schedule(t.schedule, t.job)
	t.active = true
}

func (t *cronTask) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *cronTask) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.destroyed = true
}

func (t *cronTask) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *cronTask) stopLocked() {
	if !t.active {
		return
	}
	t.cron.Remove(t.entryID)
	t.entryID = 0
	t.active = false
}
