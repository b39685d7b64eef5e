// Package registry owns the live scheduled-task handles of jobs and their
// run-state metadata. It knows nothing about persistence.
//
// The handle map is private: callers only ever see copies of Entry, so the
// Registry remains the single owner of every task it creates.
package registry

import (
	"sort"
	"sync"
	"time"

	"cronkeeper/internal/logger"
	"cronkeeper/internal/schedule"
)

// Entry is a read-only snapshot of one registered job
type Entry struct {
	JobID          int64      `json:"job_id"`
	CronExpression string     `json:"cron_expression"`
	Running        bool       `json:"running"`
	CreatedAt      time.Time  `json:"created_at"`
	LastFired      *time.Time `json:"last_fired,omitempty"`
}

type record struct {
	task  schedule.Task
	entry Entry
}

type Registry struct {
	timer  schedule.Timer
	logger logger.Logger
	now    func() time.Time

	mu   sync.Mutex
	jobs map[int64]*record
}

// New creates an empty registry whose tasks are created by timer
func New(timer schedule.Timer, log logger.Logger) *Registry {
	return &Registry{
		timer:  timer,
		logger: log.With(logger.String("component", "job_registry")),
		now:    func() time.Time { return time.Now().UTC() },
		jobs:   make(map[int64]*record),
	}
}

// Register validates expr and creates a stopped task for jobID. An existing
// entry for jobID is unregistered first. Returns false when expr is invalid.
func (r *Registry) Register(jobID int64, expr string, fn func()) bool {
	if err := schedule.Validate(expr); err != nil {
		r.logger.Error("invalid cron expression",
			logger.Int64("job_id", jobID),
			logger.String("cron_expression", expr),
			logger.Error(err))
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(jobID, expr, fn)
}

// Unregister destroys the task for jobID. Returns false when jobID is unknown.
func (r *Registry) Unregister(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterLocked(jobID)
}

// Update swaps the task for jobID to a new expression and callback. A job that
// was running before the swap is running after it.
func (r *Registry) Update(jobID int64, expr string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasRunning := false
	if rec, ok := r.jobs[jobID]; ok {
		wasRunning = rec.entry.Running
	}

	r.unregisterLocked(jobID)

	if err := schedule.Validate(expr); err != nil {
		r.logger.Error("invalid cron expression on update",
			logger.Int64("job_id", jobID),
			logger.String("cron_expression", expr),
			logger.Error(err))
		return false
	}
	if !r.registerLocked(jobID, expr, fn) {
		return false
	}

	if wasRunning {
		r.startLocked(jobID)
	}
	return true
}

// Start turns on the timer of a registered job
func (r *Registry) Start(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(jobID)
}

// Stop turns off the timer of a registered job without destroying it
func (r *Registry) Stop(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.jobs[jobID]
	if !ok {
		r.logger.Warn("cannot stop unregistered job", logger.Int64("job_id", jobID))
		return false
	}
	rec.task.Stop()
	rec.entry.Running = false
	r.logger.Info("job stopped", logger.Int64("job_id", jobID))
	return true
}

func (r *Registry) IsRegistered(jobID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Metadata returns a snapshot of the entry for jobID
func (r *Registry) Metadata(jobID int64) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.jobs[jobID]
	if !ok {
		return Entry{}, false
	}
	return rec.entry.clone(), true
}

// ListMetadata returns snapshots of every entry ordered by job id
func (r *Registry) ListMetadata() []Entry {
	r.mu.Lock()
	entries := make([]Entry, 0, len(r.jobs))
	for _, rec := range r.jobs {
		entries = append(entries, rec.entry.clone())
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].JobID < entries[j].JobID })
	return entries
}

// MarkFired records the time jobID last fired. Called from the task callback wrapper.
func (r *Registry) MarkFired(jobID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.jobs[jobID]; ok {
		firedAt := r.now()
		rec.entry.LastFired = &firedAt
	}
}

func (r *Registry) registerLocked(jobID int64, expr string, fn func()) bool {
	if _, ok := r.jobs[jobID]; ok {
		r.unregisterLocked(jobID)
	}

	task, err := r.timer.NewTask(expr, r.wrap(jobID, fn))
	if err != nil {
		r.logger.Error("failed to create scheduled task",
			logger.Int64("job_id", jobID),
			logger.String("cron_expression", expr),
			logger.Error(err))
		return false
	}
	task.Stop()

	r.jobs[jobID] = &record{
		task: task,
		entry: Entry{
			JobID:          jobID,
			CronExpression: expr,
			CreatedAt:      r.now(),
		},
	}
	r.logger.Info("job registered",
		logger.Int64("job_id", jobID),
		logger.String("cron_expression", expr))
	return true
}

func (r *Registry) unregisterLocked(jobID int64) bool {
	rec, ok := r.jobs[jobID]
	if !ok {
		r.logger.Warn("attempted to unregister unknown job", logger.Int64("job_id", jobID))
		return false
	}
	rec.task.Destroy()
	delete(r.jobs, jobID)
	r.logger.Info("job unregistered", logger.Int64("job_id", jobID))
	return true
}

func (r *Registry) startLocked(jobID int64) bool {
	rec, ok := r.jobs[jobID]
	if !ok {
		r.logger.Warn("cannot start unregistered job", logger.Int64("job_id", jobID))
		return false
	}
	rec.task.Start()
	rec.entry.Running = true
	r.logger.Info("job started", logger.Int64("job_id", jobID))
	return true
}

// wrap binds the callback so every fire is recorded before fn runs.
// fn runs on the timer goroutine without the registry lock held.
func (r *Registry) wrap(jobID int64, fn func()) func() {
	return func() {
		r.MarkFired(jobID)
		if fn != nil {
			fn()
		}
	}
}

func (e Entry) clone() Entry {
	if e.LastFired != nil {
		firedAt := *e.LastFired
		e.LastFired = &firedAt
	}
	return e
}
