package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	dispatch "cronkeeper/internal/dispatch/iface"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/registry"
	"cronkeeper/internal/repository"
	repositoryIface "cronkeeper/internal/repository/iface"
	"cronkeeper/internal/schedule"
)

// DefaultDispatchTimeout bounds a single scheduled dispatch
const DefaultDispatchTimeout = 30 * time.Second

// JobStatus is the live state of one job as seen by the registry
type JobStatus struct {
	JobID          int64      `json:"job_id"`
	Registered     bool       `json:"registered"`
	Running        bool       `json:"running"`
	CronExpression string     `json:"cron_expression,omitempty"`
	LastFired      *time.Time `json:"last_fired,omitempty"`
}

// ReconcileReport summarizes a startup reconciliation pass
type ReconcileReport struct {
	Loaded    int `json:"loaded"`
	Failed    int `json:"failed"`
	Corrected int `json:"corrected"`
}

type IJobScheduler interface {
	ScheduleJob(ctx context.Context, jobID int64, expr string, fn func()) error
	UnscheduleJob(ctx context.Context, jobID int64) error
	RescheduleJob(ctx context.Context, jobID int64, expr string, fn func()) error
	StartJob(ctx context.Context, jobID int64) error
	StopJob(ctx context.Context, jobID int64) error
	LoadActiveJobs(ctx context.Context) (ReconcileReport, error)
	TriggerJob(ctx context.Context, jobID int64) (*domain.ExecutionRequest, error)
	JobCallback(job *domain.JobDefinition) func()
	ValidateCronExpression(expr string) bool
	JobStatus(jobID int64) JobStatus
	ListJobStatuses() []JobStatus
	RegisteredJobsCount() int
}

// JobScheduler keeps the registry and the job store consistent. Every
// lifecycle operation holds the job's lock from registry mutation through
// the store write-back.
type JobScheduler struct {
	registry        *registry.Registry
	store           repositoryIface.RunStateStore
	dispatcher      dispatch.Dispatcher
	history         *ExecutionHistory
	logger          logger.Logger
	locks           *jobLocks
	now             func() time.Time
	dispatchTimeout time.Duration
}

// NewJobScheduler creates the scheduler service
func NewJobScheduler(
	reg *registry.Registry,
	store repositoryIface.RunStateStore,
	dispatcher dispatch.Dispatcher,
	history *ExecutionHistory,
	log logger.Logger,
) *JobScheduler {
	return &JobScheduler{
		registry:        reg,
		store:           store,
		dispatcher:      dispatcher,
		history:         history,
		logger:          log.With(logger.String("component", "job_scheduler")),
		locks:           newJobLocks(),
		now:             func() time.Time { return time.Now().UTC() },
		dispatchTimeout: DefaultDispatchTimeout,
	}
}

// SetDispatchTimeout bounds each scheduled dispatch. Non-positive values are ignored.
func (s *JobScheduler) SetDispatchTimeout(d time.Duration) {
	if d > 0 {
		s.dispatchTimeout = d
	}
}

// ScheduleJob registers the job and starts it when the stored run-state says
// it should run. It never writes run-state.
func (s *JobScheduler) ScheduleJob(ctx context.Context, jobID int64, expr string, fn func()) error {
	unlock := s.locks.lock(jobID)
	defer unlock()

	if err := s.register(jobID, expr, fn); err != nil {
		s.logger.Error("failed to schedule job", logger.Int64("job_id", jobID), logger.Error(err))
		return err
	}

	started, err := s.startIfShouldRun(ctx, jobID)
	if err != nil {
		return err
	}
	if started {
		s.logger.Info("job scheduled and started", logger.Int64("job_id", jobID))
	} else {
		s.logger.Info("job scheduled but not started", logger.Int64("job_id", jobID))
	}
	return nil
}

// UnscheduleJob removes the job from the registry. Unknown jobs are not an error.
func (s *JobScheduler) UnscheduleJob(_ context.Context, jobID int64) error {
	unlock := s.locks.lock(jobID)
	defer unlock()

	if !s.registry.Unregister(jobID) {
		s.logger.Warn("job was not registered, skipping unschedule", logger.Int64("job_id", jobID))
		return nil
	}
	s.logger.Info("job unscheduled", logger.Int64("job_id", jobID))
	return nil
}

// RescheduleJob swaps the job's expression and callback, then starts it when
// the stored run-state says it should run
func (s *JobScheduler) RescheduleJob(ctx context.Context, jobID int64, expr string, fn func()) error {
	unlock := s.locks.lock(jobID)
	defer unlock()

	if !s.registry.Update(jobID, expr, fn) {
		if err := schedule.Validate(expr); err != nil {
			return fmt.Errorf("%w: job %d: %w: %v", ErrRegistrationFailed, jobID, ErrInvalidCronExpression, err)
		}
		return fmt.Errorf("%w: job %d", ErrRegistrationFailed, jobID)
	}

	if _, err := s.startIfShouldRun(ctx, jobID); err != nil {
		return err
	}

	s.logger.Info("job rescheduled",
		logger.Int64("job_id", jobID),
		logger.String("cron_expression", expr))
	return nil
}

// StartJob starts the job, loading it from the store first when it is not
// registered, and persists active/enabled
func (s *JobScheduler) StartJob(ctx context.Context, jobID int64) error {
	unlock := s.locks.lock(jobID)
	defer unlock()

	if !s.registry.IsRegistered(jobID) {
		if err := s.loadJobFromStore(ctx, jobID); err != nil {
			s.logger.Error("failed to start job", logger.Int64("job_id", jobID), logger.Error(err))
			return err
		}
	}

	wasRunning := false
	if entry, ok := s.registry.Metadata(jobID); ok {
		wasRunning = entry.Running
	}

	if !s.registry.Start(jobID) {
		return fmt.Errorf("%w: job %d", ErrStartFailed, jobID)
	}

	if err := s.store.WriteRunState(ctx, jobID, domain.JobStatusActive, true); err != nil {
		// only a timer this call started is rolled back
		if !wasRunning {
			s.registry.Stop(jobID)
		}
		s.logger.Error("failed to persist started job", logger.Int64("job_id", jobID), logger.Error(err))
		return fmt.Errorf("failed to persist run state of job %d: %w", jobID, err)
	}

	s.logger.Info("job started and run state persisted",
		logger.Int64("job_id", jobID),
		logger.String("status", string(domain.JobStatusActive)),
		logger.Bool("enabled", true))
	return nil
}

// StopJob stops the job's timer and persists inactive/disabled. A job that was
// not running is only logged.
func (s *JobScheduler) StopJob(ctx context.Context, jobID int64) error {
	unlock := s.locks.lock(jobID)
	defer unlock()

	wasRunning := false
	if entry, ok := s.registry.Metadata(jobID); ok {
		wasRunning = entry.Running
	}

	if !s.registry.Stop(jobID) {
		s.logger.Warn("job was not registered, updating store only", logger.Int64("job_id", jobID))
	}

	if err := s.store.WriteRunState(ctx, jobID, domain.JobStatusInactive, false); err != nil {
		if wasRunning {
			s.registry.Start(jobID)
		}
		s.logger.Error("failed to persist stopped job", logger.Int64("job_id", jobID), logger.Error(err))
		return fmt.Errorf("failed to persist run state of job %d: %w", jobID, err)
	}

	s.logger.Info("job stopped and run state persisted",
		logger.Int64("job_id", jobID),
		logger.String("status", string(domain.JobStatusInactive)),
		logger.Bool("enabled", false))
	return nil
}

// LoadActiveJobs rebuilds the registry from the store. Records whose status
// and enabled flag disagree are corrected first. Each schedulable job is
// loaded independently; only a failed query is returned as an error.
func (s *JobScheduler) LoadActiveJobs(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	report.Corrected = s.correctRunStateConflicts(ctx)

	jobs, err := s.store.FindSchedulableJobs(ctx)
	if err != nil {
		s.logger.Error("failed to query schedulable jobs", logger.Error(err))
		return report, fmt.Errorf("failed to query schedulable jobs: %w", err)
	}

	s.logger.Info("loading schedulable jobs", logger.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := s.loadJob(ctx, job.ID); err != nil {
			report.Failed++
			s.logger.Error("failed to load job",
				logger.Int64("job_id", job.ID),
				logger.String("job_name", job.Name),
				logger.Error(err))
			continue
		}
		report.Loaded++
	}

	s.logger.Info("job loading completed",
		logger.Int("loaded", report.Loaded),
		logger.Int("failed", report.Failed),
		logger.Int("corrected", report.Corrected))
	return report, nil
}

// TriggerJob dispatches the job once, independent of its timer
func (s *JobScheduler) TriggerJob(ctx context.Context, jobID int64) (*domain.ExecutionRequest, error) {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	req, err := s.execute(ctx, job, domain.TriggerManual)
	if err != nil {
		return req, fmt.Errorf("failed to dispatch job %d: %w", jobID, err)
	}
	return req, nil
}

// JobCallback returns the timer callback for job. It dispatches a snapshot of
// the definition taken now, so later edits need a reschedule to take effect.
func (s *JobScheduler) JobCallback(job *domain.JobDefinition) func() {
	snapshot := *job
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()
		s.execute(ctx, &snapshot, domain.TriggerScheduled)
	}
}

func (s *JobScheduler) ValidateCronExpression(expr string) bool {
	return schedule.IsValid(expr)
}

func (s *JobScheduler) JobStatus(jobID int64) JobStatus {
	entry, ok := s.registry.Metadata(jobID)
	if !ok {
		return JobStatus{JobID: jobID}
	}
	return statusFromEntry(entry)
}

func (s *JobScheduler) ListJobStatuses() []JobStatus {
	entries := s.registry.ListMetadata()
	statuses := make([]JobStatus, 0, len(entries))
	for _, entry := range entries {
		statuses = append(statuses, statusFromEntry(entry))
	}
	return statuses
}

func (s *JobScheduler) RegisteredJobsCount() int {
	return s.registry.Count()
}

func (s *JobScheduler) execute(ctx context.Context, job *domain.JobDefinition, trigger domain.TriggerType) (*domain.ExecutionRequest, error) {
	req := domain.NewExecutionRequest(job, trigger, s.now())

	s.logger.Info("executing job",
		logger.Int64("job_id", job.ID),
		logger.String("job_name", job.Name),
		logger.String("execution_id", req.ExecutionID),
		logger.String("trigger_type", string(trigger)))

	err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		s.logger.Error("failed to dispatch job",
			logger.Int64("job_id", job.ID),
			logger.String("execution_id", req.ExecutionID),
			logger.Error(err))
	}

	if herr := s.history.Record(ctx, req, err); herr != nil {
		s.logger.Warn("failed to record execution",
			logger.Int64("job_id", job.ID),
			logger.String("execution_id", req.ExecutionID),
			logger.Error(herr))
	}
	return req, err
}

// loadJob loads one reconciliation item under the job's lock. A panic while
// loading counts as a failure of that item only.
func (s *JobScheduler) loadJob(ctx context.Context, jobID int64) (err error) {
	unlock := s.locks.lock(jobID)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while loading job %d: %v", jobID, r)
		}
	}()
	return s.loadJobFromStore(ctx, jobID)
}

// loadJobFromStore registers the stored definition of jobID and starts it
// when it should run. Callers hold the job's lock.
func (s *JobScheduler) loadJobFromStore(ctx context.Context, jobID int64) error {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	if err := s.register(job.ID, job.CronExpression, s.JobCallback(job)); err != nil {
		return err
	}
	if job.ShouldRun() {
		s.registry.Start(job.ID)
	}

	s.logger.Debug("job loaded from store",
		logger.Int64("job_id", job.ID),
		logger.String("status", string(job.Status)),
		logger.Bool("enabled", job.Enabled))
	return nil
}

func (s *JobScheduler) register(jobID int64, expr string, fn func()) error {
	if err := schedule.Validate(expr); err != nil {
		return fmt.Errorf("%w: job %d: %w: %v", ErrRegistrationFailed, jobID, ErrInvalidCronExpression, err)
	}
	if !s.registry.Register(jobID, expr, fn) {
		return fmt.Errorf("%w: job %d", ErrRegistrationFailed, jobID)
	}
	return nil
}

// startIfShouldRun re-reads the stored run-state and starts a registered job
// that should run. A job missing from the store stays stopped.
func (s *JobScheduler) startIfShouldRun(ctx context.Context, jobID int64) (bool, error) {
	job, err := s.store.FindJob(ctx, jobID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			s.logger.Warn("job not found in store, leaving it stopped", logger.Int64("job_id", jobID))
			return false, nil
		}
		return false, fmt.Errorf("failed to read run state of job %d: %w", jobID, err)
	}
	if !job.ShouldRun() {
		return false, nil
	}
	return s.registry.Start(jobID), nil
}

// correctRunStateConflicts rewrites stored records whose status and enabled
// flag disagree so that neither is treated as schedulable
func (s *JobScheduler) correctRunStateConflicts(ctx context.Context) int {
	conflicts, err := s.store.FindRunStateConflicts(ctx)
	if err != nil {
		s.logger.Error("failed to query run state conflicts", logger.Error(err))
		return 0
	}

	corrected := 0
	for _, job := range conflicts {
		status, enabled := job.ResolvedRunState()
		if err := s.store.WriteRunState(ctx, job.ID, status, enabled); err != nil {
			s.logger.Error("failed to correct run state",
				logger.Int64("job_id", job.ID),
				logger.Error(err))
			continue
		}
		corrected++
		s.logger.Warn("corrected conflicting run state",
			logger.Int64("job_id", job.ID),
			logger.String("job_name", job.Name),
			logger.String("stored_status", string(job.Status)),
			logger.Bool("stored_enabled", job.Enabled),
			logger.String("status", string(status)),
			logger.Bool("enabled", enabled))
	}
	return corrected
}

func statusFromEntry(entry registry.Entry) JobStatus {
	return JobStatus{
		JobID:          entry.JobID,
		Registered:     true,
		Running:        entry.Running,
		CronExpression: entry.CronExpression,
		LastFired:      entry.LastFired,
	}
}

// jobLocks is a keyed mutex table. Entries are dropped once no caller holds
// or waits on them.
type jobLocks struct {
	mu    sync.Mutex
	locks map[int64]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[int64]*jobLock)}
}

func (l *jobLocks) lock(jobID int64) func() {
	l.mu.Lock()
	jl, ok := l.locks[jobID]
	if !ok {
		jl = &jobLock{}
		l.locks[jobID] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.mu.Lock()
	return func() {
		jl.mu.Unlock()
		l.mu.Lock()
		jl.refs--
		if jl.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}
