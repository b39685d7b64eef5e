package service

import (
	"context"
	"fmt"
	"strings"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
	repositoryIface "cronkeeper/internal/repository/iface"
)

// JobUpdate carries the fields of a partial job update. Nil fields are left unchanged.
type JobUpdate struct {
	Name           *string
	Description    *string
	CronExpression *string
	URL            *string
	Method         *string
	Headers        map[string]string
	Body           *string
	TimeoutSeconds *int
	RetryCount     *int
	RetryDelayMS   *int
	// Enabled starts or stops the job through the scheduler
	Enabled *bool
}

type IJobService interface {
	Create(ctx context.Context, job *domain.JobDefinition) (*domain.JobDefinition, error)
	Get(ctx context.Context, id int64) (*domain.JobDefinition, error)
	List(ctx context.Context) ([]*domain.JobDefinition, error)
	Update(ctx context.Context, id int64, update JobUpdate) (*domain.JobDefinition, error)
	Delete(ctx context.Context, id int64) error
	Pause(ctx context.Context, id int64) (*domain.JobDefinition, error)
	Resume(ctx context.Context, id int64) (*domain.JobDefinition, error)
	Trigger(ctx context.Context, id int64) (*domain.ExecutionRequest, error)
	Executions(ctx context.Context, id int64, limit int) ([]ExecutionRecord, error)
}

type jobService struct {
	repo      repositoryIface.JobRepository
	scheduler IJobScheduler
	history   *ExecutionHistory
	logger    logger.Logger
}

// NewJobService creates the service behind the admin API
func NewJobService(
	repo repositoryIface.JobRepository,
	scheduler IJobScheduler,
	history *ExecutionHistory,
	log logger.Logger,
) IJobService {
	return &jobService{
		repo:      repo,
		scheduler: scheduler,
		history:   history,
		logger:    log.With(logger.String("component", "job_service")),
	}
}

// Create persists job and registers it. Status and enabled are derived from
// job.Enabled so both flags are written in step.
func (s *jobService) Create(ctx context.Context, job *domain.JobDefinition) (*domain.JobDefinition, error) {
	job.CronExpression = strings.TrimSpace(job.CronExpression)
	job.ApplyDefaults()
	if job.Enabled {
		job.Status = domain.JobStatusActive
	} else {
		job.Status = domain.JobStatusInactive
	}

	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	if err := s.scheduler.ScheduleJob(ctx, job.ID, job.CronExpression, s.scheduler.JobCallback(job)); err != nil {
		s.logger.Error("failed to schedule created job, removing it",
			logger.Int64("job_id", job.ID),
			logger.Error(err))
		if derr := s.repo.Delete(ctx, job.ID); derr != nil {
			s.logger.Error("failed to remove unschedulable job",
				logger.Int64("job_id", job.ID),
				logger.Error(derr))
		}
		return nil, err
	}

	s.logger.Info("job created",
		logger.Int64("job_id", job.ID),
		logger.String("job_name", job.Name),
		logger.Bool("enabled", job.Enabled))
	return job, nil
}

func (s *jobService) Get(ctx context.Context, id int64) (*domain.JobDefinition, error) {
	job, err := s.repo.FindJob(ctx, id)
	if err != nil {
		return nil, err
	}
	s.withLastExecution(ctx, job)
	return job, nil
}

func (s *jobService) List(ctx context.Context) ([]*domain.JobDefinition, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	for _, job := range jobs {
		s.withLastExecution(ctx, job)
	}
	return jobs, nil
}

// Update persists the changed definition, swaps the live task to it and, when
// requested, starts or stops the job
func (s *jobService) Update(ctx context.Context, id int64, update JobUpdate) (*domain.JobDefinition, error) {
	job, err := s.repo.FindJob(ctx, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(job, update)
	if err := validateJob(job); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update job %d: %w", id, err)
	}

	callback := s.scheduler.JobCallback(job)
	if s.scheduler.JobStatus(id).Registered {
		err = s.scheduler.RescheduleJob(ctx, id, job.CronExpression, callback)
	} else {
		err = s.scheduler.ScheduleJob(ctx, id, job.CronExpression, callback)
	}
	if err != nil {
		return nil, err
	}

	if update.Enabled != nil && *update.Enabled != job.ShouldRun() {
		if *update.Enabled {
			err = s.scheduler.StartJob(ctx, id)
		} else {
			err = s.scheduler.StopJob(ctx, id)
		}
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("job updated", logger.Int64("job_id", id))
	return s.Get(ctx, id)
}

// Delete unschedules the job, then removes it from the store
func (s *jobService) Delete(ctx context.Context, id int64) error {
	if err := s.scheduler.UnscheduleJob(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.history.Clear(ctx, id); err != nil {
		s.logger.Warn("failed to clear execution history",
			logger.Int64("job_id", id),
			logger.Error(err))
	}

	s.logger.Info("job deleted", logger.Int64("job_id", id))
	return nil
}

func (s *jobService) Pause(ctx context.Context, id int64) (*domain.JobDefinition, error) {
	if err := s.scheduler.StopJob(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *jobService) Resume(ctx context.Context, id int64) (*domain.JobDefinition, error) {
	if err := s.scheduler.StartJob(ctx, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *jobService) Trigger(ctx context.Context, id int64) (*domain.ExecutionRequest, error) {
	return s.scheduler.TriggerJob(ctx, id)
}

func (s *jobService) Executions(ctx context.Context, id int64, limit int) ([]ExecutionRecord, error) {
	if _, err := s.repo.FindJob(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.history.Recent(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read executions of job %d: %w", id, err)
	}
	return records, nil
}

// withLastExecution fills LastExecution from the execution history when it is newer
func (s *jobService) withLastExecution(ctx context.Context, job *domain.JobDefinition) {
	last, err := s.history.LastExecution(ctx, job.ID)
	if err != nil {
		s.logger.Warn("failed to read last execution",
			logger.Int64("job_id", job.ID),
			logger.Error(err))
		return
	}
	if last != nil && (job.LastExecution == nil || last.After(*job.LastExecution)) {
		job.LastExecution = last
	}
}

func applyUpdate(job *domain.JobDefinition, update JobUpdate) {
	if update.Name != nil {
		job.Name = *update.Name
	}
	if update.Description != nil {
		job.Description = *update.Description
	}
	if update.CronExpression != nil {
		job.CronExpression = strings.TrimSpace(*update.CronExpression)
	}
	if update.URL != nil {
		job.URL = *update.URL
	}
	if update.Method != nil {
		job.Method = strings.ToUpper(*update.Method)
	}
	if update.Headers != nil {
		job.Headers = update.Headers
	}
	if update.Body != nil {
		job.Body = *update.Body
	}
	if update.TimeoutSeconds != nil {
		job.TimeoutSeconds = *update.TimeoutSeconds
	}
	if update.RetryCount != nil {
		job.RetryCount = *update.RetryCount
	}
	if update.RetryDelayMS != nil {
		job.RetryDelayMS = *update.RetryDelayMS
	}
}
