package repository

import (
	"context"

	"cronkeeper/internal/domain"
)

// RunStateStore is the slice of the job store the scheduler depends on
type RunStateStore interface {
	// FindSchedulableJobs returns every job with status active and enabled set.
	// Only ID, Name, CronExpression, Status and Enabled are filled; load the
	// full definition with FindJob.
	FindSchedulableJobs(ctx context.Context) ([]*domain.JobDefinition, error)
	// FindRunStateConflicts returns jobs whose status and enabled flag disagree,
	// filled like FindSchedulableJobs
	FindRunStateConflicts(ctx context.Context) ([]*domain.JobDefinition, error)
	// FindJob returns repository.ErrNotFound when id does not exist
	FindJob(ctx context.Context, id int64) (*domain.JobDefinition, error)
	// WriteRunState writes status and enabled together
	WriteRunState(ctx context.Context, id int64, status domain.JobStatus, enabled bool) error
}

// JobRepository defines operations for persisted job definitions
type JobRepository interface {
	RunStateStore

	// Create assigns job.ID
	Create(ctx context.Context, job *domain.JobDefinition) error
	// Update writes everything except status and enabled
	Update(ctx context.Context, job *domain.JobDefinition) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*domain.JobDefinition, error)
}
