package dto

import "time"

// JobStatusResponse represents the live scheduler state of one job
type JobStatusResponse struct {
	JobID          int64      `json:"job_id"`
	Registered     bool       `json:"registered"`
	Running        bool       `json:"running"`
	CronExpression string     `json:"cron_expression,omitempty"`
	LastFired      *time.Time `json:"last_fired,omitempty"`
}

// SchedulerJobsRequest represents request to list registered jobs
type SchedulerJobsRequest struct {
	// No body fields
}

// SchedulerJobsResponse represents every job known to the registry
type SchedulerJobsResponse struct {
	RegisteredCount int                 `json:"registered_count"`
	Jobs            []JobStatusResponse `json:"jobs"`
}

// ValidateCronRequest represents request to validate a cron expression
type ValidateCronRequest struct {
	CronExpression string `json:"cron_expression" binding:"required"`
}

// ValidateCronResponse represents the validation result. NextRuns is filled
// for valid expressions.
type ValidateCronResponse struct {
	CronExpression string      `json:"cron_expression"`
	Valid          bool        `json:"valid"`
	Error          string      `json:"error,omitempty"`
	NextRuns       []time.Time `json:"next_runs,omitempty"`
}
