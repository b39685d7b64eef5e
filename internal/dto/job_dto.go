package dto

import "time"

// CreateJobRequest represents request to create a job
type CreateJobRequest struct {
	Name           string            `json:"name" binding:"required,max=255"`
	Description    string            `json:"description"`
	CronExpression string            `json:"cron_expression" binding:"required"`
	URL            string            `json:"url" binding:"required,url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers"`
	Body           string            `json:"body"`
	TimeoutSeconds *int              `json:"timeout_seconds" binding:"omitempty,min=5,max=300"`
	RetryCount     *int              `json:"retry_count" binding:"omitempty,min=0,max=10"`
	RetryDelayMS   *int              `json:"retry_delay_ms" binding:"omitempty,min=1000,max=60000"`
	Enabled        bool              `json:"enabled"`
}

// UpdateJobRequest represents a partial job update. Omitted fields are unchanged.
type UpdateJobRequest struct {
	Name           *string           `json:"name" binding:"omitempty,min=1,max=255"`
	Description    *string           `json:"description"`
	CronExpression *string           `json:"cron_expression"`
	URL            *string           `json:"url" binding:"omitempty,url"`
	Method         *string           `json:"method"`
	Headers        map[string]string `json:"headers"`
	Body           *string           `json:"body"`
	TimeoutSeconds *int              `json:"timeout_seconds" binding:"omitempty,min=5,max=300"`
	RetryCount     *int              `json:"retry_count" binding:"omitempty,min=0,max=10"`
	RetryDelayMS   *int              `json:"retry_delay_ms" binding:"omitempty,min=1000,max=60000"`
	Enabled        *bool             `json:"enabled"`
}

// JobRequest is used by routes whose input is only the job_id path param
type JobRequest struct {
	// No body fields - job_id comes from path params
}

// JobResponse represents a job together with its live scheduler state
type JobResponse struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	CronExpression string            `json:"cron_expression"`
	Status         string            `json:"status"`
	Enabled        bool              `json:"enabled"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	RetryCount     int               `json:"retry_count"`
	RetryDelayMS   int               `json:"retry_delay_ms"`
	LastExecution  *time.Time        `json:"last_execution,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Registered     bool              `json:"registered"`
	Running        bool              `json:"running"`
}

// ListJobsResponse represents response for listing jobs
type ListJobsResponse struct {
	Jobs       []JobResponse      `json:"jobs"`
	Pagination PaginationResponse `json:"pagination"`
}

// DeleteJobResponse represents response after deleting a job
type DeleteJobResponse struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

// TriggerJobResponse represents response after a manual trigger
type TriggerJobResponse struct {
	ExecutionID string    `json:"execution_id"`
	JobID       int64     `json:"job_id"`
	TriggerType string    `json:"trigger_type"`
	FiredAt     time.Time `json:"fired_at"`
}

// ExecutionResponse represents one recorded execution
type ExecutionResponse struct {
	ExecutionID string    `json:"execution_id"`
	TriggerType string    `json:"trigger_type"`
	FiredAt     time.Time `json:"fired_at"`
	Dispatched  bool      `json:"dispatched"`
	Error       string    `json:"error,omitempty"`
}

// ListExecutionsResponse represents the recent executions of a job, newest first
type ListExecutionsResponse struct {
	JobID      int64               `json:"job_id"`
	Executions []ExecutionResponse `json:"executions"`
	Pagination PaginationResponse  `json:"pagination"`
}
