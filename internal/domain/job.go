package domain

import (
	"strings"
	"time"
)

// JobStatus represents the persisted run-state of a job definition
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusInactive JobStatus = "inactive"
	JobStatusPaused   JobStatus = "paused"
	JobStatusError    JobStatus = "error"
)

// Valid reports whether s is one of the known run-states
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusActive, JobStatusInactive, JobStatusPaused, JobStatusError:
		return true
	}
	return false
}

// Defaults and bounds for the outbound call of a job
const (
	DefaultMethod         = "GET"
	DefaultTimeoutSeconds = 30
	MinTimeoutSeconds     = 5
	MaxTimeoutSeconds     = 300
	DefaultRetryCount     = 3
	MaxRetryCount         = 10
	DefaultRetryDelayMS   = 5000
	MinRetryDelayMS       = 1000
	MaxRetryDelayMS       = 60000
)

var allowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// AllowedMethod reports whether method is accepted as a job target method
func AllowedMethod(method string) bool {
	return allowedMethods[strings.ToUpper(method)]
}

// JobDefinition is a persisted job: a cron schedule plus the outbound HTTP call it triggers.
//
// Status and Enabled are redundant for legacy reasons and are always written together.
type JobDefinition struct {
	ID             int64             `json:"id" dynamodbav:"job_id"`
	Name           string            `json:"name" dynamodbav:"name"`
	Description    string            `json:"description,omitempty" dynamodbav:"description,omitempty"`
	CronExpression string            `json:"cron_expression" dynamodbav:"cron_expression"`
	Status         JobStatus         `json:"status" dynamodbav:"status"`
	Enabled        bool              `json:"enabled" dynamodbav:"enabled"`
	URL            string            `json:"url" dynamodbav:"url"`
	Method         string            `json:"method" dynamodbav:"method"`
	Headers        map[string]string `json:"headers,omitempty" dynamodbav:"headers,omitempty"`
	Body           string            `json:"body,omitempty" dynamodbav:"body,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds" dynamodbav:"timeout_seconds"`
	RetryCount     int               `json:"retry_count" dynamodbav:"retry_count"`
	RetryDelayMS   int               `json:"retry_delay_ms" dynamodbav:"retry_delay_ms"`
	LastExecution  *time.Time        `json:"last_execution,omitempty" dynamodbav:"last_execution,omitempty"`
	CreatedAt      time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" dynamodbav:"updated_at"`
}

// ShouldRun is the single authority for whether the job's timer ought to be active
func (j *JobDefinition) ShouldRun() bool {
	return j.Status == JobStatusActive && j.Enabled
}

// HasRunStateConflict reports a stored record whose status and enabled flag disagree
func (j *JobDefinition) HasRunStateConflict() bool {
	return (j.Status == JobStatusActive) != j.Enabled
}

// ResolvedRunState returns the run-state a conflicting record is corrected to.
// Both flags must agree before a job may run, so the enabled flag is cleared and
// an "active" status is downgraded to "inactive". Other statuses are kept.
func (j *JobDefinition) ResolvedRunState() (JobStatus, bool) {
	if !j.HasRunStateConflict() {
		return j.Status, j.Enabled
	}
	if j.Status == JobStatusActive {
		return JobStatusInactive, false
	}
	return j.Status, false
}

// ApplyDefaults fills zero-valued call settings
func (j *JobDefinition) ApplyDefaults() {
	if j.Method == "" {
		j.Method = DefaultMethod
	}
	j.Method = strings.ToUpper(j.Method)
	if j.TimeoutSeconds == 0 {
		j.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if j.RetryDelayMS == 0 {
		j.RetryDelayMS = DefaultRetryDelayMS
	}
	if j.Status == "" {
		j.Status = JobStatusInactive
	}
}

// NewJobDefinition creates a job definition with defaults applied. The job
// starts active only when enabled is requested, keeping both flags in step.
func NewJobDefinition(name, cronExpression, url string, enabled bool) *JobDefinition {
	now := time.Now().UTC()
	job := &JobDefinition{
		Name:           name,
		CronExpression: strings.TrimSpace(cronExpression),
		URL:            url,
		RetryCount:     DefaultRetryCount,
		Status:         JobStatusInactive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if enabled {
		job.Status = JobStatusActive
		job.Enabled = true
	}
	job.ApplyDefaults()
	return job
}
