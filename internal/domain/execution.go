package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType records what caused an execution
type TriggerType string

const (
	TriggerScheduled TriggerType = "scheduled"
	TriggerManual    TriggerType = "manual"
)

// ExecutionRequest is handed to the dispatcher each time a job fires.
// It snapshots the target call so later edits to the job do not affect it.
type ExecutionRequest struct {
	ExecutionID    string            `json:"execution_id"`
	JobID          int64             `json:"job_id"`
	JobName        string            `json:"job_name"`
	TriggerType    TriggerType       `json:"trigger_type"`
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers,omitempty"`
	Body           string            `json:"body,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	RetryCount     int               `json:"retry_count"`
	RetryDelayMS   int               `json:"retry_delay_ms"`
	FiredAt        int64             `json:"fired_at"`
}

// NewExecutionRequest builds the request for one execution of job
func NewExecutionRequest(job *JobDefinition, trigger TriggerType, firedAt time.Time) *ExecutionRequest {
	var headers map[string]string
	if len(job.Headers) > 0 {
		headers = make(map[string]string, len(job.Headers))
		for k, v := range job.Headers {
			headers[k] = v
		}
	}
	return &ExecutionRequest{
		ExecutionID:    generateExecutionID(),
		JobID:          job.ID,
		JobName:        job.Name,
		TriggerType:    trigger,
		URL:            job.URL,
		Method:         job.Method,
		Headers:        headers,
		Body:           job.Body,
		TimeoutSeconds: job.TimeoutSeconds,
		RetryCount:     job.RetryCount,
		RetryDelayMS:   job.RetryDelayMS,
		FiredAt:        firedAt.UnixMilli(),
	}
}

func generateExecutionID() string {
	return uuid.New().String()
}
