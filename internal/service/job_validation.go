package service

import (
	"fmt"
	"net/url"
	"strings"

	"cronkeeper/internal/domain"
	"cronkeeper/internal/schedule"
)

const maxJobNameLength = 255

// validateJob checks a definition before it is persisted
func validateJob(job *domain.JobDefinition) error {
	if strings.TrimSpace(job.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidJob)
	}
	if len(job.Name) > maxJobNameLength {
		return fmt.Errorf("%w: name must be at most %d characters", ErrInvalidJob, maxJobNameLength)
	}
	if err := schedule.Validate(job.CronExpression); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCronExpression, err)
	}

	target, err := url.Parse(job.URL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http or https url", ErrInvalidJob)
	}
	if !domain.AllowedMethod(job.Method) {
		return fmt.Errorf("%w: method %q is not supported", ErrInvalidJob, job.Method)
	}

	if job.TimeoutSeconds < domain.MinTimeoutSeconds || job.TimeoutSeconds > domain.MaxTimeoutSeconds {
		return fmt.Errorf("%w: timeout_seconds must be between %d and %d",
			ErrInvalidJob, domain.MinTimeoutSeconds, domain.MaxTimeoutSeconds)
	}
	if job.RetryCount < 0 || job.RetryCount > domain.MaxRetryCount {
		return fmt.Errorf("%w: retry_count must be between 0 and %d", ErrInvalidJob, domain.MaxRetryCount)
	}
	if job.RetryDelayMS < domain.MinRetryDelayMS || job.RetryDelayMS > domain.MaxRetryDelayMS {
		return fmt.Errorf("%w: retry_delay_ms must be between %d and %d",
			ErrInvalidJob, domain.MinRetryDelayMS, domain.MaxRetryDelayMS)
	}
	if !job.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, job.Status)
	}
	return nil
}
