package service

import (
	"errors"

	"cronkeeper/internal/repository"
)

var (
	// ErrInvalidCronExpression indicates an expression outside the five-field grammar
	ErrInvalidCronExpression = errors.New("invalid cron expression")
	// ErrRegistrationFailed indicates a job could not be registered with the registry
	ErrRegistrationFailed = errors.New("failed to register job")
	// ErrStartFailed indicates the registry refused to start a job
	ErrStartFailed = errors.New("failed to start job")
	// ErrInvalidJob indicates a job definition failed validation
	ErrInvalidJob = errors.New("invalid job definition")
)

// IsValidationError reports errors caused by caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidCronExpression) || errors.Is(err, ErrInvalidJob)
}

// IsNotFoundError reports a job that does not exist in the store
func IsNotFoundError(err error) bool {
	return repository.IsNotFoundError(err)
}
