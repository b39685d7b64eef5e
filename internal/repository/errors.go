package repository

import "errors"

// ErrNotFound indicates that the requested job does not exist in the store
var ErrNotFound = errors.New("job not found")

// IsNotFoundError checks if an error indicates a job was not found
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
