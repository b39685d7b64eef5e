package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by Get for a missing or expired key
var ErrKeyNotFound = errors.New("key not found")

// Cache defines the key/value and list operations the execution history needs
type Cache interface {
	// Basic operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// List operations (recent executions per job)
	RPush(ctx context.Context, key string, values ...interface{}) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	// Close connection
	Close() error
}

// IsKeyNotFound reports whether err is a cache miss
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
