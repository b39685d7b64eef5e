package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrEmptyExpression is returned for blank cron expressions
var ErrEmptyExpression = errors.New("cron expression is empty")

// parser accepts the standard five-field grammar only: minute, hour,
// day-of-month, month, day-of-week. Seconds and descriptors are rejected.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse validates expr and returns its schedule
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyExpression
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Validate returns an error describing why expr is not a valid five-field cron expression
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// IsValid reports whether expr is a valid five-field cron expression
func IsValid(expr string) bool {
	return Validate(expr) == nil
}

// NextRuns returns the next n activation times of expr after from, in from's location
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	next := from
	for i := 0; i < n; i++ {
		next = sched.Next(next)
		if next.IsZero() {
			break
		}
		runs = append(runs, next)
	}
	return runs, nil
}
