package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	cache "cronkeeper/internal/cache/iface"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
)

// DefaultHistoryLimit is the number of executions kept per job
const DefaultHistoryLimit = 50

// ExecutionRecord is one entry of a job's execution history
type ExecutionRecord struct {
	ExecutionID string             `json:"execution_id"`
	JobID       int64              `json:"job_id"`
	TriggerType domain.TriggerType `json:"trigger_type"`
	FiredAt     time.Time          `json:"fired_at"`
	Dispatched  bool               `json:"dispatched"`
	Error       string             `json:"error,omitempty"`
}

// ExecutionHistory keeps the most recent executions of each job in the cache
type ExecutionHistory struct {
	cache  cache.Cache
	limit  int64
	logger logger.Logger
}

func NewExecutionHistory(c cache.Cache, limit int, log logger.Logger) *ExecutionHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ExecutionHistory{
		cache:  c,
		limit:  int64(limit),
		logger: log.With(logger.String("component", "execution_history")),
	}
}

func executionsKey(jobID int64) string {
	return fmt.Sprintf("cronkeeper:jobs:%d:executions", jobID)
}

func lastExecutionKey(jobID int64) string {
	return fmt.Sprintf("cronkeeper:jobs:%d:last_execution", jobID)
}

// Record appends the outcome of dispatching req and trims the list to the limit
func (h *ExecutionHistory) Record(ctx context.Context, req *domain.ExecutionRequest, dispatchErr error) error {
	rec := ExecutionRecord{
		ExecutionID: req.ExecutionID,
		JobID:       req.JobID,
		TriggerType: req.TriggerType,
		FiredAt:     time.UnixMilli(req.FiredAt).UTC(),
		Dispatched:  dispatchErr == nil,
	}
	if dispatchErr != nil {
		rec.Error = dispatchErr.Error()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal execution record: %w", err)
	}

	key := executionsKey(req.JobID)
	if err := h.cache.RPush(ctx, key, string(data)); err != nil {
		return err
	}
	if err := h.cache.LTrim(ctx, key, -h.limit, -1); err != nil {
		return err
	}
	return h.cache.Set(ctx, lastExecutionKey(req.JobID), rec.FiredAt.Format(time.RFC3339Nano), 0)
}

// Recent returns up to n records for jobID, newest first
func (h *ExecutionHistory) Recent(ctx context.Context, jobID int64, n int) ([]ExecutionRecord, error) {
	if n <= 0 || int64(n) > h.limit {
		n = int(h.limit)
	}

	raw, err := h.cache.LRange(ctx, executionsKey(jobID), -int64(n), -1)
	if err != nil {
		return nil, err
	}

	records := make([]ExecutionRecord, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var rec ExecutionRecord
		if err := json.Unmarshal([]byte(raw[i]), &rec); err != nil {
			h.logger.Warn("skipping unreadable execution record",
				logger.Int64("job_id", jobID),
				logger.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// LastExecution returns when jobID last executed, or nil when it never has
func (h *ExecutionHistory) LastExecution(ctx context.Context, jobID int64) (*time.Time, error) {
	val, err := h.cache.Get(ctx, lastExecutionKey(jobID))
	if err != nil {
		if cache.IsKeyNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last execution of job %d: %w", jobID, err)
	}
	return &t, nil
}

// Clear drops all history of jobID
func (h *ExecutionHistory) Clear(ctx context.Context, jobID int64) error {
	if err := h.cache.Delete(ctx, executionsKey(jobID)); err != nil {
		return err
	}
	return h.cache.Delete(ctx, lastExecutionKey(jobID))
}
