// Package log provides a dispatcher that only records fired jobs in the log.
// It is used when no queue is configured.
package log

import (
	"context"

	dispatch "cronkeeper/internal/dispatch/iface"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"
)

type logDispatcher struct {
	logger logger.Logger
}

func NewLogDispatcher(log logger.Logger) dispatch.Dispatcher {
	return &logDispatcher{logger: log.With(logger.String("component", "log_dispatcher"))}
}

func (d *logDispatcher) Dispatch(_ context.Context, req *domain.ExecutionRequest) error {
	d.logger.Info("job execution dispatched",
		logger.Int64("job_id", req.JobID),
		logger.String("job_name", req.JobName),
		logger.String("execution_id", req.ExecutionID),
		logger.String("trigger_type", string(req.TriggerType)),
		logger.String("method", req.Method),
		logger.String("url", req.URL))
	return nil
}
