package handler

import (
	"context"

	"cronkeeper/commons/error_handler"
	"cronkeeper/commons/handler"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/service"
)

// TimerStats reports how many tasks the timer currently has scheduled
type TimerStats interface {
	ActiveEntries() int
}

type HealthHandler struct {
	logger      logger.Logger
	scheduler   service.IJobScheduler
	timer       TimerStats
	serviceName string
}

func NewHealthHandler(log logger.Logger, scheduler service.IJobScheduler, timer TimerStats, serviceName string) *HealthHandler {
	return &HealthHandler{
		logger:      log.With(logger.String("component", "health_handler")),
		scheduler:   scheduler,
		timer:       timer,
		serviceName: serviceName,
	}
}

func (h *HealthHandler) HealthService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.HealthCheckRequest],
) (dto.HealthCheckResponse, *error_handler.ErrorCollection) {
	h.logger.Debug("health check requested")

	return dto.HealthCheckResponse{
		Status:         "healthy",
		Service:        h.serviceName,
		RegisteredJobs: h.scheduler.RegisteredJobsCount(),
		ActiveTimers:   h.timer.ActiveEntries(),
	}, nil
}
