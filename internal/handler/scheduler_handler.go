package handler

import (
	"context"
	"time"

	"cronkeeper/commons/error_handler"
	"cronkeeper/commons/handler"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/schedule"
	"cronkeeper/internal/service"
)

const nextRunsPreview = 5

type SchedulerHandler struct {
	scheduler service.IJobScheduler
	location  *time.Location
	logger    logger.Logger
}

// NewSchedulerHandler creates the handler for live scheduler state and cron validation
func NewSchedulerHandler(scheduler service.IJobScheduler, location *time.Location, log logger.Logger) *SchedulerHandler {
	if location == nil {
		location = time.UTC
	}
	return &SchedulerHandler{
		scheduler: scheduler,
		location:  location,
		logger:    log.With(logger.String("component", "scheduler_handler")),
	}
}

// ListSchedulerJobsService lists every job known to the registry
func (h *SchedulerHandler) ListSchedulerJobsService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.SchedulerJobsRequest],
) (dto.SchedulerJobsResponse, *error_handler.ErrorCollection) {
	statuses := h.scheduler.ListJobStatuses()

	jobs := make([]dto.JobStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		jobs = append(jobs, toJobStatusResponse(status))
	}

	return dto.SchedulerJobsResponse{
		RegisteredCount: h.scheduler.RegisteredJobsCount(),
		Jobs:            jobs,
	}, nil
}

// GetJobStatusService returns the live state of one job
func (h *SchedulerHandler) GetJobStatusService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.JobStatusResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.JobStatusResponse{}, invalidParam(err)
	}
	return toJobStatusResponse(h.scheduler.JobStatus(jobID)), nil
}

// ValidateCronService validates an expression and previews its next runs
func (h *SchedulerHandler) ValidateCronService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ValidateCronRequest],
) (dto.ValidateCronResponse, *error_handler.ErrorCollection) {
	expr := ioutil.Body.CronExpression
	resp := dto.ValidateCronResponse{CronExpression: expr}

	if !h.scheduler.ValidateCronExpression(expr) {
		if err := schedule.Validate(expr); err != nil {
			resp.Error = err.Error()
		}
		return resp, nil
	}

	runs, err := schedule.NextRuns(expr, time.Now().In(h.location), nextRunsPreview)
	if err != nil {
		resp.Error = err.Error()
		return resp, nil
	}
	resp.Valid = true
	resp.NextRuns = runs
	return resp, nil
}

func toJobStatusResponse(status service.JobStatus) dto.JobStatusResponse {
	return dto.JobStatusResponse{
		JobID:          status.JobID,
		Registered:     status.Registered,
		Running:        status.Running,
		CronExpression: status.CronExpression,
		LastFired:      status.LastFired,
	}
}
