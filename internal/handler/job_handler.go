package handler

import (
	"context"
	"time"

	"cronkeeper/commons/error_handler"
	"cronkeeper/commons/handler"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/service"
)

const (
	defaultExecutionsLimit = 20
	maxExecutionsLimit     = 100
)

type JobHandler struct {
	jobService service.IJobService
	scheduler  service.IJobScheduler
	logger     logger.Logger
}

// NewJobHandler creates the handler for job definitions and their run-state
func NewJobHandler(jobService service.IJobService, scheduler service.IJobScheduler, log logger.Logger) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		scheduler:  scheduler,
		logger:     log.With(logger.String("component", "job_handler")),
	}
}

// CreateJobService persists a job and registers it with the scheduler
func (h *JobHandler) CreateJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.CreateJobRequest],
) (dto.JobResponse, *error_handler.ErrorCollection) {
	req := ioutil.Body
	now := time.Now().UTC()

	job := &domain.JobDefinition{
		Name:           req.Name,
		Description:    req.Description,
		CronExpression: req.CronExpression,
		Enabled:        req.Enabled,
		URL:            req.URL,
		Method:         req.Method,
		Headers:        req.Headers,
		Body:           req.Body,
		RetryCount:     domain.DefaultRetryCount,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.TimeoutSeconds != nil {
		job.TimeoutSeconds = *req.TimeoutSeconds
	}
	if req.RetryCount != nil {
		job.RetryCount = *req.RetryCount
	}
	if req.RetryDelayMS != nil {
		job.RetryDelayMS = *req.RetryDelayMS
	}

	created, err := h.jobService.Create(ctx, job)
	if err != nil {
		return dto.JobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "create job", 0)
	}

	return h.toJobResponse(created), nil
}

func (h *JobHandler) GetJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.JobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.JobResponse{}, invalidParam(err)
	}

	job, err := h.jobService.Get(ctx, jobID)
	if err != nil {
		return dto.JobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "get job", jobID)
	}

	return h.toJobResponse(job), nil
}

func (h *JobHandler) ListJobsService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.ListJobsResponse, *error_handler.ErrorCollection) {
	jobs, err := h.jobService.List(ctx)
	if err != nil {
		return dto.ListJobsResponse{}, errorResponse(h.logger.WithContext(ctx), err, "list jobs", 0)
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobResponse, 0, len(jobs))}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, h.toJobResponse(job))
	}
	resp.Pagination.Count = len(resp.Jobs)

	return resp, nil
}

// UpdateJobService applies a partial update and reschedules the job
func (h *JobHandler) UpdateJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.UpdateJobRequest],
) (dto.JobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.JobResponse{}, invalidParam(err)
	}

	req := ioutil.Body
	job, err := h.jobService.Update(ctx, jobID, service.JobUpdate{
		Name:           req.Name,
		Description:    req.Description,
		CronExpression: req.CronExpression,
		URL:            req.URL,
		Method:         req.Method,
		Headers:        req.Headers,
		Body:           req.Body,
		TimeoutSeconds: req.TimeoutSeconds,
		RetryCount:     req.RetryCount,
		RetryDelayMS:   req.RetryDelayMS,
		Enabled:        req.Enabled,
	})
	if err != nil {
		return dto.JobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "update job", jobID)
	}

	return h.toJobResponse(job), nil
}

func (h *JobHandler) DeleteJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.DeleteJobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.DeleteJobResponse{}, invalidParam(err)
	}

	if err := h.jobService.Delete(ctx, jobID); err != nil {
		return dto.DeleteJobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "delete job", jobID)
	}

	return dto.DeleteJobResponse{ID: jobID, Deleted: true}, nil
}

// PauseJobService stops the job's timer and persists inactive/disabled
func (h *JobHandler) PauseJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.JobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.JobResponse{}, invalidParam(err)
	}

	job, err := h.jobService.Pause(ctx, jobID)
	if err != nil {
		return dto.JobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "pause job", jobID)
	}

	return h.toJobResponse(job), nil
}

// ResumeJobService starts the job's timer and persists active/enabled
func (h *JobHandler) ResumeJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.JobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.JobResponse{}, invalidParam(err)
	}

	job, err := h.jobService.Resume(ctx, jobID)
	if err != nil {
		return dto.JobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "resume job", jobID)
	}

	return h.toJobResponse(job), nil
}

// TriggerJobService dispatches the job once outside its schedule
func (h *JobHandler) TriggerJobService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.TriggerJobResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.TriggerJobResponse{}, invalidParam(err)
	}

	req, err := h.jobService.Trigger(ctx, jobID)
	if err != nil {
		return dto.TriggerJobResponse{}, errorResponse(h.logger.WithContext(ctx), err, "trigger job", jobID)
	}

	return dto.TriggerJobResponse{
		ExecutionID: req.ExecutionID,
		JobID:       req.JobID,
		TriggerType: string(req.TriggerType),
		FiredAt:     time.UnixMilli(req.FiredAt).UTC(),
	}, nil
}

// ListExecutionsService returns the most recent executions, newest first
func (h *JobHandler) ListExecutionsService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.JobRequest],
) (dto.ListExecutionsResponse, *error_handler.ErrorCollection) {
	jobID, err := ioutil.PathInt64("job_id")
	if err != nil {
		return dto.ListExecutionsResponse{}, invalidParam(err)
	}

	limit, err := ioutil.QueryInt("limit", defaultExecutionsLimit)
	if err != nil {
		return dto.ListExecutionsResponse{}, invalidParam(err)
	}
	if limit <= 0 || limit > maxExecutionsLimit {
		limit = defaultExecutionsLimit
	}

	records, err := h.jobService.Executions(ctx, jobID, limit)
	if err != nil {
		return dto.ListExecutionsResponse{}, errorResponse(h.logger.WithContext(ctx), err, "list executions", jobID)
	}

	resp := dto.ListExecutionsResponse{
		JobID:      jobID,
		Executions: make([]dto.ExecutionResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Executions = append(resp.Executions, dto.ExecutionResponse{
			ExecutionID: rec.ExecutionID,
			TriggerType: string(rec.TriggerType),
			FiredAt:     rec.FiredAt,
			Dispatched:  rec.Dispatched,
			Error:       rec.Error,
		})
	}
	resp.Pagination.Count = len(resp.Executions)
	resp.Pagination.Limit = limit

	return resp, nil
}

func (h *JobHandler) toJobResponse(job *domain.JobDefinition) dto.JobResponse {
	status := h.scheduler.JobStatus(job.ID)
	return dto.JobResponse{
		ID:             job.ID,
		Name:           job.Name,
		Description:    job.Description,
		CronExpression: job.CronExpression,
		Status:         string(job.Status),
		Enabled:        job.Enabled,
		URL:            job.URL,
		Method:         job.Method,
		Headers:        job.Headers,
		Body:           job.Body,
		TimeoutSeconds: job.TimeoutSeconds,
		RetryCount:     job.RetryCount,
		RetryDelayMS:   job.RetryDelayMS,
		LastExecution:  job.LastExecution,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		Registered:     status.Registered,
		Running:        status.Running,
	}
}
