package routes

import (
	"net/http"

	"cronkeeper/commons/routes"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/handler"
	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitJobRoutes(
	router *gin.Engine,
	jobHandler *handler.JobHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.CreateJobRequest, dto.JobResponse]{
			Path:        "/jobs",
			Method:      http.MethodPost,
			ServiceFunc: jobHandler.CreateJobService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.ListJobsResponse]{
			Path:        "/jobs",
			Method:      http.MethodGet,
			ServiceFunc: jobHandler.ListJobsService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.JobResponse]{
			Path:        "/jobs/:job_id",
			Method:      http.MethodGet,
			ServiceFunc: jobHandler.GetJobService,
		},
	)

	// PUT and PATCH both apply a partial update
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		routes.RegisterRoute(
			apiV1,
			deps,
			routes.RouteOptions[dto.UpdateJobRequest, dto.JobResponse]{
				Path:        "/jobs/:job_id",
				Method:      method,
				ServiceFunc: jobHandler.UpdateJobService,
			},
		)
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.DeleteJobResponse]{
			Path:        "/jobs/:job_id",
			Method:      http.MethodDelete,
			ServiceFunc: jobHandler.DeleteJobService,
		},
	)

	// POST /api/v1/jobs/:job_id/pause - Stop the timer and persist inactive
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.JobResponse]{
			Path:        "/jobs/:job_id/pause",
			Method:      http.MethodPost,
			ServiceFunc: jobHandler.PauseJobService,
		},
	)

	// POST /api/v1/jobs/:job_id/resume - Start the timer and persist active
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.JobResponse]{
			Path:        "/jobs/:job_id/resume",
			Method:      http.MethodPost,
			ServiceFunc: jobHandler.ResumeJobService,
		},
	)

	// POST /api/v1/jobs/:job_id/trigger - Dispatch once now
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.TriggerJobResponse]{
			Path:        "/jobs/:job_id/trigger",
			Method:      http.MethodPost,
			ServiceFunc: jobHandler.TriggerJobService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.ListExecutionsResponse]{
			Path:        "/jobs/:job_id/executions",
			Method:      http.MethodGet,
			ServiceFunc: jobHandler.ListExecutionsService,
		},
	)
}
