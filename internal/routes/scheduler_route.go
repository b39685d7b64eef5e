package routes

import (
	"net/http"

	"cronkeeper/commons/routes"
	"cronkeeper/internal/dto"
	"cronkeeper/internal/handler"
	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitSchedulerRoutes(
	router *gin.Engine,
	schedulerHandler *handler.SchedulerHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// GET /api/v1/scheduler/jobs - Live registry state
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.SchedulerJobsRequest, dto.SchedulerJobsResponse]{
			Path:        "/scheduler/jobs",
			Method:      http.MethodGet,
			ServiceFunc: schedulerHandler.ListSchedulerJobsService,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.JobRequest, dto.JobStatusResponse]{
			Path:        "/jobs/:job_id/status",
			Method:      http.MethodGet,
			ServiceFunc: schedulerHandler.GetJobStatusService,
		},
	)

	// POST /api/v1/cron/validate - Validate a cron expression
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ValidateCronRequest, dto.ValidateCronResponse]{
			Path:        "/cron/validate",
			Method:      http.MethodPost,
			ServiceFunc: schedulerHandler.ValidateCronService,
		},
	)
}
