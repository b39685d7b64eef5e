package config

import (
	"context"
	"fmt"
	"time"

	commonConfig "cronkeeper/commons/config"
	"cronkeeper/commons/routes"
	cache "cronkeeper/internal/cache/iface"
	dispatch "cronkeeper/internal/dispatch/iface"
	logDispatch "cronkeeper/internal/dispatch/log"
	sqsDispatch "cronkeeper/internal/dispatch/sqs"
	"cronkeeper/internal/handler"
	"cronkeeper/internal/logger"
	"cronkeeper/internal/registry"
	"cronkeeper/internal/repository/dynamodb"
	repository "cronkeeper/internal/repository/iface"
	"cronkeeper/internal/repository/sqlite"
	internalRoutes "cronkeeper/internal/routes"
	"cronkeeper/internal/schedule"
	"cronkeeper/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// ProvideJobRepository opens the job store selected by storage.driver
func ProvideJobRepository(lc fx.Lifecycle, cfg *commonConfig.AppConfig, log logger.Logger) (repository.JobRepository, error) {
	ctx := context.Background()

	switch cfg.Storage.Driver {
	case commonConfig.StorageSQLite:
		db, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			BusyTimeout: time.Duration(cfg.SQLite.BusyTimeoutMS) * time.Millisecond,
		}, log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
		return sqlite.NewJobRepository(db, log), nil

	case commonConfig.StorageDynamoDB:
		client, err := commonConfig.ProvideDynamoDBClient(cfg)
		if err != nil {
			return nil, err
		}
		tables := dynamodb.TableConfig{
			JobsTable:     cfg.DynamoDB.JobsTable,
			CountersTable: cfg.DynamoDB.CountersTable,
		}
		if cfg.DynamoDB.CreateTables {
			if err := dynamodb.EnsureTables(ctx, client, tables, log); err != nil {
				return nil, fmt.Errorf("failed to create dynamodb tables: %w", err)
			}
		}
		return dynamodb.NewJobRepository(client, tables, log), nil
	}

	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
}

// ProvideLocation resolves scheduler.timezone, falling back to UTC
func ProvideLocation(cfg *commonConfig.AppConfig, log logger.Logger) *time.Location {
	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		log.Warn("unknown scheduler timezone, using UTC",
			logger.String("timezone", cfg.Scheduler.Timezone),
			logger.Error(err))
		return time.UTC
	}
	return loc
}

// ProvideTimer provides the process-wide cron timer
func ProvideTimer(location *time.Location, log logger.Logger) *schedule.CronTimer {
	return schedule.NewCronTimer(location, log)
}

// ProvideRegistry provides the job registry backed by the cron timer
func ProvideRegistry(timer *schedule.CronTimer, log logger.Logger) *registry.Registry {
	return registry.New(timer, log)
}

// ProvideExecutionHistory provides the per-job execution history
func ProvideExecutionHistory(c cache.Cache, cfg *commonConfig.AppConfig, log logger.Logger) *service.ExecutionHistory {
	return service.NewExecutionHistory(c, cfg.Scheduler.HistoryLimit, log)
}

// ProvideDispatcher sends executions to SQS when enabled and logs them otherwise
func ProvideDispatcher(cfg *commonConfig.AppConfig, log logger.Logger) (dispatch.Dispatcher, error) {
	if !cfg.SQS.Enabled {
		log.Info("sqs dispatch disabled, executions are only logged")
		return logDispatch.NewLogDispatcher(log), nil
	}

	client, err := commonConfig.ProvideSQSClient(cfg)
	if err != nil {
		return nil, err
	}
	return sqsDispatch.NewSQSDispatcher(client, sqsDispatch.DispatcherConfig{
		QueueURL: cfg.SQS.QueueURL,
	}, log)
}

// ProvideJobScheduler provides the scheduler service
func ProvideJobScheduler(
	reg *registry.Registry,
	repo repository.JobRepository,
	dispatcher dispatch.Dispatcher,
	history *service.ExecutionHistory,
	cfg *commonConfig.AppConfig,
	log logger.Logger,
) *service.JobScheduler {
	scheduler := service.NewJobScheduler(reg, repo, dispatcher, history, log)
	scheduler.SetDispatchTimeout(time.Duration(cfg.Scheduler.DispatchTimeoutSeconds) * time.Second)
	return scheduler
}

// ProvideIJobScheduler exposes the scheduler through its interface
func ProvideIJobScheduler(scheduler *service.JobScheduler) service.IJobScheduler {
	return scheduler
}

// ProvideJobService provides the job service
func ProvideJobService(
	repo repository.JobRepository,
	scheduler service.IJobScheduler,
	history *service.ExecutionHistory,
	log logger.Logger,
) service.IJobService {
	return service.NewJobService(repo, scheduler, history, log)
}

func ProvideJobHandler(jobService service.IJobService, scheduler service.IJobScheduler, log logger.Logger) *handler.JobHandler {
	return handler.NewJobHandler(jobService, scheduler, log)
}

func ProvideSchedulerHandler(scheduler service.IJobScheduler, location *time.Location, log logger.Logger) *handler.SchedulerHandler {
	return handler.NewSchedulerHandler(scheduler, location, log)
}

func ProvideHealthHandler(scheduler service.IJobScheduler, timer *schedule.CronTimer, cfg *commonConfig.AppConfig, log logger.Logger) *handler.HealthHandler {
	return handler.NewHealthHandler(log, scheduler, timer, cfg.Server.ServiceName)
}

// ProvideRouteInitializer creates the route initializer for the admin API
func ProvideRouteInitializer(
	healthHandler *handler.HealthHandler,
	jobHandler *handler.JobHandler,
	schedulerHandler *handler.SchedulerHandler,
) func(*gin.Engine, routes.RouteDependencies) {
	return func(router *gin.Engine, deps routes.RouteDependencies) {
		internalRoutes.InitHealthRoutes(router, healthHandler, deps.Logger)
		internalRoutes.InitJobRoutes(router, jobHandler, deps.Logger)
		internalRoutes.InitSchedulerRoutes(router, schedulerHandler, deps.Logger)
	}
}

// ManageSchedulerLifecycle starts the timer and reloads persisted jobs before
// the HTTP server accepts requests, and stops the timer on shutdown
func ManageSchedulerLifecycle(
	lc fx.Lifecycle,
	timer *schedule.CronTimer,
	scheduler service.IJobScheduler,
	log logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting job scheduler")
			timer.Start()

			report, err := scheduler.LoadActiveJobs(ctx)
			if err != nil {
				// the admin API stays up so jobs can still be managed
				log.Error("failed to load active jobs", logger.Error(err))
				return nil
			}
			log.Info("active jobs loaded",
				logger.Int("loaded", report.Loaded),
				logger.Int("failed", report.Failed),
				logger.Int("corrected", report.Corrected))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping job scheduler")
			return timer.Stop(ctx)
		},
	})
}
