package main

import (
	"cronkeeper/commons/config"
	"cronkeeper/commons/server"
	internalConfig "cronkeeper/internal/config"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		fx.WithLogger(config.ProvideFxLogger),
		fx.Provide(
			config.ProvideConfig,
			config.ProvideLogger,
			config.ProvideRouteDependencies,
			config.ProvideCache,
			config.ProvideRouterConfig,
			config.ProvideServerConfig,
			internalConfig.ProvideJobRepository,
			internalConfig.ProvideLocation,
			internalConfig.ProvideTimer,
			internalConfig.ProvideRegistry,
			internalConfig.ProvideExecutionHistory,
			internalConfig.ProvideDispatcher,
			internalConfig.ProvideJobScheduler,
			internalConfig.ProvideIJobScheduler,
			internalConfig.ProvideJobService,
			internalConfig.ProvideJobHandler,
			internalConfig.ProvideSchedulerHandler,
			internalConfig.ProvideHealthHandler,
			internalConfig.ProvideRouteInitializer,
			config.ProvideRouter,
			server.NewHTTPServer,
		),
		// scheduler hooks run before the server starts listening
		fx.Invoke(internalConfig.ManageSchedulerLifecycle),
		fx.Invoke(func(*server.HTTPServer) {}),
	).Run()
}
