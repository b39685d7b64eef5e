package routes

import (
	"cronkeeper/commons/handler"
	"cronkeeper/internal/logger"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	ServiceName string
	Version     string
}

type RouteDependencies struct {
	Logger logger.Logger
}

type RouteOptions[InputDto any, OutputDto any] struct {
	Path        string
	Method      string
	ServiceFunc handler.ServiceFunc[InputDto, OutputDto]
}

var supportedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// NewRouter creates the gin engine with the request id, logging, recovery
// and CORS middlewares and envelope-shaped 404/405 responses
func NewRouter(config RouterConfig, deps RouteDependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true

	log := deps.Logger.With(
		logger.String("service", config.ServiceName),
		logger.String("version", config.Version))

	r.Use(handler.RequestIDMiddleware())
	r.Use(handler.LoggingMiddleware(log))
	r.Use(handler.ErrorHandlingMiddleware(log))
	r.Use(handler.CORSMiddleware())

	r.NoRoute(handler.NoRouteHandler())
	r.NoMethod(handler.NoMethodHandler())

	return r
}

// RegisterRoute mounts a typed service function on group. Unsupported
// methods are logged and skipped.
func RegisterRoute[InputDto any, OutputDto any](
	group gin.IRouter,
	deps RouteDependencies,
	options RouteOptions[InputDto, OutputDto],
) {
	if !supportedMethods[options.Method] {
		deps.Logger.Error("unsupported HTTP method",
			logger.String("method", options.Method),
			logger.String("path", options.Path))
		return
	}

	ginHandler := handler.HandleFunc(handler.HandlerDependencies{Logger: deps.Logger}, options.ServiceFunc)
	group.Handle(options.Method, options.Path, ginHandler)

	deps.Logger.Debug("route registered",
		logger.String("method", options.Method),
		logger.String("path", options.Path))
}

func CreateAPIGroup(router *gin.Engine, version string) *gin.RouterGroup {
	return router.Group("/api/" + version)
}
