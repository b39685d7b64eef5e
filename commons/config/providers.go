package config

import (
	"context"
	"fmt"
	"time"

	"cronkeeper/commons/routes"
	"cronkeeper/commons/server"
	cache "cronkeeper/internal/cache/iface"
	memoryCache "cronkeeper/internal/cache/memory"
	redisCache "cronkeeper/internal/cache/redis"
	"cronkeeper/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// ProvideConfig loads the application configuration
func ProvideConfig() (*AppConfig, error) {
	return Load()
}

// ProvideLogger creates and configures the logger for the application
func ProvideLogger(cfg *AppConfig) (logger.Logger, error) {
	return logger.NewZapLogger(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
}

// ProvideFxLogger creates the FX event logger using the application logger
func ProvideFxLogger(log logger.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{
		Logger: log.(*logger.ZapLogger).Logger(),
	}
}

// ProvideRouterConfig provides the router metadata
func ProvideRouterConfig(cfg *AppConfig) routes.RouterConfig {
	return routes.RouterConfig{
		ServiceName: cfg.Server.ServiceName,
		Version:     cfg.Server.Version,
	}
}

// ProvideServerConfig provides the HTTP server settings
func ProvideServerConfig(cfg *AppConfig) server.ServerConfig {
	return server.ServerConfig{
		Port:            cfg.Server.Port,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
	}
}

// ProvideRouteDependencies creates route dependencies
func ProvideRouteDependencies(log logger.Logger) routes.RouteDependencies {
	return routes.RouteDependencies{
		Logger: log,
	}
}

// ProvideRouter creates and configures the Gin router with all routes
func ProvideRouter(
	config routes.RouterConfig,
	deps routes.RouteDependencies,
	routeInitializer func(*gin.Engine, routes.RouteDependencies),
) *gin.Engine {
	router := routes.NewRouter(config, deps)
	routeInitializer(router, deps)
	return router
}

// loadAWSConfig loads the default AWS config. A non-empty endpoint points
// every client at it (LocalStack, DynamoDB Local).
func loadAWSConfig(ctx context.Context, region, endpoint string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(endpoint))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// ProvideDynamoDBClient provides a DynamoDB client
func ProvideDynamoDBClient(cfg *AppConfig) (*awsdynamodb.Client, error) {
	awsCfg, err := loadAWSConfig(context.Background(), cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for dynamodb: %w", err)
	}
	return awsdynamodb.NewFromConfig(awsCfg), nil
}

// ProvideSQSClient provides an SQS client (for LocalStack or AWS)
func ProvideSQSClient(cfg *AppConfig) (*sqs.Client, error) {
	awsCfg, err := loadAWSConfig(context.Background(), cfg.SQS.Region, cfg.SQS.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for sqs: %w", err)
	}
	return sqs.NewFromConfig(awsCfg), nil
}

// ProvideCache provides Redis when enabled and the in-memory cache otherwise.
// The cache is closed on shutdown.
func ProvideCache(lc fx.Lifecycle, cfg *AppConfig, log logger.Logger) (cache.Cache, error) {
	var (
		c   cache.Cache
		err error
	)
	if cfg.Redis.Enabled {
		c, err = redisCache.NewRedisCache(context.Background(), redisCache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
	} else {
		c, err = memoryCache.NewMemoryCache(cfg.Cache.MaxKeys, log)
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}
