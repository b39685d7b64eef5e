package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	cache "cronkeeper/internal/cache/iface"
	"cronkeeper/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Options configures the Redis connection
type Options struct {
	Addr     string
	Password string
	DB       int
}

type redisCache struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping
func NewRedisCache(ctx context.Context, opts Options, log logger.Logger) (cache.Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("connected to Redis successfully", logger.String("addr", opts.Addr))

	return &redisCache{
		client: client,
		logger: log.With(logger.String("component", "redis_cache")),
	}, nil
}

// Set stores a value with optional TTL
func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		r.logger.Error("failed to set key", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Get retrieves a value by key
func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", cache.ErrKeyNotFound, key)
	}
	if err != nil {
		r.logger.Error("failed to get key", logger.String("key", key), logger.Error(err))
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.logger.Error("failed to delete key", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// RPush appends values to a list
func (r *redisCache) RPush(ctx context.Context, key string, values ...interface{}) error {
	if err := r.client.RPush(ctx, key, values...).Err(); err != nil {
		r.logger.Error("failed to rpush", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	return nil
}

// LRange returns a range of elements from a list
func (r *redisCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		r.logger.Error("failed to lrange", logger.String("key", key), logger.Error(err))
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}
	return vals, nil
}

// LTrim keeps only the elements between start and stop
func (r *redisCache) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := r.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		r.logger.Error("failed to ltrim", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("redis ltrim failed: %w", err)
	}
	return nil
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
