package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/infrastructure/config"
)

// ForecastStore is a forecast cache the process owns and must close
type ForecastStore interface {
	replenishment.ForecastCache
	io.Closer
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// ForecastCacheFactory picks a forecast cache based on configuration
type ForecastCacheFactory struct {
	redisConfig           config.RedisConfig
	ttl                   time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ForecastCacheFactoryOption is a functional option for configuring the factory
type ForecastCacheFactoryOption func(*ForecastCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ForecastCacheFactoryOption {
	return func(f *ForecastCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to
// the in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) ForecastCacheFactoryOption {
	return func(f *ForecastCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewForecastCacheFactory creates a new factory
func NewForecastCacheFactory(cfg config.RedisConfig, ttl time.Duration, opts ...ForecastCacheFactoryOption) *ForecastCacheFactory {
	f := &ForecastCacheFactory{
		redisConfig:           cfg,
		ttl:                   ttl,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisCache connects to Redis and returns a cache on that client
func (f *ForecastCacheFactory) CreateRedisCache(ctx context.Context) (*RedisForecastCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisForecastCache(client, "", f.ttl), nil
}

// CreateStore returns a Redis cache, or an in-memory one when Redis is
// unreachable and fallback is allowed
func (f *ForecastCacheFactory) CreateStore(ctx context.Context) (ForecastStore, error) {
	store, err := f.CreateRedisCache(ctx)
	if err == nil {
		f.logger.Info("using Redis forecast cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for forecast cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory forecast cache",
		zap.Error(err))
	return NewInMemoryForecastCache(f.ttl), nil
}
