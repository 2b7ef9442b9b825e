package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
)

const defaultForecastKeyPrefix = "stockledger:forecast:"

// RedisForecastCache stores forecast results in Redis so every instance
// shares them until the TTL runs out
type RedisForecastCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisForecastCache creates a cache on an existing client
func NewRedisForecastCache(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisForecastCache {
	if keyPrefix == "" {
		keyPrefix = defaultForecastKeyPrefix
	}
	return &RedisForecastCache{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (c *RedisForecastCache) key(productID uuid.UUID, configKey string) string {
	return c.keyPrefix + productID.String() + ":" + configKey
}

// Get returns the cached result, reporting a miss as false
func (c *RedisForecastCache) Get(ctx context.Context, productID uuid.UUID, configKey string) (*forecast.Result, bool, error) {
	data, err := c.client.Get(ctx, c.key(productID, configKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read forecast from cache: %w", err)
	}

	var result forecast.Result
	if err := json.Unmarshal(data, &result); err != nil {
		// a value we cannot decode is treated as a miss and overwritten later
		return nil, false, nil
	}
	return &result, true, nil
}

// Set stores a result for the cache TTL
func (c *RedisForecastCache) Set(ctx context.Context, productID uuid.UUID, configKey string, result *forecast.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode forecast: %w", err)
	}
	if err := c.client.Set(ctx, c.key(productID, configKey), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write forecast to cache: %w", err)
	}
	return nil
}

// InvalidateProduct drops every cached forecast of a product
func (c *RedisForecastCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	pattern := c.keyPrefix + productID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan forecast keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the Redis client
func (c *RedisForecastCache) Close() error {
	return c.client.Close()
}

var _ replenishment.ForecastCache = (*RedisForecastCache)(nil)
