package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erp/stockledger/internal/application/replenishment"
	"github.com/erp/stockledger/internal/domain/forecast"
)

type forecastEntry struct {
	result    forecast.Result
	expiresAt time.Time
}

type forecastKey struct {
	productID uuid.UUID
	configKey string
}

// InMemoryForecastCache keeps forecasts in process memory.
// Suitable for single-instance deployments and tests.
type InMemoryForecastCache struct {
	mu        sync.RWMutex
	entries   map[forecastKey]forecastEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryForecastCache creates the cache and starts its cleanup loop
func NewInMemoryForecastCache(ttl time.Duration) *InMemoryForecastCache {
	c := &InMemoryForecastCache{
		entries:  make(map[forecastKey]forecastEntry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()
	return c
}

// Get returns a live entry
func (c *InMemoryForecastCache) Get(_ context.Context, productID uuid.UUID, configKey string) (*forecast.Result, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[forecastKey{productID, configKey}]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	result := e.result
	return &result, true, nil
}

// Set stores a copy of result
func (c *InMemoryForecastCache) Set(_ context.Context, productID uuid.UUID, configKey string, result *forecast.Result) error {
	if result == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[forecastKey{productID, configKey}] = forecastEntry{
		result:    *result,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// InvalidateProduct drops every cached forecast of a product
func (c *InMemoryForecastCache) InvalidateProduct(_ context.Context, productID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if k.productID == productID {
			delete(c.entries, k)
		}
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryForecastCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

func (c *InMemoryForecastCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemoryForecastCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Size returns the number of stored entries, expired ones included
func (c *InMemoryForecastCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

var _ replenishment.ForecastCache = (*InMemoryForecastCache)(nil)
