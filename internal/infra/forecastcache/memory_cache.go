package forecastcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

type entry struct {
	forecast  series.Forecast
	expiresAt time.Time
}

// MemoryCache keeps forecasts in process memory for dev and single-instance deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache constructs a cache backed by process memory.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

// Get implements trend.ForecastCache.
func (c *MemoryCache) Get(_ context.Context, key string) (series.Forecast, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return series.Forecast{}, false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(c.now()) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return series.Forecast{}, false, nil
	}
	return e.forecast, true, nil
}

// Set stores fc with an optional TTL.
func (c *MemoryCache) Set(_ context.Context, key string, fc series.Forecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = c.now().Add(ttl)
	}
	c.entries[key] = entry{forecast: fc, expiresAt: exp}
	return nil
}

var _ trend.ForecastCache = (*MemoryCache)(nil)
