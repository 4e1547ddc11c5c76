package forecastcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

// ValkeyCache shares forecasts between service instances through Valkey.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "trend"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) (series.Forecast, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.entryKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return series.Forecast{}, false, nil
		}
		return series.Forecast{}, false, err
	}
	fc, err := decodeForecast(payload)
	if err != nil {
		return series.Forecast{}, false, err
	}
	return fc, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, key string, fc series.Forecast, ttl time.Duration) error {
	payload, err := encodeForecast(fc)
	if err != nil {
		return err
	}
	builder := c.client.B().Set().Key(c.entryKey(key)).Value(payload)
	var cmd valkey.Completed
	if ex, ok := expiry(ttl); ok {
		cmd = builder.Ex(ex).Build()
	} else {
		cmd = builder.Build()
	}
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) entryKey(key string) string {
	return c.prefix + ":forecast:" + key
}

func encodeForecast(fc series.Forecast) (string, error) {
	payload, err := json.Marshal(fc)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeForecast(payload string) (series.Forecast, error) {
	var fc series.Forecast
	if err := json.Unmarshal([]byte(payload), &fc); err != nil {
		return series.Forecast{}, err
	}
	return fc, nil
}

// expiry maps a TTL to the EX argument. EX has whole-second resolution, so positive TTLs
// below one second become one second; non-positive TTLs mean no expiry.
func expiry(ttl time.Duration) (time.Duration, bool) {
	if ttl <= 0 {
		return 0, false
	}
	if ttl < time.Second {
		return time.Second, true
	}
	return ttl, true
}

var _ trend.ForecastCache = (*ValkeyCache)(nil)
