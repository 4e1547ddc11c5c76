package main

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/infra/chartstore"
	"github.com/yanqian/telemetry-trend/internal/infra/collector"
	"github.com/yanqian/telemetry-trend/internal/infra/config"
	"github.com/yanqian/telemetry-trend/internal/infra/events"
	"github.com/yanqian/telemetry-trend/internal/infra/forecastcache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProvideTrendConfigResolvesTimezone(t *testing.T) {
	cfg := &config.Config{Trend: config.TrendConfig{Timezone: "Asia/Singapore", RefreshInterval: 2 * time.Second}}
	got, err := provideTrendConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, "Asia/Singapore", got.Location.String())
	require.Equal(t, 2*time.Second, got.RefreshInterval)

	cfg.Trend.Timezone = "Mars/Olympus"
	_, err = provideTrendConfig(cfg)
	require.Error(t, err)
}

func TestProvidersFallBackToLocalImplementations(t *testing.T) {
	cfg := &config.Config{
		Collector: config.CollectorConfig{BaseURL: "http://collector.local", Timeout: time.Second},
		History:   config.HistoryConfig{Source: "postgres"},
	}
	logger := discardLogger()
	client := provideCollectorClient(cfg)

	trendCfg, err := provideTrendConfig(cfg)
	require.NoError(t, err)
	history, cleanup := provideHistoryClient(cfg, trendCfg, client, logger)
	defer cleanup()
	require.IsType(t, &collector.Client{}, history)

	cache, cleanup2 := provideForecastCache(cfg, logger)
	defer cleanup2()
	require.IsType(t, &forecastcache.MemoryCache{}, cache)

	require.IsType(t, &chartstore.MemoryStorage{}, provideChartStorage(cfg, logger))

	publisher, cleanup3 := provideEventPublisher(cfg, logger)
	defer cleanup3()
	require.IsType(t, &events.LogPublisher{}, publisher)
}
