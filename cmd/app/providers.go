package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/telemetry-trend/internal/bootstrap"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
	"github.com/yanqian/telemetry-trend/internal/infra/chartstore"
	"github.com/yanqian/telemetry-trend/internal/infra/collector"
	"github.com/yanqian/telemetry-trend/internal/infra/config"
	"github.com/yanqian/telemetry-trend/internal/infra/events"
	"github.com/yanqian/telemetry-trend/internal/infra/forecastcache"
	"github.com/yanqian/telemetry-trend/internal/infra/historydb"
	"github.com/yanqian/telemetry-trend/internal/infra/render"
	"github.com/yanqian/telemetry-trend/pkg/metrics"
)

func provideTrendConfig(cfg *config.Config) (trend.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return trend.Config{}, err
	}
	return trend.Config{
		RefreshInterval:  cfg.Trend.RefreshInterval,
		SessionIdleTTL:   cfg.Trend.SessionIdleTTL,
		MaxSessions:      cfg.Trend.MaxSessions,
		Location:         loc,
		ForecastCacheTTL: cfg.Trend.ForecastCacheTTL,
		ChartWidth:       cfg.Trend.ChartWidth,
		ChartHeight:      cfg.Trend.ChartHeight,
	}, nil
}

func provideCollectorClient(cfg *config.Config) *collector.Client {
	return collector.NewClient(cfg.Collector.BaseURL, cfg.Collector.Timeout)
}

// provideHistoryClient reads history from the collector database when configured and falls back
// to the collector's HTTP API otherwise.
func provideHistoryClient(cfg *config.Config, trendCfg trend.Config, client *collector.Client, logger *slog.Logger) (trend.HistoryClient, func()) {
	noop := func() {}
	if cfg.History.Source != "postgres" {
		return client, noop
	}
	dsn := strings.TrimSpace(cfg.History.Postgres.DSN)
	if dsn == "" {
		logger.Info("history postgres dsn not set, using collector api")
		return client, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using collector api", "error", err)
		return client, noop
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using collector api", "error", err)
		return client, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using collector api", "error", err)
		pool.Close()
		return client, noop
	}
	logger.Info("history postgres source enabled", "window", cfg.History.Window, "limit", cfg.History.Limit)
	return historydb.NewPostgresSource(pool, cfg.History.Window, cfg.History.Limit, trendCfg.Location), pool.Close
}

func provideForecastCache(cfg *config.Config, logger *slog.Logger) (trend.ForecastCache, func()) {
	noop := func() {}
	if !cfg.Cache.Valkey.Enabled {
		return forecastcache.NewMemoryCache(), noop
	}
	opt, err := buildValkeyOptions(cfg.Cache.Valkey.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
		return forecastcache.NewMemoryCache(), noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
		return forecastcache.NewMemoryCache(), noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		client.Close()
		return forecastcache.NewMemoryCache(), noop
	}
	logger.Info("forecast valkey cache enabled", "addr", cfg.Cache.Valkey.Addr)
	return forecastcache.NewValkeyCache(client, cfg.Cache.Valkey.Prefix), client.Close
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideChartStorage(cfg *config.Config, logger *slog.Logger) trend.ChartStorage {
	s3cfg := cfg.Storage.S3
	if !s3cfg.Enabled {
		logger.Info("s3 storage disabled, keeping exported charts in memory")
		return chartstore.NewMemoryStorage()
	}
	store, err := chartstore.NewS3Storage(chartstore.S3Config{
		Endpoint:      s3cfg.Endpoint,
		AccessKey:     s3cfg.AccessKey,
		SecretKey:     s3cfg.SecretKey,
		Bucket:        s3cfg.Bucket,
		Region:        s3cfg.Region,
		PublicBaseURL: s3cfg.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize s3 storage, keeping exported charts in memory", "error", err)
		return chartstore.NewMemoryStorage()
	}
	logger.Info("s3 chart storage enabled", "bucket", s3cfg.Bucket)
	return store
}

func provideEventPublisher(cfg *config.Config, logger *slog.Logger) (trend.EventPublisher, func()) {
	kcfg := cfg.Events.Kafka
	if !kcfg.Enabled || len(kcfg.Brokers) == 0 {
		return events.NewLogPublisher(logger), func() {}
	}
	publisher := events.NewKafkaPublisher(events.NewKafkaWriter(kcfg.Brokers, kcfg.Topic), logger)
	logger.Info("kafka assessment events enabled", "brokers", kcfg.Brokers, "topic", kcfg.Topic)
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close kafka writer", "error", err)
		}
	}
}

func provideRenderer() *render.Renderer {
	return render.New(render.DefaultPalette)
}

func provideDependencies(
	history trend.HistoryClient,
	client *collector.Client,
	cache trend.ForecastCache,
	storage trend.ChartStorage,
	publisher trend.EventPublisher,
	renderer *render.Renderer,
	m *metrics.Metrics,
) trend.Dependencies {
	return trend.Dependencies{
		History:  history,
		Forecast: client,
		Devices:  client,
		Renderer: renderer,
		Cache:    cache,
		Events:   publisher,
		Storage:  storage,
		Recorder: m,
	}
}

func provideSessions(svc trend.Service) bootstrap.Sessions {
	return svc
}
