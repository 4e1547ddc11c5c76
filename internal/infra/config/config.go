package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Collector CollectorConfig `yaml:"collector"`
	Trend     TrendConfig     `yaml:"trend"`
	History   HistoryConfig   `yaml:"history"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	Retry          RetryConfig     `yaml:"retry"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// RetryConfig configures best-effort retries of POST routes whose path ends with one of
// PathSuffixes.
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	BaseBackoff  time.Duration `yaml:"baseBackoff"`
	PathSuffixes []string      `yaml:"pathSuffixes"`
}

// CollectorConfig points at the telemetry collector backend.
type CollectorConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// TrendConfig tunes view sessions.
type TrendConfig struct {
	RefreshInterval  time.Duration `yaml:"refreshInterval"`
	SessionIdleTTL   time.Duration `yaml:"sessionIdleTtl"`
	ReapInterval     time.Duration `yaml:"reapInterval"`
	MaxSessions      int           `yaml:"maxSessions"`
	Timezone         string        `yaml:"timezone"`
	ForecastCacheTTL time.Duration `yaml:"forecastCacheTtl"`
	ChartWidth       int           `yaml:"chartWidth"`
	ChartHeight      int           `yaml:"chartHeight"`
}

// HistoryConfig selects where history is read from. Source is "collector" or "postgres".
type HistoryConfig struct {
	Source   string         `yaml:"source"`
	Window   time.Duration  `yaml:"window"`
	Limit    int            `yaml:"limit"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// CacheConfig configures the forecast cache.
type CacheConfig struct {
	Valkey ValkeyConfig `yaml:"valkey"`
}

// ValkeyConfig contains connection information for cache storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// StorageConfig configures chart export storage.
type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config holds S3-compatible (R2, MinIO) credentials.
type S3Config struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	PublicBaseURL string `yaml:"publicBaseUrl"`
}

// EventsConfig configures assessment event publishing.
type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig lists the brokers and topic for assessment events.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_RETRY_ENABLED"); v != "" {
		cfg.HTTP.Retry.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RETRY_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Retry.MaxAttempts = parsed
		}
	}
	if v := os.Getenv("COLLECTOR_BASE_URL"); v != "" {
		cfg.Collector.BaseURL = v
	}
	if v := os.Getenv("COLLECTOR_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Collector.Timeout = parsed
		}
	}
	if v := os.Getenv("TREND_REFRESH_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Trend.RefreshInterval = parsed
		}
	}
	if v := os.Getenv("TREND_SESSION_IDLE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Trend.SessionIdleTTL = parsed
		}
	}
	if v := os.Getenv("TREND_MAX_SESSIONS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Trend.MaxSessions = parsed
		}
	}
	if v := os.Getenv("TREND_TIMEZONE"); v != "" {
		cfg.Trend.Timezone = v
	}
	if v := os.Getenv("TREND_FORECAST_CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Trend.ForecastCacheTTL = parsed
		}
	}
	if v := os.Getenv("HISTORY_SOURCE"); v != "" {
		cfg.History.Source = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Cache.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Cache.Valkey.Addr = v
	}
	if v := os.Getenv("S3_ENABLED"); v != "" {
		cfg.Storage.S3.Enabled = parseBool(v)
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.Storage.S3.SecretKey = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("S3_PUBLIC_BASE_URL"); v != "" {
		cfg.Storage.S3.PublicBaseURL = v
	}
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.Events.Kafka.Enabled = parseBool(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		cfg.Events.Kafka.Topic = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				Burst:             60,
			},
			Retry: RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				BaseBackoff:  150 * time.Millisecond,
				PathSuffixes: []string{"/forecast"},
			},
		},
		Collector: CollectorConfig{
			BaseURL: "http://localhost:8081",
			Timeout: 10 * time.Second,
		},
		Trend: TrendConfig{
			RefreshInterval:  time.Second,
			SessionIdleTTL:   5 * time.Minute,
			ReapInterval:     30 * time.Second,
			MaxSessions:      256,
			Timezone:         "Local",
			ForecastCacheTTL: time.Minute,
			ChartWidth:       880,
			ChartHeight:      360,
		},
		History: HistoryConfig{
			Source: "collector",
			Window: 10 * time.Minute,
			Limit:  600,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Cache: CacheConfig{
			Valkey: ValkeyConfig{Prefix: "trend"},
		},
		Storage: StorageConfig{
			S3: S3Config{Bucket: "trend-charts", Region: "auto"},
		},
		Events: EventsConfig{
			Kafka: KafkaConfig{Topic: "trend.assessments"},
		},
	}
}

// Location resolves the configured timezone for zoneless timestamps.
func (c *Config) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Trend.Timezone) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	return time.LoadLocation(c.Trend.Timezone)
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if strings.TrimSpace(c.Collector.BaseURL) == "" {
		return errors.New("collector.baseUrl cannot be empty")
	}
	if c.Collector.Timeout <= 0 {
		return errors.New("collector.timeout must be positive")
	}
	if c.Trend.RefreshInterval <= 0 {
		return errors.New("trend.refreshInterval must be positive")
	}
	if c.Trend.SessionIdleTTL <= 0 {
		return errors.New("trend.sessionIdleTtl must be positive")
	}
	if c.Trend.ReapInterval <= 0 {
		return errors.New("trend.reapInterval must be positive")
	}
	if c.Trend.MaxSessions <= 0 {
		return errors.New("trend.maxSessions must be positive")
	}
	if c.Trend.ForecastCacheTTL < 0 {
		return errors.New("trend.forecastCacheTtl cannot be negative")
	}
	if c.Trend.ChartWidth <= 0 || c.Trend.ChartHeight <= 0 {
		return errors.New("trend.chartWidth and trend.chartHeight must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("trend.timezone: %w", err)
	}
	switch c.History.Source {
	case "collector":
	case "postgres":
		if strings.TrimSpace(c.History.Postgres.DSN) == "" {
			return errors.New("history.postgres.dsn cannot be empty when history.source is postgres")
		}
	default:
		return fmt.Errorf("history.source %q must be collector or postgres", c.History.Source)
	}
	if c.History.Window <= 0 || c.History.Limit <= 0 {
		return errors.New("history.window and history.limit must be positive")
	}
	if c.Cache.Valkey.Enabled && strings.TrimSpace(c.Cache.Valkey.Addr) == "" {
		return errors.New("cache.valkey.addr cannot be empty when valkey cache is enabled")
	}
	if c.Storage.S3.Enabled {
		if strings.TrimSpace(c.Storage.S3.Endpoint) == "" || strings.TrimSpace(c.Storage.S3.Bucket) == "" {
			return errors.New("storage.s3.endpoint and storage.s3.bucket are required when s3 is enabled")
		}
	}
	if c.Events.Kafka.Enabled {
		if len(c.Events.Kafka.Brokers) == 0 {
			return errors.New("events.kafka.brokers cannot be empty when kafka is enabled")
		}
		if strings.TrimSpace(c.Events.Kafka.Topic) == "" {
			return errors.New("events.kafka.topic cannot be empty when kafka is enabled")
		}
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.Retry.Enabled {
		if c.HTTP.Retry.MaxAttempts <= 0 {
			return errors.New("http.retry.maxAttempts must be positive")
		}
		if c.HTTP.Retry.BaseBackoff <= 0 {
			return errors.New("http.retry.baseBackoff must be positive")
		}
	}
	return nil
}
