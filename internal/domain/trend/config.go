package trend

import "time"

// Config tunes session behaviour.
type Config struct {
	RefreshInterval  time.Duration
	SessionIdleTTL   time.Duration
	MaxSessions      int
	Location         *time.Location
	ForecastCacheTTL time.Duration
	ChartWidth       int
	ChartHeight      int
}

func (c Config) withDefaults() Config {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = time.Second
	}
	if c.SessionIdleTTL <= 0 {
		c.SessionIdleTTL = 5 * time.Minute
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 256
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.ChartWidth <= 0 {
		c.ChartWidth = 880
	}
	if c.ChartHeight <= 0 {
		c.ChartHeight = 360
	}
	return c
}
