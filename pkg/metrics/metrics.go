package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the refresh and forecast counters.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
	OutcomeCached  = "cached"
)

// Metrics owns the Prometheus collectors of the service. A nil *Metrics is a valid no-op sink.
type Metrics struct {
	registry     *prometheus.Registry
	refreshes    *prometheus.CounterVec
	forecasts    *prometheus.CounterVec
	exports      *prometheus.CounterVec
	sessions     prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trend_history_refresh_total",
			Help: "History refresh attempts by outcome.",
		}, []string{"outcome"}),
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trend_forecast_fetch_total",
			Help: "Forecast fetches by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trend_chart_export_total",
			Help: "Chart exports by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trend_sessions_active",
			Help: "Number of open view sessions.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.refreshes,
		m.forecasts,
		m.exports,
		m.sessions,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// ObserveRefresh counts one history refresh outcome.
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// ObserveForecast counts one forecast fetch outcome.
func (m *Metrics) ObserveForecast(outcome string) {
	if m == nil {
		return
	}
	m.forecasts.WithLabelValues(outcome).Inc()
}

// ObserveExport counts one chart export outcome.
func (m *Metrics) ObserveExport(outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
}

// SetActiveSessions publishes the current session count.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
