package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveRefresh(OutcomeApplied)
	m.ObserveRefresh(OutcomeSkipped)
	m.ObserveForecast(OutcomeCached)
	m.SetActiveSessions(3)
	m.ObserveHTTP("/api/v1/sessions/:id", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `trend_history_refresh_total{outcome="applied"} 1`)
	require.Contains(t, body, `trend_history_refresh_total{outcome="skipped"} 1`)
	require.Contains(t, body, `trend_forecast_fetch_total{outcome="cached"} 1`)
	require.Contains(t, body, "trend_sessions_active 3")
	require.Contains(t, body, `http_requests_total{route="/api/v1/sessions/:id",status="200"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveRefresh(OutcomeFailed)
		m.ObserveForecast(OutcomeStale)
		m.ObserveExport(OutcomeApplied)
		m.SetActiveSessions(1)
		m.ObserveHTTP("", http.StatusNotFound, time.Millisecond)
	})
}
