package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
	"github.com/yanqian/telemetry-trend/internal/domain/chart"
	"github.com/yanqian/telemetry-trend/internal/domain/refresh"
	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
	"github.com/yanqian/telemetry-trend/internal/infra/config"
	apperrors "github.com/yanqian/telemetry-trend/pkg/errors"
	"github.com/yanqian/telemetry-trend/pkg/metrics"
)

func TestRouter_OpenSession(t *testing.T) {
	svc := &stubService{
		openFn: func(_ context.Context, target trend.Target) (trend.View, error) {
			require.Equal(t, trend.Target{DeviceID: "3", TagID: "7"}, target)
			return trend.View{ID: "s-1", Target: target, History: series.Series{{T: 1000, Y: 2}}}, nil
		},
	}

	rec := performRequest(http.MethodPost, "/api/v1/sessions", `{"deviceId":"3","tagId":"7"}`, newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusCreated, rec.Code)

	var got trend.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "s-1", got.ID)
	require.Equal(t, series.Series{{T: 1000, Y: 2}}, got.History)
}

func TestRouter_OpenSessionInvalidJSON(t *testing.T) {
	rec := performRequest(http.MethodPost, "/api/v1/sessions", `{"deviceId":3`, newRouterUnderTest(t, &stubService{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		code   string
		status int
	}{
		{apperrors.CodeInvalidInput, http.StatusBadRequest},
		{apperrors.CodeSessionNotFound, http.StatusNotFound},
		{apperrors.CodeForecastInFlight, http.StatusConflict},
		{apperrors.CodeStaleSession, http.StatusConflict},
		{apperrors.CodeNoData, http.StatusUnprocessableEntity},
		{apperrors.CodeSessionLimit, http.StatusServiceUnavailable},
		{apperrors.CodeUpstream, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubService{
				getFn: func(context.Context, string) (trend.View, error) {
					return trend.View{}, apperrors.Wrap(tc.code, "boom", io.ErrUnexpectedEOF)
				},
			}
			rec := performRequest(http.MethodGet, "/api/v1/sessions/s-1", "", newRouterUnderTest(t, svc))
			require.Equal(t, tc.status, rec.Code)

			body := decodeErrorBody(t, rec.Body.Bytes())
			require.Equal(t, tc.code, body["error"]["code"])
			require.Equal(t, "boom", body["error"]["message"])
		})
	}
}

func TestRouter_CloseSession(t *testing.T) {
	var closed string
	svc := &stubService{closeFn: func(_ context.Context, id string) error { closed = id; return nil }}

	rec := performRequest(http.MethodDelete, "/api/v1/sessions/s-9", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "s-9", closed)
}

func TestRouter_StopSession(t *testing.T) {
	rec := performRequest(http.MethodPost, "/api/v1/sessions/s-4/stop", "", newRouterUnderTest(t, &stubService{}))
	require.Equal(t, http.StatusOK, rec.Code)

	var got trend.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "s-4", got.ID)
	require.Equal(t, refresh.StateIdle, got.State)
}

func TestRouter_Accuracy(t *testing.T) {
	svc := &stubService{
		accuracyFn: func(context.Context, string) (accuracy.Assessment, error) {
			return accuracy.Assessment{Status: accuracy.StatusOK, ToleranceMs: 1000, Report: &accuracy.Report{N: 1, MAE: 1, RMSE: 1}}, nil
		},
	}
	rec := performRequest(http.MethodGet, "/api/v1/sessions/s-1/accuracy", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","toleranceMs":1000,"report":{"n":1,"mae":1,"rmse":1}}`, rec.Body.String())
}

func TestRouter_ChartWritesImage(t *testing.T) {
	svc := &stubService{
		chartFn: func(_ context.Context, _ string, req trend.ChartRequest, w io.Writer) error {
			require.Equal(t, trend.ChartRequest{Width: 400, Height: 200, Format: chart.FormatSVG}, req)
			_, err := io.WriteString(w, "<svg></svg>")
			return err
		},
	}
	rec := performRequest(http.MethodGet, "/api/v1/sessions/s-1/chart?width=400&height=200", "", newRouterUnderTest(t, svc))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	require.Equal(t, "<svg></svg>", rec.Body.String())
}

func TestRouter_ChartRejectsBadQuery(t *testing.T) {
	server := newRouterUnderTest(t, &stubService{})

	rec := performRequest(http.MethodGet, "/api/v1/sessions/s-1/chart?format=gif", "", server)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = performRequest(http.MethodGet, "/api/v1/sessions/s-1/chart?width=wide", "", server)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Hover(t *testing.T) {
	svc := &stubService{
		hoverFn: func(_ context.Context, _ string, req trend.HoverRequest) (chart.Hover, bool, error) {
			require.Equal(t, trend.HoverRequest{X: 100, Y: 50.5}, req)
			return chart.Hover{QueryT: 10, Timestamp: 10, Values: []chart.LayerValue{{Layer: chart.LayerHistory, T: 10, Y: 3}}}, true, nil
		},
	}
	server := newRouterUnderTest(t, svc)

	rec := performRequest(http.MethodGet, "/api/v1/sessions/s-1/hover?x=100&y=50.5", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"hit":true,"hover":{"queryT":10,"timestamp":10,"values":[{"layer":"history","t":10,"y":3}]}}`, rec.Body.String())

	rec = performRequest(http.MethodGet, "/api/v1/sessions/s-1/hover?y=1", "", server)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RetriesForecastOnUpstreamFailure(t *testing.T) {
	calls := 0
	svc := &stubService{
		predictFn: func(context.Context, string) (trend.View, error) {
			calls++
			if calls == 1 {
				return trend.View{}, apperrors.Wrap(apperrors.CodeUpstream, "collector unavailable", nil)
			}
			return trend.View{ID: "s-1"}, nil
		},
	}
	cfg := testConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 3, PathSuffixes: []string{"/forecast"}}

	rec := performRequest(http.MethodPost, "/api/v1/sessions/s-1/forecast", "", NewRouter(cfg, NewHandler(svc, newTestLogger()), nil, newTestLogger()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(&stubService{}, newTestLogger()), nil, newTestLogger())

	require.Equal(t, http.StatusOK, performRequest(http.MethodGet, "/healthz", "", server).Code)
	rec := performRequest(http.MethodGet, "/healthz", "", server)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRouter_CORSPreflight(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.AllowedOrigins = []string{"https://dash.example.com"}
	server := NewRouter(cfg, NewHandler(&stubService{}, newTestLogger()), nil, newTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "https://dash.example.com")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestRouter_MetricsUseRouteTemplate(t *testing.T) {
	m := metrics.New()
	server := NewRouter(testConfig(), NewHandler(&stubService{}, newTestLogger()), m, newTestLogger())

	performRequest(http.MethodGet, "/api/v1/sessions/abc", "", server)
	rec := performRequest(http.MethodGet, "/metrics", "", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{route="/api/v1/sessions/:id",status="200"} 1`)
}

func performRequest(method, path, body string, server *http.Server) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newRouterUnderTest(t *testing.T, svc trend.Service) *http.Server {
	t.Helper()
	return NewRouter(testConfig(), NewHandler(svc, newTestLogger()), nil, newTestLogger())
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubService struct {
	openFn     func(ctx context.Context, target trend.Target) (trend.View, error)
	getFn      func(ctx context.Context, id string) (trend.View, error)
	closeFn    func(ctx context.Context, id string) error
	predictFn  func(ctx context.Context, id string) (trend.View, error)
	accuracyFn func(ctx context.Context, id string) (accuracy.Assessment, error)
	chartFn    func(ctx context.Context, id string, req trend.ChartRequest, w io.Writer) error
	hoverFn    func(ctx context.Context, id string, req trend.HoverRequest) (chart.Hover, bool, error)
}

func (s *stubService) Open(ctx context.Context, target trend.Target) (trend.View, error) {
	if s.openFn != nil {
		return s.openFn(ctx, target)
	}
	return trend.View{}, nil
}

func (s *stubService) Get(ctx context.Context, id string) (trend.View, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return trend.View{ID: id}, nil
}

func (s *stubService) Retarget(_ context.Context, id string, target trend.Target) (trend.View, error) {
	return trend.View{ID: id, Target: target}, nil
}

func (s *stubService) Suspend(_ context.Context, id string) (trend.View, error) {
	return trend.View{ID: id}, nil
}

func (s *stubService) Stop(_ context.Context, id string) (trend.View, error) {
	return trend.View{ID: id, State: refresh.StateIdle}, nil
}

func (s *stubService) Resume(_ context.Context, id string) (trend.View, error) {
	return trend.View{ID: id}, nil
}

func (s *stubService) Refresh(_ context.Context, id string) (trend.View, error) {
	return trend.View{ID: id}, nil
}

func (s *stubService) Close(ctx context.Context, id string) error {
	if s.closeFn != nil {
		return s.closeFn(ctx, id)
	}
	return nil
}

func (s *stubService) Predict(ctx context.Context, id string) (trend.View, error) {
	if s.predictFn != nil {
		return s.predictFn(ctx, id)
	}
	return trend.View{ID: id}, nil
}

func (s *stubService) Accuracy(ctx context.Context, id string) (accuracy.Assessment, error) {
	if s.accuracyFn != nil {
		return s.accuracyFn(ctx, id)
	}
	return accuracy.Assessment{Status: accuracy.StatusNoData}, nil
}

func (s *stubService) Chart(ctx context.Context, id string, req trend.ChartRequest, w io.Writer) error {
	if s.chartFn != nil {
		return s.chartFn(ctx, id, req, w)
	}
	return nil
}

func (s *stubService) Hover(ctx context.Context, id string, req trend.HoverRequest) (chart.Hover, bool, error) {
	if s.hoverFn != nil {
		return s.hoverFn(ctx, id, req)
	}
	return chart.Hover{}, false, nil
}

func (s *stubService) ExportChart(_ context.Context, _ string, req trend.ChartRequest) (trend.Export, error) {
	return trend.Export{Format: req.Format}, nil
}

func (s *stubService) LatestDevices(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (s *stubService) Reap(time.Time) int { return 0 }

func (s *stubService) Shutdown() {}
