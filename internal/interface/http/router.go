package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/telemetry-trend/internal/infra/config"
	"github.com/yanqian/telemetry-trend/pkg/metrics"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	log := logger.With("component", "http")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(log, m),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(log),
		rateLimitMiddleware(cfg.HTTP.RateLimit, log),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/devices/latest", handler.LatestDevices)

		sessions := api.Group("/sessions")
		sessions.POST("", handler.OpenSession)
		sessions.GET("/:id", handler.GetSession)
		sessions.DELETE("/:id", handler.CloseSession)
		sessions.PUT("/:id/target", handler.Retarget)
		sessions.POST("/:id/suspend", handler.Suspend)
		sessions.POST("/:id/stop", handler.Stop)
		sessions.POST("/:id/resume", handler.Resume)
		sessions.POST("/:id/refresh", handler.Refresh)
		sessions.POST("/:id/forecast", handler.Predict)
		sessions.GET("/:id/accuracy", handler.Accuracy)
		sessions.GET("/:id/chart", handler.Chart)
		sessions.GET("/:id/hover", handler.Hover)
		sessions.POST("/:id/chart/export", handler.ExportChart)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, log),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
