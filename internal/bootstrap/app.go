package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/telemetry-trend/internal/infra/config"
)

// Sessions is the lifecycle surface of the trend service the app drives.
type Sessions interface {
	Reap(now time.Time) int
	Shutdown()
}

// App encapsulates the HTTP server and session reaper lifecycle.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	server   *http.Server
	sessions Sessions
}

// NewApp is used by Wire to build the runnable app. The trend.Service satisfies Sessions.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, sessions Sessions) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, sessions: sessions}
}

// Run starts the HTTP server and the idle session reaper and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	reapCtx, stopReaper := context.WithCancel(ctx)
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		a.reapLoop(reapCtx, a.cfg.Trend.ReapInterval)
	}()
	defer func() {
		stopReaper()
		<-reaperDone
		a.sessions.Shutdown()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) reapLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.sessions.Reap(now); n > 0 {
				a.logger.Info("reaped idle sessions", "count", n)
			}
		}
	}
}
