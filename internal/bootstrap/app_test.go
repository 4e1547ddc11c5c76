package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/infra/config"
)

type fakeSessions struct {
	reaps     atomic.Int32
	shutdowns atomic.Int32
}

func (f *fakeSessions) Reap(time.Time) int {
	f.reaps.Add(1)
	return 1
}

func (f *fakeSessions) Shutdown() { f.shutdowns.Add(1) }

func TestRunReapsUntilCancelledThenShutsDownSessions(t *testing.T) {
	cfg := &config.Config{
		HTTP:  config.HTTPConfig{Address: "127.0.0.1:0"},
		Trend: config.TrendConfig{ReapInterval: 5 * time.Millisecond},
	}
	sessions := &fakeSessions{}
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}
	app := NewApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), server, sessions)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return sessions.reaps.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	require.Equal(t, int32(1), sessions.shutdowns.Load())
}
