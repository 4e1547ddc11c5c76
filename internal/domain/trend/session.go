package trend

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanqian/telemetry-trend/internal/domain/refresh"
	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

type historySnapshot struct {
	points    series.Series
	fetchedAt time.Time
}

type forecastSnapshot struct {
	forecast  series.Forecast
	fetchedAt time.Time
	cached    bool
}

// session is one viewer's context. Snapshots are replaced wholesale; target and the forecast
// generation are guarded by mu.
type session struct {
	id     string
	poller *refresh.Controller[series.Series]

	history  atomic.Pointer[historySnapshot]
	forecast atomic.Pointer[forecastSnapshot]
	lastSeen atomic.Int64

	mu               sync.Mutex
	target           Target
	forecastGen      uint64
	forecastInFlight bool
	closed           bool
}

func (s *service) newSession(id string, target Target) *session {
	sess := &session{id: id, target: target}
	sess.lastSeen.Store(s.now().UnixNano())

	fetch := func(ctx context.Context) (series.Series, error) {
		records, err := s.history.History(ctx, sess.currentTarget())
		if err != nil {
			return nil, err
		}
		return s.toolkit.BuildSeries(records), nil
	}
	apply := func(points series.Series) {
		sess.history.Store(&historySnapshot{points: points, fetchedAt: s.now()})
	}
	sess.poller = refresh.NewController(fetch, apply, refresh.Options{
		Interval:  s.cfg.RefreshInterval,
		NewTicker: s.newTicker,
		Observer:  s.recorder,
		Logger:    s.logger.With("session", id),
	})
	return sess
}

func (sess *session) currentTarget() Target {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.target
}

func (sess *session) touch(now time.Time) {
	sess.lastSeen.Store(now.UnixNano())
}

func (sess *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, sess.lastSeen.Load()))
}

func (sess *session) historyPoints() (series.Series, *time.Time) {
	snap := sess.history.Load()
	if snap == nil {
		return series.Series{}, nil
	}
	at := snap.fetchedAt
	return snap.points, &at
}

func (sess *session) currentForecast() *forecastSnapshot {
	return sess.forecast.Load()
}

// retarget points the session at a new tag. Both snapshots are dropped after the poller's
// generation moves on, so no result fetched for the old target can land afterwards.
func (sess *session) retarget(target Target) {
	sess.mu.Lock()
	sess.target = target
	sess.forecastGen++
	sess.forecastInFlight = false
	sess.mu.Unlock()

	sess.poller.Invalidate(func() {
		sess.history.Store(nil)
		sess.forecast.Store(nil)
	})
}

// beginForecast claims the forecast guard. ok is false when a forecast is already outstanding.
func (sess *session) beginForecast() (Target, uint64, bool, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return Target{}, 0, false, false
	}
	if sess.forecastInFlight {
		return Target{}, 0, true, false
	}
	sess.forecastInFlight = true
	return sess.target, sess.forecastGen, true, true
}

// finishForecast releases the guard and stores snap when gen is still current.
func (sess *session) finishForecast(gen uint64, snap *forecastSnapshot) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed || gen != sess.forecastGen {
		return false
	}
	sess.forecastInFlight = false
	if snap != nil {
		sess.forecast.Store(snap)
	}
	return true
}

func (sess *session) forecastPending() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.forecastInFlight
}

func (sess *session) close() {
	sess.mu.Lock()
	sess.closed = true
	sess.forecastGen++
	sess.forecastInFlight = false
	sess.mu.Unlock()
	sess.poller.Close()
}
