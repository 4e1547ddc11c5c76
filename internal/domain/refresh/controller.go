package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is the lifecycle phase of a Controller.
type State string

const (
	StateIdle      State = "idle"
	StatePolling   State = "polling"
	StateSuspended State = "suspended"
	StateClosed    State = "closed"
)

// Outcome labels reported to the Observer for every fetch attempt.
const (
	OutcomeApplied = "applied"
	OutcomeSkipped = "skipped"
	OutcomeStale   = "stale"
	OutcomeFailed  = "failed"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("refresh: controller closed")

// Token identifies the generation a fetch was issued under. Results carrying an older token
// are discarded.
type Token uint64

// Fetcher loads a fresh value. It runs on its own goroutine with a context that is never
// cancelled by the controller.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Applier publishes a fetched value. It runs with the controller lock held and must not call
// back into the controller.
type Applier[T any] func(T)

// Observer receives one outcome per fetch attempt.
type Observer interface {
	ObserveRefresh(outcome string)
}

// Ticker is the subset of *time.Ticker the controller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// NewTimeTicker adapts time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Options configures a Controller.
type Options struct {
	Interval  time.Duration
	NewTicker TickerFactory
	Observer  Observer
	Logger    *slog.Logger
}

const defaultInterval = time.Second

// Controller polls a Fetcher on a fixed cadence with at most one outstanding fetch per token.
type Controller[T any] struct {
	fetch    Fetcher[T]
	apply    Applier[T]
	interval time.Duration
	ticker   TickerFactory
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	token    Token
	inFlight bool
	stopTick chan struct{}
	pending  sync.WaitGroup
}

// NewController returns an idle controller.
func NewController[T any](fetch Fetcher[T], apply Applier[T], opts Options) *Controller[T] {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller[T]{
		fetch:    fetch,
		apply:    apply,
		interval: opts.Interval,
		ticker:   opts.NewTicker,
		observer: opts.Observer,
		logger:   opts.Logger,
		state:    StateIdle,
	}
}

// Start fetches immediately and then on every tick. Starting a polling controller is a no-op.
func (c *Controller[T]) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateClosed:
		return ErrClosed
	case StatePolling:
		return nil
	}
	c.state = StatePolling
	c.launchLocked()
	c.startTickerLocked()
	return nil
}

// Stop cancels the ticker and returns to idle. Outstanding fetches still apply.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.stopTickerLocked()
	c.state = StateIdle
}

// Suspend pauses a polling controller. Outstanding fetches still apply.
func (c *Controller[T]) Suspend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePolling {
		return false
	}
	c.stopTickerLocked()
	c.state = StateSuspended
	return true
}

// Resume refreshes once right away and restarts the ticker of a suspended controller.
func (c *Controller[T]) Resume() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSuspended {
		return false
	}
	c.state = StatePolling
	c.launchLocked()
	c.startTickerLocked()
	return true
}

// Trigger requests one fetch outside the cadence. It reports false when a fetch for the current
// token is already outstanding.
func (c *Controller[T]) Trigger() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false, ErrClosed
	}
	return c.launchLocked(), nil
}

// Invalidate starts a new generation: results of fetches issued before the call are discarded
// and the in-flight guard is released for the new generation. reset, when non-nil, runs under
// the same lock so the caller can clear published state before any new result lands.
func (c *Controller[T]) Invalidate(reset func()) Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token++
	c.inFlight = false
	if reset != nil {
		reset()
	}
	return c.token
}

// Close stops polling for good and invalidates every outstanding fetch.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return
	}
	c.stopTickerLocked()
	c.token++
	c.inFlight = false
	c.state = StateClosed
}

// Wait blocks until every fetch launched so far has completed.
func (c *Controller[T]) Wait() {
	c.pending.Wait()
}

func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller[T]) Token() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// InFlight reports whether a fetch of the current generation is outstanding.
func (c *Controller[T]) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Controller[T]) launchLocked() bool {
	if c.inFlight {
		c.observe(OutcomeSkipped)
		return false
	}
	c.inFlight = true
	tok := c.token
	c.pending.Add(1)
	go c.run(tok)
	return true
}

func (c *Controller[T]) run(tok Token) {
	defer c.pending.Done()
	value, err := c.fetch(context.Background())

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.token || c.state == StateClosed {
		c.observe(OutcomeStale)
		return
	}
	c.inFlight = false
	if err != nil {
		c.logger.Warn("refresh fetch failed, keeping last snapshot", "error", err)
		c.observe(OutcomeFailed)
		return
	}
	c.apply(value)
	c.observe(OutcomeApplied)
}

func (c *Controller[T]) startTickerLocked() {
	c.stopTickerLocked()
	ticker := c.ticker(c.interval)
	stop := make(chan struct{})
	c.stopTick = stop
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				c.tick(stop)
			}
		}
	}()
}

func (c *Controller[T]) tick(stop chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a tick racing Stop/Suspend belongs to a ticker that is already gone
	if c.stopTick != stop || c.state != StatePolling {
		return
	}
	c.launchLocked()
}

func (c *Controller[T]) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

func (c *Controller[T]) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveRefresh(outcome)
	}
}
