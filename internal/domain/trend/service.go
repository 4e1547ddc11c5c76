package trend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
	"github.com/yanqian/telemetry-trend/internal/domain/chart"
	"github.com/yanqian/telemetry-trend/internal/domain/refresh"
	"github.com/yanqian/telemetry-trend/internal/domain/series"
	apperrors "github.com/yanqian/telemetry-trend/pkg/errors"
)

// Service manages viewer sessions over device tag trends.
type Service interface {
	Open(ctx context.Context, target Target) (View, error)
	Get(ctx context.Context, id string) (View, error)
	Retarget(ctx context.Context, id string, target Target) (View, error)
	Suspend(ctx context.Context, id string) (View, error)
	Stop(ctx context.Context, id string) (View, error)
	Resume(ctx context.Context, id string) (View, error)
	Refresh(ctx context.Context, id string) (View, error)
	Close(ctx context.Context, id string) error
	Predict(ctx context.Context, id string) (View, error)
	Accuracy(ctx context.Context, id string) (accuracy.Assessment, error)
	Chart(ctx context.Context, id string, req ChartRequest, w io.Writer) error
	Hover(ctx context.Context, id string, req HoverRequest) (chart.Hover, bool, error)
	ExportChart(ctx context.Context, id string, req ChartRequest) (Export, error)
	LatestDevices(ctx context.Context) (json.RawMessage, error)
	Reap(now time.Time) int
	Shutdown()
}

// Dependencies groups the collaborators of the service. Cache, Events, Storage and Recorder
// are optional.
type Dependencies struct {
	History  HistoryClient
	Forecast ForecastClient
	Devices  DeviceClient
	Toolkit  series.Toolkit
	Renderer chart.Renderer
	Cache    ForecastCache
	Events   EventPublisher
	Storage  ChartStorage
	Recorder Recorder
}

type service struct {
	cfg       Config
	history   HistoryClient
	forecasts ForecastClient
	devices   DeviceClient
	toolkit   series.Toolkit
	renderer  chart.Renderer
	cache     ForecastCache
	events    EventPublisher
	storage   ChartStorage
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
	newTicker refresh.TickerFactory

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService wires the session service.
func NewService(cfg Config, deps Dependencies, logger *slog.Logger) Service {
	return newService(cfg, deps, logger)
}

func newService(cfg Config, deps Dependencies, logger *slog.Logger) *service {
	cfg = cfg.withDefaults()
	if deps.Toolkit == nil {
		deps.Toolkit = series.NewToolkit(cfg.Location)
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}
	return &service{
		cfg:       cfg,
		history:   deps.History,
		forecasts: deps.Forecast,
		devices:   deps.Devices,
		toolkit:   deps.Toolkit,
		renderer:  deps.Renderer,
		cache:     deps.Cache,
		events:    deps.Events,
		storage:   deps.Storage,
		recorder:  deps.Recorder,
		logger:    logger.With("component", "trend.service"),
		now:       time.Now,
		newID:     uuid.NewString,
		newTicker: refresh.NewTimeTicker,
		sessions:  make(map[string]*session),
	}
}

func (s *service) Open(_ context.Context, target Target) (View, error) {
	if !target.Valid() {
		return View{}, apperrors.Wrap(apperrors.CodeInvalidInput, "deviceId and tagId are required", nil)
	}

	s.mu.Lock()
	if len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		return View{}, apperrors.Wrap(apperrors.CodeSessionLimit, "too many open sessions", nil)
	}
	sess := s.newSession(s.newID(), target)
	s.sessions[sess.id] = sess
	active := len(s.sessions)
	s.mu.Unlock()

	s.recorder.SetActiveSessions(active)
	if err := sess.poller.Start(); err != nil {
		return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session closed while opening", err)
	}
	s.logger.Info("session opened", "session", sess.id, "device", target.DeviceID, "tag", target.TagID)
	return s.view(sess), nil
}

func (s *service) Get(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	return s.view(sess), nil
}

func (s *service) Retarget(_ context.Context, id string, target Target) (View, error) {
	if !target.Valid() {
		return View{}, apperrors.Wrap(apperrors.CodeInvalidInput, "deviceId and tagId are required", nil)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	sess.retarget(target)
	if _, err := sess.poller.Trigger(); err != nil {
		return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session was closed", err)
	}
	s.logger.Info("session retargeted", "session", id, "device", target.DeviceID, "tag", target.TagID)
	return s.view(sess), nil
}

func (s *service) Suspend(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	sess.poller.Suspend()
	return s.view(sess), nil
}

// Stop returns the session to idle: no ticker and no refreshes until Resume.
func (s *service) Stop(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	sess.poller.Stop()
	return s.view(sess), nil
}

// Resume restarts a suspended or stopped session with an immediate refresh.
func (s *service) Resume(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	if !sess.poller.Resume() && sess.poller.State() == refresh.StateIdle {
		if err := sess.poller.Start(); err != nil {
			return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session was closed", err)
		}
	}
	return s.view(sess), nil
}

func (s *service) Refresh(_ context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	if _, err := sess.poller.Trigger(); err != nil {
		return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session was closed", err)
	}
	return s.view(sess), nil
}

func (s *service) Close(_ context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	active := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return apperrors.Wrap(apperrors.CodeSessionNotFound, "session not found", nil)
	}

	sess.close()
	s.recorder.SetActiveSessions(active)
	s.logger.Info("session closed", "session", id)
	return nil
}

// Predict fetches a forecast for the session's current target and overlays it. The fetch runs
// on a context detached from the caller so a dropped request still releases the guard.
func (s *service) Predict(ctx context.Context, id string) (View, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return View{}, err
	}
	target, gen, open, ok := sess.beginForecast()
	if !open {
		return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session was closed", nil)
	}
	if !ok {
		s.recorder.ObserveForecast(refresh.OutcomeSkipped)
		return View{}, apperrors.Wrap(apperrors.CodeForecastInFlight, "a forecast is already being fetched", nil)
	}

	fetchCtx := context.WithoutCancel(ctx)
	snap, err := s.loadForecast(fetchCtx, target)
	if err != nil {
		sess.finishForecast(gen, nil)
		s.recorder.ObserveForecast(refresh.OutcomeFailed)
		s.logger.Warn("forecast fetch failed", "session", id, "error", err)
		return View{}, apperrors.Wrap(apperrors.CodeUpstream, "failed to fetch forecast", err)
	}
	if !sess.finishForecast(gen, snap) {
		s.recorder.ObserveForecast(refresh.OutcomeStale)
		return View{}, apperrors.Wrap(apperrors.CodeStaleSession, "session target changed while forecasting", nil)
	}

	outcome := refresh.OutcomeApplied
	if snap.cached {
		outcome = outcomeCached
	}
	s.recorder.ObserveForecast(outcome)

	v := s.view(sess)
	s.publish(fetchCtx, sess.id, target, v.Accuracy)
	return v, nil
}

const outcomeCached = "cached"

func (s *service) loadForecast(ctx context.Context, target Target) (*forecastSnapshot, error) {
	key := target.Key()
	if s.cache != nil && s.cfg.ForecastCacheTTL > 0 {
		fc, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("forecast cache read failed", "key", key, "error", err)
		} else if ok {
			return &forecastSnapshot{forecast: fc, fetchedAt: s.now(), cached: true}, nil
		}
	}

	records, err := s.forecasts.Forecast(ctx, target)
	if err != nil {
		return nil, err
	}
	fc := s.toolkit.BuildForecast(records)

	if s.cache != nil && s.cfg.ForecastCacheTTL > 0 && !fc.Empty() {
		if err := s.cache.Set(ctx, key, fc, s.cfg.ForecastCacheTTL); err != nil {
			s.logger.Warn("forecast cache write failed", "key", key, "error", err)
		}
	}
	return &forecastSnapshot{forecast: fc, fetchedAt: s.now()}, nil
}

func (s *service) publish(ctx context.Context, sessionID string, target Target, assessment accuracy.Assessment) {
	if s.events == nil {
		return
	}
	event := AssessmentEvent{
		SessionID:   sessionID,
		DeviceID:    target.DeviceID,
		TagID:       target.TagID,
		Status:      assessment.Status,
		ToleranceMs: assessment.ToleranceMs,
		Report:      assessment.Report,
		At:          s.now().UTC(),
	}
	go func() {
		if err := s.events.PublishAssessment(ctx, event); err != nil {
			s.logger.Warn("publish assessment failed", "session", sessionID, "error", err)
		}
	}()
}

func (s *service) Accuracy(_ context.Context, id string) (accuracy.Assessment, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return accuracy.Assessment{}, err
	}
	history, _ := sess.historyPoints()
	return accuracy.Assess(history, forecastOf(sess.currentForecast())), nil
}

func (s *service) Chart(ctx context.Context, id string, req ChartRequest, w io.Writer) error {
	sess, err := s.lookup(id)
	if err != nil {
		return err
	}
	frame, err := s.compose(sess, req.Width, req.Height)
	if err != nil {
		return err
	}
	return s.renderer.Render(ctx, w, frame, formatOrDefault(req.Format))
}

func (s *service) Hover(_ context.Context, id string, req HoverRequest) (chart.Hover, bool, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return chart.Hover{}, false, err
	}
	layout, err := s.layout(req.Width, req.Height)
	if err != nil {
		return chart.Hover{}, false, err
	}
	history, _ := sess.historyPoints()
	if history.Empty() {
		return chart.Hover{}, false, nil
	}
	fc := forecastOf(sess.currentForecast()).Points
	vp, _ := chart.ComputeViewport(history, fc)
	hover, ok := chart.NewProjector(layout, vp).HitTest(req.X, req.Y,
		chart.Layer{Kind: chart.LayerHistory, Points: history},
		chart.Layer{Kind: chart.LayerForecast, Points: fc},
	)
	return hover, ok, nil
}

func (s *service) ExportChart(ctx context.Context, id string, req ChartRequest) (Export, error) {
	if s.storage == nil {
		return Export{}, apperrors.Wrap(apperrors.CodeStorage, "chart storage is not configured", nil)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return Export{}, err
	}
	frame, err := s.compose(sess, req.Width, req.Height)
	if err != nil {
		return Export{}, err
	}
	if frame.Empty {
		return Export{}, apperrors.Wrap(apperrors.CodeNoData, "no history to export", nil)
	}

	format := formatOrDefault(req.Format)
	var buf bytes.Buffer
	if err := s.renderer.Render(ctx, &buf, frame, format); err != nil {
		s.recorder.ObserveExport(refresh.OutcomeFailed)
		return Export{}, err
	}
	target := sess.currentTarget()
	key := "charts/" + target.Key() + "/" + s.newID() + format.Extension()
	obj, err := s.storage.Put(ctx, key, format.ContentType(), buf.Bytes())
	if err != nil {
		s.recorder.ObserveExport(refresh.OutcomeFailed)
		return Export{}, apperrors.Wrap(apperrors.CodeStorage, "failed to store chart", err)
	}
	s.recorder.ObserveExport(refresh.OutcomeApplied)
	s.logger.Info("chart exported", "session", id, "key", obj.Key, "bytes", obj.Size)
	return Export{Object: obj, Format: format, Rendered: s.now().UTC()}, nil
}

func (s *service) LatestDevices(ctx context.Context) (json.RawMessage, error) {
	payload, err := s.devices.LatestDevices(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUpstream, "failed to load latest devices", err)
	}
	return payload, nil
}

// Reap closes sessions idle for longer than the configured TTL and returns how many it closed.
func (s *service) Reap(now time.Time) int {
	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.cfg.SessionIdleTTL {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	active := len(s.sessions)
	s.mu.Unlock()

	for _, sess := range expired {
		sess.close()
		s.logger.Info("idle session reaped", "session", sess.id)
	}
	if len(expired) > 0 {
		s.recorder.SetActiveSessions(active)
	}
	return len(expired)
}

// Shutdown closes every session. Outstanding fetches finish on their own and are discarded.
func (s *service) Shutdown() {
	s.mu.Lock()
	all := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		all = append(all, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range all {
		sess.close()
	}
	s.recorder.SetActiveSessions(0)
}

func (s *service) lookup(id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, apperrors.Wrap(apperrors.CodeSessionNotFound, "session not found", nil)
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *service) layout(width, height int) (chart.Layout, error) {
	if width <= 0 {
		width = s.cfg.ChartWidth
	}
	if height <= 0 {
		height = s.cfg.ChartHeight
	}
	layout, err := chart.NewLayout(width, height)
	if err != nil {
		return chart.Layout{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), err)
	}
	return layout, nil
}

func (s *service) compose(sess *session, width, height int) (chart.Frame, error) {
	layout, err := s.layout(width, height)
	if err != nil {
		return chart.Frame{}, err
	}
	history, _ := sess.historyPoints()
	return chart.Compose(layout, history, forecastOf(sess.currentForecast()).Points, s.cfg.Location), nil
}

func (s *service) view(sess *session) View {
	history, updatedAt := sess.historyPoints()
	snap := sess.currentForecast()
	fc := forecastOf(snap)

	v := View{
		ID:                sess.id,
		Target:            sess.currentTarget(),
		State:             sess.poller.State(),
		History:           history,
		HistoryIntervalMs: s.toolkit.EstimateInterval(history),
		HistoryUpdatedAt:  updatedAt,
		ForecastPending:   sess.forecastPending(),
		Accuracy:          accuracy.Assess(history, fc),
	}
	if snap != nil {
		v.Forecast = &ForecastView{
			Points:     snap.forecast.Points,
			IntervalMs: snap.forecast.IntervalMs,
			FetchedAt:  snap.fetchedAt,
			Cached:     snap.cached,
		}
	}
	return v
}

func forecastOf(snap *forecastSnapshot) series.Forecast {
	if snap == nil {
		return series.Forecast{}
	}
	return snap.forecast
}

func formatOrDefault(f chart.Format) chart.Format {
	if f == "" {
		return chart.FormatSVG
	}
	return f
}
