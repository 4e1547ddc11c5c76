package trend

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
	"github.com/yanqian/telemetry-trend/internal/domain/chart"
	"github.com/yanqian/telemetry-trend/internal/domain/refresh"
	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

// Target names the device tag a session watches.
type Target struct {
	DeviceID string `json:"deviceId"`
	TagID    string `json:"tagId"`
}

// Valid reports whether both identifiers are present.
func (t Target) Valid() bool {
	return strings.TrimSpace(t.DeviceID) != "" && strings.TrimSpace(t.TagID) != ""
}

// Key is the cache and storage key of the target. Each part is path-escaped so ids containing
// a slash cannot collide with another target.
func (t Target) Key() string {
	return url.PathEscape(t.DeviceID) + "/" + url.PathEscape(t.TagID)
}

// HistoryClient loads the recent raw history of a target.
type HistoryClient interface {
	History(ctx context.Context, target Target) ([]series.RawRecord, error)
}

// ForecastClient asks the backend to predict the next values of a target.
type ForecastClient interface {
	Forecast(ctx context.Context, target Target) ([]series.RawRecord, error)
}

// DeviceClient returns the latest device snapshots untouched.
type DeviceClient interface {
	LatestDevices(ctx context.Context) (json.RawMessage, error)
}

// ForecastCache keeps recent forecasts per target.
type ForecastCache interface {
	Get(ctx context.Context, key string) (series.Forecast, bool, error)
	Set(ctx context.Context, key string, fc series.Forecast, ttl time.Duration) error
}

// StoredObject describes an uploaded chart.
type StoredObject struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ChartStorage persists exported charts.
type ChartStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (StoredObject, error)
}

// AssessmentEvent is published whenever a new forecast is applied to a session.
type AssessmentEvent struct {
	SessionID   string           `json:"sessionId"`
	DeviceID    string           `json:"deviceId"`
	TagID       string           `json:"tagId"`
	Status      accuracy.Status  `json:"status"`
	ToleranceMs int64            `json:"toleranceMs"`
	Report      *accuracy.Report `json:"report,omitempty"`
	At          time.Time        `json:"at"`
}

// EventPublisher emits assessment events to downstream consumers.
type EventPublisher interface {
	PublishAssessment(ctx context.Context, event AssessmentEvent) error
}

// Recorder receives operational counters.
type Recorder interface {
	refresh.Observer
	ObserveForecast(outcome string)
	ObserveExport(outcome string)
	SetActiveSessions(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRefresh(string)  {}
func (nopRecorder) ObserveForecast(string) {}
func (nopRecorder) ObserveExport(string)   {}
func (nopRecorder) SetActiveSessions(int)  {}

// ForecastView is the forecast currently overlaid on a session.
type ForecastView struct {
	Points     series.Series `json:"points"`
	IntervalMs int64         `json:"intervalMs"`
	FetchedAt  time.Time     `json:"fetchedAt"`
	Cached     bool          `json:"cached"`
}

// View is a consistent read of one session.
type View struct {
	ID                string              `json:"id"`
	Target            Target              `json:"target"`
	State             refresh.State       `json:"state"`
	History           series.Series       `json:"history"`
	HistoryIntervalMs int64               `json:"historyIntervalMs"`
	HistoryUpdatedAt  *time.Time          `json:"historyUpdatedAt,omitempty"`
	Forecast          *ForecastView       `json:"forecast,omitempty"`
	ForecastPending   bool                `json:"forecastPending"`
	Accuracy          accuracy.Assessment `json:"accuracy"`
}

// ChartRequest selects the surface and encoding of a rendered chart. Zero sizes use defaults.
type ChartRequest struct {
	Width  int
	Height int
	Format chart.Format
}

// HoverRequest is a pointer position on a surface of the given size.
type HoverRequest struct {
	X      float64
	Y      float64
	Width  int
	Height int
}

// Export is the result of storing a rendered chart.
type Export struct {
	Object   StoredObject `json:"object"`
	Format   chart.Format `json:"format"`
	Rendered time.Time    `json:"renderedAt"`
}
