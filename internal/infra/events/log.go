package events

import (
	"context"
	"log/slog"

	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

// LogPublisher records assessment events in the service log when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "events.log")}
}

func (p *LogPublisher) PublishAssessment(_ context.Context, event trend.AssessmentEvent) error {
	attrs := []any{
		"session", event.SessionID,
		"device", event.DeviceID,
		"tag", event.TagID,
		"status", event.Status,
		"toleranceMs", event.ToleranceMs,
	}
	if event.Report != nil {
		attrs = append(attrs, "n", event.Report.N, "mae", event.Report.MAE, "rmse", event.Report.RMSE)
		if event.Report.MAPE != nil {
			attrs = append(attrs, "mape", *event.Report.MAPE)
		}
	}
	p.logger.Info("forecast assessed", attrs...)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var _ trend.EventPublisher = (*LogPublisher)(nil)
