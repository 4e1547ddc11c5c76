package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/domain/accuracy"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleEvent() trend.AssessmentEvent {
	mape := 8.5
	return trend.AssessmentEvent{
		SessionID:   "s-1",
		DeviceID:    "3",
		TagID:       "7",
		Status:      accuracy.StatusOK,
		ToleranceMs: 1000,
		Report:      &accuracy.Report{N: 2, MAE: 1, RMSE: 1.2, MAPE: &mape},
		At:          time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, p.PublishAssessment(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "3/7", string(w.msgs[0].Key))

	var decoded trend.AssessmentEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, sampleEvent(), decoded)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewKafkaPublisher(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := p.PublishAssessment(context.Background(), sampleEvent())
	require.ErrorContains(t, err, "leader not available")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, p.PublishAssessment(context.Background(), sampleEvent()))
	require.Contains(t, buf.String(), `"status":"ok"`)
	require.Contains(t, buf.String(), `"mape":8.5`)
}
