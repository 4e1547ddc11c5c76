package historydb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/internal/domain/trend"
)

// Querier is the part of *pgxpool.Pool the source uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads recent history straight from the collector's data_records table.
// The timestamp column has no zone; its wall clock is in loc, the collector's local time.
type PostgresSource struct {
	db     Querier
	window time.Duration
	limit  int
	loc    *time.Location
	now    func() time.Time
}

// wallClockLayout renders a column value without a zone so the parser applies its location,
// matching what the collector API sends for the same rows.
const wallClockLayout = "2006-01-02 15:04:05.999999999"

// NewPostgresSource returns a source covering the last window, capped at limit rows. A nil loc
// means UTC.
func NewPostgresSource(db Querier, window time.Duration, limit int, loc *time.Location) *PostgresSource {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresSource{db: db, window: window, limit: limit, loc: loc, now: time.Now}
}

// History implements trend.HistoryClient. Rows come back oldest first.
func (s *PostgresSource) History(ctx context.Context, target trend.Target) ([]series.RawRecord, error) {
	deviceID, err := strconv.ParseInt(strings.TrimSpace(target.DeviceID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("device id %q is not numeric: %w", target.DeviceID, err)
	}
	tagID, err := strconv.ParseInt(strings.TrimSpace(target.TagID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tag id %q is not numeric: %w", target.TagID, err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT "timestamp", value::text
		FROM data_records
		WHERE device_id = $1 AND tag_id = $2 AND "timestamp" >= $3
		ORDER BY "timestamp" DESC
		LIMIT $4
	`, deviceID, tagID, s.cutoff(), s.limit)
	if err != nil {
		return nil, fmt.Errorf("query data_records: %w", err)
	}
	defer rows.Close()

	var newestFirst []series.RawRecord
	for rows.Next() {
		var (
			ts    time.Time
			value *string
		)
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scan data_records: %w", err)
		}
		rec := series.RawRecord{Timestamp: ts.Format(wallClockLayout)}
		if value != nil {
			rec.Value = *value
		}
		newestFirst = append(newestFirst, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]series.RawRecord, len(newestFirst))
	for i, rec := range newestFirst {
		out[len(newestFirst)-1-i] = rec
	}
	return out, nil
}

// cutoff is the start of the window as a zoneless wall clock in loc, the form the column holds.
func (s *PostgresSource) cutoff() time.Time {
	t := s.now().In(s.loc).Add(-s.window)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

var _ trend.HistoryClient = (*PostgresSource)(nil)
