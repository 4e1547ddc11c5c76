package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParseValue reads a numeric value after removing grouping commas. Only finite values pass.
func ParseValue(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Normalizer filters raw records into a Series.
type Normalizer struct {
	parser Parser
}

// NewNormalizer wires the timestamp parser used for every record.
func NewNormalizer(parser Parser) Normalizer {
	return Normalizer{parser: parser}
}

// Build keeps the records whose timestamp and value both parse, in input order.
// Malformed records are dropped, never zero-filled.
func (n Normalizer) Build(records []RawRecord) Series {
	out := make(Series, 0, len(records))
	for _, rec := range records {
		t, ok := n.parser.Parse(rec.Timestamp)
		if !ok {
			continue
		}
		y, ok := ParseValue(rec.Value)
		if !ok {
			continue
		}
		out = append(out, Point{T: t, Y: y})
	}
	return out
}

// BuildForecast normalizes forecast records, which arrive in arbitrary order, sorts them by time
// and attaches their own sampling interval.
func (n Normalizer) BuildForecast(records []RawRecord) Forecast {
	kept := make([]RawRecord, 0, len(records))
	for _, rec := range records {
		if strings.TrimSpace(rec.Timestamp) == "" {
			continue
		}
		kept = append(kept, rec)
	}
	points := n.Build(kept)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].T < points[j].T
	})
	return Forecast{Points: points, IntervalMs: EstimateInterval(points)}
}
