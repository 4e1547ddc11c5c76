package series

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func seriesFromDeltas(deltas ...int64) Series {
	s := Series{{T: 0}}
	var t int64
	for _, d := range deltas {
		t += d
		s = append(s, Point{T: t})
	}
	return s
}

func TestEstimateIntervalOddCount(t *testing.T) {
	require.Equal(t, int64(1000), EstimateInterval(seriesFromDeltas(1000, 1000, 3000, 1000)))
}

func TestEstimateIntervalEvenCount(t *testing.T) {
	require.Equal(t, int64(2500), EstimateInterval(seriesFromDeltas(1000, 2000, 3000, 4000)))
}

func TestEstimateIntervalIgnoresNonPositiveDeltas(t *testing.T) {
	s := Series{{T: 0}, {T: 1000}, {T: 1000}, {T: 500}, {T: 2500}, {T: 5500}}
	// positive deltas: 1000, 2000, 3000
	require.Equal(t, int64(2000), EstimateInterval(s))
}

func TestEstimateIntervalUndefined(t *testing.T) {
	require.Zero(t, EstimateInterval(nil))
	require.Zero(t, EstimateInterval(Series{{T: 10}}))
	require.Zero(t, EstimateInterval(Series{{T: 10}, {T: 10}, {T: 5}}))
}

func TestToolkitDelegates(t *testing.T) {
	kit := NewToolkit(nil)

	ts, ok := kit.ParseTimestamp("1970-01-01 00:00:01")
	require.True(t, ok)
	require.Equal(t, int64(1000), ts)

	s := kit.BuildSeries([]RawRecord{{Timestamp: "1970-01-01 00:00:01", Value: "1"}, {Timestamp: "1970-01-01 00:00:03", Value: "2"}})
	require.Len(t, s, 2)
	require.Equal(t, int64(2000), kit.EstimateInterval(s))
}
