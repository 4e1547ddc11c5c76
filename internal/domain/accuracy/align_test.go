package accuracy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

func TestTolerance(t *testing.T) {
	require.Equal(t, int64(1000), Tolerance(0, 0))
	require.Equal(t, int64(1000), Tolerance(1500, 0))
	require.Equal(t, int64(30_000), Tolerance(60_000, 1000))
	require.Equal(t, int64(5000), Tolerance(0, 10_000))
}

func TestAssessSinglePair(t *testing.T) {
	actual := series.Series{{T: 0, Y: 10}, {T: 1000, Y: 12}}
	fc := series.Forecast{Points: series.Series{{T: 1100, Y: 11}}}

	got := Assess(actual, fc)

	require.Equal(t, StatusOK, got.Status)
	require.Equal(t, int64(1000), got.ToleranceMs)
	require.Equal(t, []Pair{{T: 1100, Actual: 12, Predicted: 11}}, got.Pairs)
	require.NotNil(t, got.Report)
	require.Equal(t, 1, got.Report.N)
	require.InDelta(t, 1.0, got.Report.MAE, 1e-12)
	require.InDelta(t, 1.0, got.Report.RMSE, 1e-12)
	require.NotNil(t, got.Report.MAPE)
	require.InDelta(t, 100.0/12.0, *got.Report.MAPE, 1e-9)
}

func TestAlignDropsPointsOutsideTolerance(t *testing.T) {
	actual := series.Series{{T: 0, Y: 1}, {T: 10_000, Y: 2}}
	forecast := series.Series{{T: 500, Y: 1}, {T: 5000, Y: 9}, {T: 11_000, Y: 3}}

	pairs := Align(actual, forecast, 1000)

	require.Equal(t, []Pair{
		{T: 500, Actual: 1, Predicted: 1},
		{T: 11_000, Actual: 2, Predicted: 3},
	}, pairs)
}

func TestAlignFirstMinimumWinsAndAllowsReuse(t *testing.T) {
	actual := series.Series{{T: 0, Y: 1}, {T: 2000, Y: 5}}
	forecast := series.Series{{T: 1000, Y: 0}, {T: 1900, Y: 0}, {T: 2100, Y: 0}}

	pairs := Align(actual, forecast, 1000)

	require.Len(t, pairs, 3)
	// equidistant: the earlier actual point is chosen
	require.Equal(t, 1.0, pairs[0].Actual)
	require.Equal(t, 5.0, pairs[1].Actual)
	require.Equal(t, 5.0, pairs[2].Actual)
}

func TestEvaluateSkipsZeroActualsForMAPE(t *testing.T) {
	report, ok := Evaluate([]Pair{{Actual: 0, Predicted: 2}, {Actual: 1e-9, Predicted: 0}})
	require.True(t, ok)
	require.Equal(t, 2, report.N)
	require.Nil(t, report.MAPE)
	require.InDelta(t, 1.0, report.MAE, 1e-6)
	require.InDelta(t, math.Sqrt(2), report.RMSE, 1e-6)

	_, ok = Evaluate(nil)
	require.False(t, ok)
}

func TestAssessStatuses(t *testing.T) {
	history := series.Series{{T: 0, Y: 1}, {T: 1000, Y: 2}}

	require.Equal(t, StatusNoData, Assess(nil, series.Forecast{Points: history}).Status)
	require.Equal(t, StatusNoForecast, Assess(history, series.Forecast{}).Status)

	far := Assess(history, series.Forecast{Points: series.Series{{T: 1_000_000, Y: 1}}})
	require.Equal(t, StatusUnaligned, far.Status)
	require.Nil(t, far.Report)
	require.Empty(t, far.Pairs)
}

func TestAssessIsIdempotent(t *testing.T) {
	history := series.Series{{T: 0, Y: 3.3}, {T: 1000, Y: 4.1}, {T: 2000, Y: 5.7}, {T: 3000, Y: 2.2}}
	fc := series.Forecast{Points: series.Series{{T: 900, Y: 4}, {T: 2100, Y: 5}, {T: 2900, Y: 2.5}}, IntervalMs: 1000}

	first := Assess(history, fc)
	second := Assess(history, fc)

	require.Equal(t, first.Pairs, second.Pairs)
	require.Equal(t, first.Report.N, second.Report.N)
	require.Equal(t, math.Float64bits(first.Report.MAE), math.Float64bits(second.Report.MAE))
	require.Equal(t, math.Float64bits(first.Report.RMSE), math.Float64bits(second.Report.RMSE))
	require.Equal(t, math.Float64bits(*first.Report.MAPE), math.Float64bits(*second.Report.MAPE))
}
