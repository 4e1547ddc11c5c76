package accuracy

import (
	"math"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

const (
	minToleranceMs = 1000
	// actual values at or below this magnitude are excluded from MAPE.
	mapeEpsilon = 1e-6
)

// Tolerance is the maximum time distance for a forecast point to match an actual point.
// The forecast's own interval wins over the history interval; 0 means undefined.
func Tolerance(forecastIntervalMs, actualIntervalMs int64) int64 {
	effective := forecastIntervalMs
	if effective <= 0 {
		effective = actualIntervalMs
	}
	if effective < 0 {
		effective = 0
	}
	return max(minToleranceMs, effective/2)
}

// Align pairs every forecast point with the actual point nearest in time, keeping the pair when
// the distance is within tol. The first minimum wins on ties, and one actual may serve several
// forecast points.
func Align(actual, forecast series.Series, tol int64) []Pair {
	if len(actual) == 0 || len(forecast) == 0 {
		return nil
	}
	pairs := make([]Pair, 0, len(forecast))
	for _, fp := range forecast {
		best := -1
		var bestDist int64
		for i, ap := range actual {
			d := absInt64(ap.T - fp.T)
			if best < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if bestDist <= tol {
			pairs = append(pairs, Pair{T: fp.T, Actual: actual[best].Y, Predicted: fp.Y})
		}
	}
	return pairs
}

// Evaluate computes MAE, RMSE and MAPE over pairs. ok is false when there are no pairs.
func Evaluate(pairs []Pair) (Report, bool) {
	if len(pairs) == 0 {
		return Report{}, false
	}
	var sumAbs, sumSq, sumPct float64
	pctCount := 0
	for _, p := range pairs {
		e := p.Actual - p.Predicted
		sumAbs += math.Abs(e)
		sumSq += e * e
		if math.Abs(p.Actual) > mapeEpsilon {
			sumPct += math.Abs(e / p.Actual)
			pctCount++
		}
	}
	n := float64(len(pairs))
	report := Report{
		N:    len(pairs),
		MAE:  sumAbs / n,
		RMSE: math.Sqrt(sumSq / n),
	}
	if pctCount > 0 {
		mape := sumPct / float64(pctCount) * 100
		report.MAPE = &mape
	}
	return report, true
}

// Assess aligns fc against actual and evaluates the result. Empty inputs and unmatched forecasts
// are reported through Status rather than as zero metrics.
func Assess(actual series.Series, fc series.Forecast) Assessment {
	tol := Tolerance(fc.IntervalMs, series.EstimateInterval(actual))
	switch {
	case len(actual) == 0:
		return Assessment{Status: StatusNoData, ToleranceMs: tol}
	case len(fc.Points) == 0:
		return Assessment{Status: StatusNoForecast, ToleranceMs: tol}
	}

	pairs := Align(actual, fc.Points, tol)
	report, ok := Evaluate(pairs)
	if !ok {
		return Assessment{Status: StatusUnaligned, ToleranceMs: tol}
	}
	return Assessment{Status: StatusOK, ToleranceMs: tol, Pairs: pairs, Report: &report}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
