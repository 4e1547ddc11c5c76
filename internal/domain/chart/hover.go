package chart

import (
	"math"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

// LayerKind distinguishes observed history from predicted values.
type LayerKind string

const (
	LayerHistory  LayerKind = "history"
	LayerForecast LayerKind = "forecast"
)

// Layer is one series drawn on the chart.
type Layer struct {
	Kind   LayerKind
	Points series.Series
}

// LayerValue is the point of one layer nearest to the hovered instant.
type LayerValue struct {
	Layer LayerKind `json:"layer"`
	T     int64     `json:"t"`
	Y     float64   `json:"y"`
}

// Hover is the read-out for a pointer position. Timestamp is the instant to display: the
// history point's time unless a forecast point is strictly closer.
type Hover struct {
	QueryT    int64        `json:"queryT"`
	Timestamp int64        `json:"timestamp"`
	Values    []LayerValue `json:"values"`
}

// HitTest finds, per layer, the point nearest to the pointer's time. ok is false when the
// pointer is outside the plot area or no layer has points.
func (p Projector) HitTest(x, y float64, layers ...Layer) (Hover, bool) {
	if !p.layout.Contains(x, y) {
		return Hover{}, false
	}
	queryT := p.TimeAt(x)
	hover := Hover{QueryT: queryT, Timestamp: queryT}

	type candidate struct {
		t    int64
		dist float64
		ok   bool
	}
	var hist, fc candidate
	for _, layer := range layers {
		idx, dist, ok := p.nearest(layer.Points, x, queryT)
		if !ok {
			continue
		}
		pt := layer.Points[idx]
		hover.Values = append(hover.Values, LayerValue{Layer: layer.Kind, T: pt.T, Y: pt.Y})

		c := candidate{t: pt.T, dist: dist, ok: true}
		switch {
		case layer.Kind == LayerHistory && !hist.ok:
			hist = c
		case layer.Kind == LayerForecast && !fc.ok:
			fc = c
		}
	}
	switch {
	case hist.ok && fc.ok && fc.dist < hist.dist:
		hover.Timestamp = fc.t
	case hist.ok:
		hover.Timestamp = hist.t
	case fc.ok:
		hover.Timestamp = fc.t
	}
	if len(hover.Values) == 0 {
		return Hover{}, false
	}
	return hover, true
}

// nearest returns the index of the point closest to queryT, the first one on ties. On a
// degenerate viewport every point shares one instant, so distance is measured in pixels.
func (p Projector) nearest(s series.Series, x float64, queryT int64) (int, float64, bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	degenerate := p.viewport.Degenerate()
	best, bestDist := -1, 0.0
	for i, pt := range s {
		var d float64
		if degenerate {
			d = math.Abs(p.XAt(i, len(s)) - x)
		} else {
			d = math.Abs(float64(pt.T - queryT))
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist, true
}
