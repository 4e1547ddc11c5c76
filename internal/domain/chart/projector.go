package chart

import (
	"math"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

// Pixel is a position on the drawing surface, origin at the top-left.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projector maps data coordinates to pixels and back for one layout and viewport.
type Projector struct {
	layout   Layout
	viewport Viewport
}

func NewProjector(layout Layout, viewport Viewport) Projector {
	return Projector{layout: layout, viewport: viewport}
}

func (p Projector) Layout() Layout     { return p.layout }
func (p Projector) Viewport() Viewport { return p.viewport }

// X maps a time to a horizontal pixel. When the viewport spans a single instant the
// horizontal centre is returned; use XAt to spread such points by index.
func (p Projector) X(t int64) float64 {
	if p.viewport.Degenerate() {
		return p.layout.left() + p.layout.PlotWidth()/2
	}
	ratio := float64(t-p.viewport.TMin) / float64(p.viewport.TMax-p.viewport.TMin)
	return p.layout.left() + p.layout.PlotWidth()*ratio
}

// XAt places point i of n evenly across the plot width. A lone point sits at the centre.
func (p Projector) XAt(i, n int) float64 {
	if n <= 1 {
		return p.layout.left() + p.layout.PlotWidth()/2
	}
	return p.layout.left() + p.layout.PlotWidth()*float64(i)/float64(n-1)
}

// Y maps a value to a vertical pixel; larger values sit higher.
func (p Projector) Y(y float64) float64 {
	ratio := (y - p.viewport.YMin) / (p.viewport.YMax - p.viewport.YMin)
	return p.layout.bottom() - p.layout.PlotHeight()*ratio
}

// Project maps every point of s, spreading points by index when the viewport is degenerate.
func (p Projector) Project(s series.Series) []Pixel {
	out := make([]Pixel, len(s))
	degenerate := p.viewport.Degenerate()
	for i, pt := range s {
		x := p.X(pt.T)
		if degenerate {
			x = p.XAt(i, len(s))
		}
		out[i] = Pixel{X: x, Y: p.Y(pt.Y)}
	}
	return out
}

// TimeAt inverts the horizontal mapping. Degenerate viewports always yield their single instant.
func (p Projector) TimeAt(x float64) int64 {
	if p.viewport.Degenerate() {
		return p.viewport.TMin
	}
	ratio := (x - p.layout.left()) / p.layout.PlotWidth()
	span := float64(p.viewport.TMax - p.viewport.TMin)
	return p.viewport.TMin + int64(math.Round(span*ratio))
}

// ValueAt inverts the vertical mapping.
func (p Projector) ValueAt(y float64) float64 {
	ratio := (p.layout.bottom() - y) / p.layout.PlotHeight()
	return p.viewport.YMin + (p.viewport.YMax-p.viewport.YMin)*ratio
}

// TimeResolution is the number of milliseconds covered by one horizontal pixel.
func (p Projector) TimeResolution() float64 {
	return float64(p.viewport.TMax-p.viewport.TMin) / p.layout.PlotWidth()
}
