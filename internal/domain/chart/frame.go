package chart

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
	"github.com/yanqian/telemetry-trend/pkg/util"
)

const tickCount = 5

// Tick is an axis label anchored at a pixel offset along its axis.
type Tick struct {
	Pos   float64 `json:"pos"`
	Label string  `json:"label"`
}

// DrawnLayer is a layer already mapped to pixels.
type DrawnLayer struct {
	Kind   LayerKind `json:"kind"`
	Pixels []Pixel   `json:"pixels"`
}

// Frame is everything a renderer needs to draw one chart. An empty frame carries only the layout.
type Frame struct {
	Layout   Layout       `json:"layout"`
	Viewport Viewport     `json:"viewport"`
	Empty    bool         `json:"empty"`
	XTicks   []Tick       `json:"xTicks,omitempty"`
	YTicks   []Tick       `json:"yTicks,omitempty"`
	Layers   []DrawnLayer `json:"layers,omitempty"`
}

// Compose projects history and forecast onto one shared viewport. Without history there is
// nothing to anchor the chart, so the frame is empty.
func Compose(layout Layout, history, forecast series.Series, loc *time.Location) Frame {
	if history.Empty() {
		return Frame{Layout: layout, Empty: true}
	}
	vp, _ := ComputeViewport(history, forecast)
	p := NewProjector(layout, vp)

	frame := Frame{
		Layout:   layout,
		Viewport: vp,
		XTicks:   p.TimeTicks(loc),
		YTicks:   p.ValueTicks(),
		Layers:   []DrawnLayer{{Kind: LayerHistory, Pixels: p.Project(history)}},
	}
	if !forecast.Empty() {
		frame.Layers = append(frame.Layers, DrawnLayer{Kind: LayerForecast, Pixels: p.Project(forecast)})
	}
	return frame
}

// ValueTicks labels evenly spaced horizontal grid lines from the top of the plot down.
func (p Projector) ValueTicks() []Tick {
	ticks := make([]Tick, tickCount)
	for i := range ticks {
		ratio := float64(i) / float64(tickCount-1)
		v := p.viewport.YMax - (p.viewport.YMax-p.viewport.YMin)*ratio
		ticks[i] = Tick{
			Pos:   p.layout.top() + p.layout.PlotHeight()*ratio,
			Label: fmt.Sprintf("%.2f", v),
		}
	}
	return ticks
}

// TimeTicks labels evenly spaced instants along the time axis as HH:MM:SS in loc.
func (p Projector) TimeTicks(loc *time.Location) []Tick {
	ticks := make([]Tick, tickCount)
	span := float64(p.viewport.TMax - p.viewport.TMin)
	for i := range ticks {
		ratio := float64(i) / float64(tickCount-1)
		ms := p.viewport.TMin + int64(span*ratio)
		ticks[i] = Tick{
			Pos:   p.layout.left() + p.layout.PlotWidth()*ratio,
			Label: util.FromEpochMillis(ms, loc).Format(time.TimeOnly),
		}
	}
	return ticks
}

// Format selects the image encoding of a rendered chart.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png" in any case; empty means SVG.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatSVG:
		return FormatSVG, nil
	case FormatPNG:
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", raw)
	}
}

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Renderer draws a composed frame.
type Renderer interface {
	Render(ctx context.Context, w io.Writer, frame Frame, format Format) error
}
