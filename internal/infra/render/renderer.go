package render

import (
	"context"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/yanqian/telemetry-trend/internal/domain/chart"
)

// Palette holds the colours of a rendered chart.
type Palette struct {
	Background drawing.Color
	Frame      drawing.Color
	Grid       drawing.Color
	Label      drawing.Color
	History    drawing.Color
	Marker     drawing.Color
	Forecast   drawing.Color
}

// DefaultPalette draws cyan history with orange forecasts on a dark panel.
var DefaultPalette = Palette{
	Background: drawing.ColorFromHex("0b1626"),
	Frame:      drawing.Color{R: 0, G: 191, B: 255, A: 89},
	Grid:       drawing.Color{R: 0, G: 191, B: 255, A: 38},
	Label:      drawing.ColorFromHex("7fdcff"),
	History:    drawing.ColorFromHex("00bfff"),
	Marker:     drawing.ColorFromHex("7fdcff"),
	Forecast:   drawing.ColorFromHex("ffa500"),
}

const (
	lineWidth    = 2.0
	markerRadius = 2.5
	fontSize     = 10.0
	labelGap     = 6
	noDataText   = "no data"
)

var forecastDash = []float64{6, 4}

// Renderer draws chart frames with go-chart's low-level SVG and PNG backends. Pixel positions
// come from the frame as-is, so the image matches hover hit-testing exactly.
type Renderer struct {
	palette Palette
}

// New returns a renderer using p; a zero palette selects DefaultPalette.
func New(p Palette) *Renderer {
	if p == (Palette{}) {
		p = DefaultPalette
	}
	return &Renderer{palette: p}
}

// Render implements chart.Renderer.
func (r *Renderer) Render(ctx context.Context, w io.Writer, frame chart.Frame, format chart.Format) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	provider, err := providerFor(format)
	if err != nil {
		return err
	}
	rr, err := provider(frame.Layout.Width, frame.Layout.Height)
	if err != nil {
		return fmt.Errorf("create %s renderer: %w", format, err)
	}
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return fmt.Errorf("load chart font: %w", err)
	}
	rr.SetFont(font)
	rr.SetFontSize(fontSize)

	r.drawBackground(rr, frame.Layout)
	r.drawPlotFrame(rr, frame.Layout)
	if frame.Empty {
		r.drawNoData(rr, frame.Layout)
		return rr.Save(w)
	}

	r.drawValueAxis(rr, frame)
	r.drawTimeAxis(rr, frame)
	for _, layer := range frame.Layers {
		switch layer.Kind {
		case chart.LayerHistory:
			r.drawLine(rr, layer.Pixels, r.palette.History, nil)
			r.drawMarkers(rr, layer.Pixels)
		case chart.LayerForecast:
			r.drawLine(rr, layer.Pixels, r.palette.Forecast, forecastDash)
		}
	}
	return rr.Save(w)
}

func providerFor(format chart.Format) (gochart.RendererProvider, error) {
	switch format {
	case chart.FormatSVG, "":
		return gochart.SVG, nil
	case chart.FormatPNG:
		return gochart.PNG, nil
	default:
		return nil, fmt.Errorf("unsupported chart format %q", format)
	}
}

func (r *Renderer) drawBackground(rr gochart.Renderer, l chart.Layout) {
	rr.SetFillColor(r.palette.Background)
	rr.SetStrokeColor(drawing.ColorTransparent)
	rr.SetStrokeWidth(0)
	rect(rr, 0, 0, l.Width, l.Height)
	rr.Fill()
}

func (r *Renderer) drawPlotFrame(rr gochart.Renderer, l chart.Layout) {
	rr.SetStrokeColor(r.palette.Frame)
	rr.SetStrokeWidth(1)
	rr.SetStrokeDashArray(nil)
	rect(rr, l.Margins.Left, l.Margins.Top, l.Width-l.Margins.Right, l.Height-l.Margins.Bottom)
	rr.Stroke()
}

func (r *Renderer) drawNoData(rr gochart.Renderer, l chart.Layout) {
	rr.SetFontColor(r.palette.Label)
	box := rr.MeasureText(noDataText)
	x := l.Margins.Left + (l.Width-l.Margins.Left-l.Margins.Right-box.Width())/2
	y := l.Margins.Top + (l.Height-l.Margins.Top-l.Margins.Bottom+box.Height())/2
	rr.Text(noDataText, x, y)
}

// drawValueAxis draws horizontal grid lines with right-aligned labels left of the plot.
func (r *Renderer) drawValueAxis(rr gochart.Renderer, frame chart.Frame) {
	l := frame.Layout
	rr.SetFontColor(r.palette.Label)
	for _, tick := range frame.YTicks {
		y := round(tick.Pos)
		rr.SetStrokeColor(r.palette.Grid)
		rr.SetStrokeWidth(1)
		rr.MoveTo(l.Margins.Left, y)
		rr.LineTo(l.Width-l.Margins.Right, y)
		rr.Stroke()

		box := rr.MeasureText(tick.Label)
		rr.Text(tick.Label, l.Margins.Left-labelGap-box.Width(), y+box.Height()/2)
	}
}

// drawTimeAxis centres time labels under the plot.
func (r *Renderer) drawTimeAxis(rr gochart.Renderer, frame chart.Frame) {
	l := frame.Layout
	rr.SetFontColor(r.palette.Label)
	baseline := l.Height - l.Margins.Bottom + labelGap
	for _, tick := range frame.XTicks {
		box := rr.MeasureText(tick.Label)
		rr.Text(tick.Label, round(tick.Pos)-box.Width()/2, baseline+box.Height())
	}
}

func (r *Renderer) drawLine(rr gochart.Renderer, pixels []chart.Pixel, color drawing.Color, dash []float64) {
	if len(pixels) == 0 {
		return
	}
	rr.SetStrokeColor(color)
	rr.SetStrokeWidth(lineWidth)
	rr.SetStrokeDashArray(dash)
	rr.MoveTo(round(pixels[0].X), round(pixels[0].Y))
	for _, px := range pixels[1:] {
		rr.LineTo(round(px.X), round(px.Y))
	}
	rr.Stroke()
	rr.SetStrokeDashArray(nil)
}

func (r *Renderer) drawMarkers(rr gochart.Renderer, pixels []chart.Pixel) {
	rr.SetFillColor(r.palette.Marker)
	rr.SetStrokeColor(r.palette.Marker)
	rr.SetStrokeWidth(1)
	for _, px := range pixels {
		rr.Circle(markerRadius, round(px.X), round(px.Y))
		rr.FillStroke()
	}
}

func rect(rr gochart.Renderer, left, top, right, bottom int) {
	rr.MoveTo(left, top)
	rr.LineTo(right, top)
	rr.LineTo(right, bottom)
	rr.LineTo(left, bottom)
	rr.LineTo(left, top)
	rr.Close()
}

func round(v float64) int {
	return int(math.Round(v))
}

var _ chart.Renderer = (*Renderer)(nil)
