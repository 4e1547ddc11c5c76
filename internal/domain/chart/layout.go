package chart

import (
	"fmt"
	"math"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

// Margins reserve room around the plot area for axis labels.
type Margins struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// DefaultMargins leave space for value labels on the left and time labels below.
var DefaultMargins = Margins{Left: 60, Right: 20, Top: 20, Bottom: 40}

// MaxDimension bounds either side of a surface; a PNG surface is allocated in full.
const MaxDimension = 4096

// Layout is the pixel geometry of a drawing surface.
type Layout struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Margins Margins `json:"margins"`
}

// NewLayout returns a layout with the default margins. The plot area must be non-empty.
func NewLayout(width, height int) (Layout, error) {
	l := Layout{Width: width, Height: height, Margins: DefaultMargins}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate reports whether the surface is within MaxDimension and the margins leave a drawable
// plot area.
func (l Layout) Validate() error {
	if l.Width > MaxDimension || l.Height > MaxDimension {
		return fmt.Errorf("layout %dx%d exceeds the %dpx limit", l.Width, l.Height, MaxDimension)
	}
	if l.Width-l.Margins.Left-l.Margins.Right <= 0 || l.Height-l.Margins.Top-l.Margins.Bottom <= 0 {
		return fmt.Errorf("layout %dx%d leaves no plot area", l.Width, l.Height)
	}
	return nil
}

func (l Layout) PlotWidth() float64 {
	return float64(l.Width - l.Margins.Left - l.Margins.Right)
}

func (l Layout) PlotHeight() float64 {
	return float64(l.Height - l.Margins.Top - l.Margins.Bottom)
}

func (l Layout) left() float64   { return float64(l.Margins.Left) }
func (l Layout) right() float64  { return float64(l.Width - l.Margins.Right) }
func (l Layout) top() float64    { return float64(l.Margins.Top) }
func (l Layout) bottom() float64 { return float64(l.Height - l.Margins.Bottom) }

// Contains reports whether the pixel lies inside the plot area, borders included.
func (l Layout) Contains(x, y float64) bool {
	return x >= l.left() && x <= l.right() && y >= l.top() && y <= l.bottom()
}

// Viewport is the data-space rectangle mapped onto the plot area.
type Viewport struct {
	TMin int64   `json:"tMin"`
	TMax int64   `json:"tMax"`
	YMin float64 `json:"yMin"`
	YMax float64 `json:"yMax"`
}

// Degenerate reports whether every displayed point shares one instant.
func (v Viewport) Degenerate() bool {
	return v.TMax == v.TMin
}

const valuePadding = 0.1

// ComputeViewport spans the union of all layers. A flat value range widens by one unit each way
// before a 10% pad is added; time bounds stay exact. ok is false when no layer has points.
func ComputeViewport(layers ...series.Series) (Viewport, bool) {
	var (
		vp    Viewport
		found bool
	)
	for _, layer := range layers {
		tMin, tMax, yMin, yMax, ok := layer.Bounds()
		if !ok {
			continue
		}
		if !found {
			vp = Viewport{TMin: tMin, TMax: tMax, YMin: yMin, YMax: yMax}
			found = true
			continue
		}
		vp.TMin = min(vp.TMin, tMin)
		vp.TMax = max(vp.TMax, tMax)
		vp.YMin = math.Min(vp.YMin, yMin)
		vp.YMax = math.Max(vp.YMax, yMax)
	}
	if !found {
		return Viewport{}, false
	}
	if vp.YMin == vp.YMax {
		vp.YMin--
		vp.YMax++
	}
	pad := (vp.YMax - vp.YMin) * valuePadding
	vp.YMin -= pad
	vp.YMax += pad
	return vp, true
}
