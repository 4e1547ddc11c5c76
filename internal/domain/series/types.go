package series

// RawRecord is a timestamp/value pair exactly as the source delivered it.
type RawRecord struct {
	Timestamp string `json:"timestamp"`
	Value     string `json:"value"`
}

// Point is a normalized sample: epoch milliseconds and a finite value.
type Point struct {
	T int64   `json:"t"`
	Y float64 `json:"y"`
}

// Series is an ordered run of points. Duplicated timestamps are kept as-is.
// A Series is never mutated once built; refreshes produce a new slice.
type Series []Point

// Len reports the number of points.
func (s Series) Len() int {
	return len(s)
}

// Empty reports whether the series carries no data.
func (s Series) Empty() bool {
	return len(s) == 0
}

// Bounds returns the min/max of T and Y across the series. ok is false for an empty series.
func (s Series) Bounds() (tMin, tMax int64, yMin, yMax float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, 0, 0, false
	}
	tMin, tMax = s[0].T, s[0].T
	yMin, yMax = s[0].Y, s[0].Y
	for _, p := range s[1:] {
		if p.T < tMin {
			tMin = p.T
		}
		if p.T > tMax {
			tMax = p.T
		}
		if p.Y < yMin {
			yMin = p.Y
		}
		if p.Y > yMax {
			yMax = p.Y
		}
	}
	return tMin, tMax, yMin, yMax, true
}

// Forecast is an externally produced series plus its own sampling interval (0 when unknown).
type Forecast struct {
	Points     Series `json:"points"`
	IntervalMs int64  `json:"intervalMs"`
}

// Empty reports whether the forecast has no usable points.
func (f Forecast) Empty() bool {
	return len(f.Points) == 0
}
