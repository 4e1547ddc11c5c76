package series

import "time"

// Toolkit is the small parsing/normalizing contract shared by the view components.
type Toolkit interface {
	ParseTimestamp(raw string) (int64, bool)
	BuildSeries(records []RawRecord) Series
	BuildForecast(records []RawRecord) Forecast
	EstimateInterval(s Series) int64
}

type toolkit struct {
	parser     Parser
	normalizer Normalizer
}

// NewToolkit returns the Toolkit that reads zoneless timestamps in loc.
func NewToolkit(loc *time.Location) Toolkit {
	parser := NewParser(loc)
	return toolkit{parser: parser, normalizer: NewNormalizer(parser)}
}

func (t toolkit) ParseTimestamp(raw string) (int64, bool) {
	return t.parser.Parse(raw)
}

func (t toolkit) BuildSeries(records []RawRecord) Series {
	return t.normalizer.Build(records)
}

func (t toolkit) BuildForecast(records []RawRecord) Forecast {
	return t.normalizer.BuildForecast(records)
}

func (t toolkit) EstimateInterval(s Series) int64 {
	return EstimateInterval(s)
}
