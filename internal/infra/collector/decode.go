package collector

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/yanqian/telemetry-trend/internal/domain/series"
)

// DecodeHistory parses a history payload: an array of {timestamp, value}. An empty body is no data.
func DecodeHistory(body []byte) ([]series.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var entries []entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("decode collector response: %w", err)
	}
	return toRecords(entries), nil
}

// DecodeForecast parses a predict payload, {predictionPoints: [...]}. A bare array is accepted too.
func DecodeForecast(body []byte) ([]series.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return DecodeHistory(trimmed)
	}
	var payload predictResponse
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("decode collector response: %w", err)
	}
	return toRecords(payload.PredictionPoints), nil
}

type predictResponse struct {
	PredictionPoints []entry `json:"predictionPoints"`
}

type entry struct {
	Timestamp flexTimestamp `json:"timestamp"`
	Value     flexValue     `json:"value"`
}

// flexTimestamp keeps string timestamps; any other token becomes empty so the record is dropped
// on its own instead of failing the whole payload.
type flexTimestamp string

func (ts *flexTimestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*ts = ""
		return nil
	}
	*ts = flexTimestamp(s)
	return nil
}

// flexValue accepts a JSON string or number and keeps its text form. Anything else becomes empty.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*v = ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = flexValue(s)
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			*v = ""
			return nil
		}
		*v = flexValue(n.String())
	}
	return nil
}

func toRecords(entries []entry) []series.RawRecord {
	out := make([]series.RawRecord, 0, len(entries))
	for _, e := range entries {
		out = append(out, series.RawRecord{Timestamp: string(e.Timestamp), Value: string(e.Value)})
	}
	return out
}
