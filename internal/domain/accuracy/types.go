package accuracy

// Pair is one forecast point matched to its nearest actual observation.
type Pair struct {
	T         int64   `json:"t"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// Report holds the error metrics of a forecast against actuals.
// MAPE is nil when no pair has a usable (non-zero) actual value.
type Report struct {
	N    int      `json:"n"`
	MAE  float64  `json:"mae"`
	RMSE float64  `json:"rmse"`
	MAPE *float64 `json:"mape,omitempty"`
}

// Status explains why an assessment does or does not carry a report.
type Status string

const (
	StatusNoData     Status = "no_data"
	StatusNoForecast Status = "no_forecast"
	StatusUnaligned  Status = "unaligned"
	StatusOK         Status = "ok"
)

// Assessment is the outcome of aligning a forecast with the current history.
type Assessment struct {
	Status      Status  `json:"status"`
	ToleranceMs int64   `json:"toleranceMs"`
	Pairs       []Pair  `json:"pairs,omitempty"`
	Report      *Report `json:"report,omitempty"`
}
