package recorder

import (
	"time"

	"stockdash/internal/model"
)

// Snapshot is one recorded analysis run. Pointer fields are nil when the
// value was not available (suppressed statistics or NaN).
type Snapshot struct {
	ID                  int64     `json:"id"`
	Ticker              string    `json:"ticker"`
	Source              string    `json:"source"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	Bars                int       `json:"bars"`
	LastClose           float64   `json:"last_close"`
	Change              float64   `json:"change"`
	PercentChange       *float64  `json:"percent_change"`
	PeriodHigh          float64   `json:"period_high"`
	PeriodLow           float64   `json:"period_low"`
	TotalVolume         int64     `json:"total_volume"`
	AnnualizedReturnPct *float64  `json:"annualized_return_pct"`
	AnnualizedStdDevPct *float64  `json:"annualized_std_dev_pct"`
	RiskAdjustedReturn  *float64  `json:"risk_adjusted_return"`
	RecordedAt          time.Time `json:"recorded_at"`
}

// Recorder persists analysis history.
type Recorder interface {
	RecordAnalysis(report *model.Report) error
	History(ticker string, limit int) ([]Snapshot, error)
	Close() error
}
