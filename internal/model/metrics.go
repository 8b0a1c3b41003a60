package model

import "time"

// SummaryMetrics holds point-in-time figures for the whole requested window.
type SummaryMetrics struct {
	LastClose     float64
	Change        float64 // last close minus first close of the window
	PercentChange float64 // NaN when the first close is zero
	PeriodHigh    float64
	PeriodLow     float64
	TotalVolume   int64
}

// ReturnStats holds annualized return/risk figures derived from daily adjusted-close changes.
type ReturnStats struct {
	AnnualizedReturnPct float64
	AnnualizedStdDevPct float64
	RiskAdjustedReturn  float64 // NaN when the standard deviation is zero
	Observations        int
}

// BarChange is a single row of the pricing table: the adjusted close and its
// fractional change from the previous bar.
type BarChange struct {
	Date      time.Time
	AdjClose  float64
	PctChange float64
}

// Report is the full result of one analysis request.
type Report struct {
	Request     AnalysisRequest
	Source      string
	Series      PriceSeries
	Summary     SummaryMetrics
	Returns     *ReturnStats // nil when there was not enough data
	Changes     []BarChange
	GeneratedAt time.Time
}
