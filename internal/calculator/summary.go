package calculator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"

	"stockdash/internal/model"
)

var (
	// ErrEmptyInput is returned when a computation receives a series with no bars.
	ErrEmptyInput = errors.New("price series is empty")
	// ErrInsufficientData is returned when fewer than one usable daily change remains.
	ErrInsufficientData = errors.New("not enough data for return statistics")
)

// ComputeSummary returns last close, window change, high/low and total volume.
// Change is measured from the first bar of the window, not the previous bar.
// PercentChange is NaN when the first close is zero.
func ComputeSummary(series model.PriceSeries) (model.SummaryMetrics, error) {
	if series.Len() == 0 {
		return model.SummaryMetrics{}, ErrEmptyInput
	}

	highs := make([]float64, series.Len())
	lows := make([]float64, series.Len())
	var volume int64
	for i, b := range series.Bars {
		highs[i] = b.High
		lows[i] = b.Low
		volume += b.Volume
	}

	firstClose := series.First().Close
	lastClose := series.Last().Close
	change := lastClose - firstClose

	pct := math.NaN()
	if firstClose != 0 {
		pct = change / firstClose * 100
	}

	return model.SummaryMetrics{
		LastClose:     lastClose,
		Change:        change,
		PercentChange: pct,
		PeriodHigh:    floats.Max(highs),
		PeriodLow:     floats.Min(lows),
		TotalVolume:   volume,
	}, nil
}
