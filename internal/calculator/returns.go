package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"stockdash/internal/model"
)

// TradingDaysPerYear is the annualization factor for daily bars.
const TradingDaysPerYear = 252

// PercentChanges computes the fractional adjusted-close change of every bar
// against its predecessor. The first bar has no predecessor and is omitted,
// as is any bar whose change is not finite (e.g. previous adjusted close of 0).
func PercentChanges(series model.PriceSeries) []model.BarChange {
	if series.Len() < 2 {
		return nil
	}
	changes := make([]model.BarChange, 0, series.Len()-1)
	for i := 1; i < series.Len(); i++ {
		prev := series.Bars[i-1].AdjClose
		cur := series.Bars[i]
		pct := (cur.AdjClose - prev) / prev
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			continue
		}
		changes = append(changes, model.BarChange{
			Date:      cur.Date,
			AdjClose:  cur.AdjClose,
			PctChange: pct,
		})
	}
	return changes
}

// ComputeReturnStats annualizes the mean and population standard deviation of
// daily adjusted-close changes. RiskAdjustedReturn is NaN for a flat series.
func ComputeReturnStats(series model.PriceSeries) (model.ReturnStats, error) {
	changes := PercentChanges(series)
	if len(changes) == 0 {
		return model.ReturnStats{}, ErrInsufficientData
	}

	pcts := make([]float64, len(changes))
	for i, c := range changes {
		pcts[i] = c.PctChange
	}

	mean, std := stat.PopMeanStdDev(pcts, nil)
	if len(pcts) == 1 {
		std = 0 // single observation has no spread
	}

	annReturn := mean * TradingDaysPerYear * 100
	annStdDev := std * math.Sqrt(TradingDaysPerYear) * 100

	risk := math.NaN()
	if annStdDev != 0 {
		risk = annReturn / annStdDev
	}

	return model.ReturnStats{
		AnnualizedReturnPct: annReturn,
		AnnualizedStdDevPct: annStdDev,
		RiskAdjustedReturn:  risk,
		Observations:        len(pcts),
	}, nil
}
