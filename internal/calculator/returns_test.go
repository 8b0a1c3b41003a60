package calculator

import (
	"errors"
	"math"
	"testing"

	"stockdash/internal/model"
)

func adjSeries(adj ...float64) model.PriceSeries {
	bars := make([]model.PriceBar, len(adj))
	for i, a := range adj {
		bars[i] = model.PriceBar{Date: day(i), Open: a, High: a, Low: a, Close: a, AdjClose: a, Volume: 1}
	}
	return model.PriceSeries{Symbol: "TEST", Bars: bars}
}

func TestPercentChanges_ThreeBars(t *testing.T) {
	changes := PercentChanges(adjSeries(100, 110, 105))
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if math.Abs(changes[0].PctChange-0.10) > 1e-12 {
		t.Errorf("expected 0.10, got %v", changes[0].PctChange)
	}
	if math.Abs(changes[1].PctChange-(-5.0/110.0)) > 1e-12 {
		t.Errorf("expected -0.0454545, got %v", changes[1].PctChange)
	}
	if !changes[0].Date.Equal(day(1)) || changes[1].AdjClose != 105 {
		t.Errorf("unexpected change rows: %+v", changes)
	}
}

func TestPercentChanges_DropsNonFinite(t *testing.T) {
	// 0 -> 10 is +Inf, 0 -> 0 is NaN; both must be dropped.
	changes := PercentChanges(adjSeries(0, 10, 20, 0, 0))
	if len(changes) != 2 {
		t.Fatalf("expected 2 finite changes, got %d: %+v", len(changes), changes)
	}
	if changes[0].PctChange != 1 || changes[1].PctChange != -1 {
		t.Errorf("unexpected changes: %+v", changes)
	}
}

func TestPercentChanges_DoesNotMutateInput(t *testing.T) {
	series := adjSeries(0, 10, 20)
	before := append([]model.PriceBar(nil), series.Bars...)
	PercentChanges(series)
	for i := range before {
		if before[i] != series.Bars[i] {
			t.Fatalf("bar %d mutated", i)
		}
	}
}

func TestComputeReturnStats_ThreeBars(t *testing.T) {
	got, err := ComputeReturnStats(adjSeries(100, 110, 105))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mean := (0.10 + (-5.0 / 110.0)) / 2
	wantReturn := mean * 252 * 100
	if math.Abs(got.AnnualizedReturnPct-wantReturn) > 1e-9 {
		t.Errorf("expected annualized return %.6f, got %.6f", wantReturn, got.AnnualizedReturnPct)
	}
	if math.Abs(got.AnnualizedReturnPct-687.27) > 0.01 {
		t.Errorf("expected annualized return ~687.27, got %.4f", got.AnnualizedReturnPct)
	}
	dev := 0.10 - mean
	wantStd := dev * math.Sqrt(252) * 100
	if math.Abs(got.AnnualizedStdDevPct-wantStd) > 1e-9 {
		t.Errorf("expected annualized std dev %.6f, got %.6f", wantStd, got.AnnualizedStdDevPct)
	}
	if math.Abs(got.RiskAdjustedReturn-wantReturn/wantStd) > 1e-9 {
		t.Errorf("expected risk-adjusted %.6f, got %.6f", wantReturn/wantStd, got.RiskAdjustedReturn)
	}
	if got.Observations != 2 {
		t.Errorf("expected 2 observations, got %d", got.Observations)
	}
}

func TestComputeReturnStats_ConstantPrice(t *testing.T) {
	tests := []struct {
		name   string
		series model.PriceSeries
	}{
		{"two bars", adjSeries(50, 50)},
		{"five bars", adjSeries(50, 50, 50, 50, 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeReturnStats(tt.series)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.AnnualizedReturnPct != 0 || got.AnnualizedStdDevPct != 0 {
				t.Errorf("expected zero return and std dev, got %+v", got)
			}
			if !math.IsNaN(got.RiskAdjustedReturn) {
				t.Errorf("expected NaN risk-adjusted return, got %v", got.RiskAdjustedReturn)
			}
		})
	}
}

func TestComputeReturnStats_Insufficient(t *testing.T) {
	tests := []struct {
		name   string
		series model.PriceSeries
	}{
		{"empty", model.PriceSeries{}},
		{"single bar", adjSeries(100)},
		{"only undefined changes", adjSeries(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeReturnStats(tt.series)
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestComputeReturnStats_Idempotent(t *testing.T) {
	series := adjSeries(101.3, 99.8, 102.4, 103.1, 100.9, 104.6)
	a, err := ComputeReturnStats(series)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := ComputeReturnStats(series)
	if math.Float64bits(a.AnnualizedReturnPct) != math.Float64bits(b.AnnualizedReturnPct) ||
		math.Float64bits(a.AnnualizedStdDevPct) != math.Float64bits(b.AnnualizedStdDevPct) ||
		math.Float64bits(a.RiskAdjustedReturn) != math.Float64bits(b.RiskAdjustedReturn) {
		t.Errorf("results differ between calls: %+v vs %+v", a, b)
	}
}
