package model

import (
	"sort"
	"time"
)

// PriceBar represents one trading day of OHLCV data plus the adjusted close.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	AdjClose float64
	Volume   int64
}

// PriceSeries holds chronologically ordered bars for a single symbol.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

func (s PriceSeries) Len() int { return len(s.Bars) }

// First returns the earliest bar. The series must not be empty.
func (s PriceSeries) First() PriceBar { return s.Bars[0] }

// Last returns the latest bar. The series must not be empty.
func (s PriceSeries) Last() PriceBar { return s.Bars[len(s.Bars)-1] }

// NewPriceSeries copies bars, sorts them by date and drops duplicate dates
// (the later entry wins).
func NewPriceSeries(symbol string, bars []PriceBar) PriceSeries {
	sorted := make([]PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, b := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return PriceSeries{Symbol: symbol, Bars: out}
}

// ChartType selects how the price series is charted.
type ChartType string

const (
	ChartCandlestick ChartType = "candlestick"
	ChartLine        ChartType = "line"
)

// Valid reports whether c is a known chart type.
func (c ChartType) Valid() bool {
	return c == ChartCandlestick || c == ChartLine
}

// AnalysisRequest describes one dashboard query. Start and End are inclusive.
type AnalysisRequest struct {
	Ticker string
	Start  time.Time
	End    time.Time
	Chart  ChartType
}

// DateLayout is the calendar date format used in requests and messages.
const DateLayout = "2006-01-02"
