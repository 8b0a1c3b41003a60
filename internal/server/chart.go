package server

import (
	"fmt"

	"stockdash/internal/model"
)

// ChartPoint is one x position of a chart series. OHLC fields are set for
// candlestick charts, Value for line charts.
type ChartPoint struct {
	Date  string   `json:"date"`
	Open  *float64 `json:"open,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Low   *float64 `json:"low,omitempty"`
	Close *float64 `json:"close,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// Chart is plain chart data handed to whatever renders it.
type Chart struct {
	Type   model.ChartType `json:"type"`
	Title  string          `json:"title"`
	XLabel string          `json:"x_label"`
	YLabel string          `json:"y_label"`
	Points []ChartPoint    `json:"points"`
}

// BuildChart converts the report's bars into a candlestick or line series.
func BuildChart(r *model.Report) Chart {
	ticker := r.Request.Ticker
	c := Chart{Type: r.Request.Chart, XLabel: "Date", YLabel: "Price"}
	bars := r.Series.Bars
	c.Points = make([]ChartPoint, 0, len(bars))

	switch r.Request.Chart {
	case model.ChartLine:
		c.Title = fmt.Sprintf("%s Line Chart", ticker)
		c.YLabel = "Adj Close"
		for _, b := range bars {
			c.Points = append(c.Points, ChartPoint{
				Date:  b.Date.Format(model.DateLayout),
				Value: finite(b.AdjClose),
			})
		}
	default:
		c.Type = model.ChartCandlestick
		c.Title = fmt.Sprintf("%s Candlestick Chart", ticker)
		for _, b := range bars {
			c.Points = append(c.Points, ChartPoint{
				Date:  b.Date.Format(model.DateLayout),
				Open:  finite(b.Open),
				High:  finite(b.High),
				Low:   finite(b.Low),
				Close: finite(b.Close),
			})
		}
	}
	return c
}
