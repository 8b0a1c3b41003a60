package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockdash/internal/calculator"
	"stockdash/internal/model"
)

var (
	// ErrNoData means the provider returned no bars for the requested range.
	ErrNoData = errors.New("no data available")
	// ErrInvalidRequest is returned for an unusable ticker or date range.
	ErrInvalidRequest = errors.New("invalid analysis request")
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  []model.PriceBar
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	if m.Bars != nil {
		return model.NewPriceSeries(symbol, m.Bars), nil
	}
	return model.NewPriceSeries(symbol, generateMockBars(m.Price, truncateDay(start), truncateDay(end))), nil
}

// generateMockBars produces one weekday bar per day in [start, end].
func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	var bars []model.PriceBar
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%7-3)*0.004)
		bars = append(bars, model.PriceBar{
			Date:     d,
			Open:     p * 0.999,
			High:     p * 1.005,
			Low:      p * 0.995,
			Close:    p,
			AdjClose: p,
			Volume:   1000000,
		})
		i++
	}
	return bars
}

// Collector orchestrates data fetching and metric computation.
type Collector struct {
	Fetcher Fetcher
	Now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher, Now: time.Now}
}

// Analyze fetches the requested range and computes summary and return statistics.
// An empty range yields an error wrapping ErrNoData. When there are too few bars
// for return statistics the report is still produced with Returns set to nil.
func (c *Collector) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.Report, error) {
	req.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if req.Ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRequest,
			req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout))
	}
	if req.Chart == "" {
		req.Chart = model.ChartCandlestick
	}

	series, err := c.Fetcher.FetchBars(ctx, req.Ticker, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars: %w", req.Ticker, err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w for %s from %s to %s", ErrNoData, req.Ticker,
			req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout))
	}

	summary, err := calculator.ComputeSummary(series)
	if err != nil {
		return nil, fmt.Errorf("compute summary: %w", err)
	}

	report := &model.Report{
		Request:     req,
		Source:      c.Fetcher.Name(),
		Series:      series,
		Summary:     summary,
		Changes:     calculator.PercentChanges(series),
		GeneratedAt: c.Now(),
	}

	stats, err := calculator.ComputeReturnStats(series)
	switch {
	case errors.Is(err, calculator.ErrInsufficientData):
		log.Printf("[WARN] %s: return statistics skipped: %v", req.Ticker, err)
	case err != nil:
		return nil, fmt.Errorf("compute return stats: %w", err)
	default:
		report.Returns = &stats
	}

	return report, nil
}
