package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const yahooFixture = `{
  "chart": {
    "result": [{
      "meta": {"gmtoffset": -18000},
      "timestamp": [1704205800, 1704292200, 1704378600],
      "indicators": {
        "quote": [{
          "open":   [100.0, null, 109.0],
          "high":   [101.0, null, 111.0],
          "low":    [99.0,  null, 105.0],
          "close":  [100.5, null, 110.0],
          "volume": [1000,  null, 2000]
        }],
        "adjclose": [{"adjclose": [100.0, null, 109.5]}]
      }
    }],
    "error": null
  }
}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotPath, gotPeriod1, gotPeriod2 string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotPeriod1 = r.URL.Query().Get("period1")
		gotPeriod2 = r.URL.Query().Get("period2")
		_, _ = w.Write([]byte(yahooFixture))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	series, err := f.FetchBars(context.Background(), "NVDA", date(2024, 1, 2), date(2024, 1, 4))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/NVDA", gotPath)
	assert.Equal(t, "1704153600", gotPeriod1)
	assert.Equal(t, "1704412800", gotPeriod2, "end date must be inclusive")

	require.Equal(t, 2, series.Len(), "null row should be skipped")
	assert.Equal(t, "NVDA", series.Symbol)
	assert.True(t, series.First().Date.Equal(date(2024, 1, 2)))
	assert.True(t, series.Last().Date.Equal(date(2024, 1, 4)))
	assert.Equal(t, 100.5, series.First().Close)
	assert.Equal(t, 100.0, series.First().AdjClose)
	assert.Equal(t, int64(2000), series.Last().Volume)
}

func TestYahooFetcher_SkipsRowsWithoutClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"meta": {"gmtoffset": 0},
			"timestamp": [1704153600, 1704240000, 1704326400],
			"indicators": {
				"quote": [{
					"open":   [100.0, 101.0, 102.0],
					"high":   [101.0, 103.0, 104.0],
					"low":    [99.0,  100.0, 101.0],
					"close":  [100.5, 102.0, null],
					"volume": [1000,  1500,  500]
				}],
				"adjclose": [{"adjclose": [100.5, 102.0, null]}]
			}
		}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	series, err := f.FetchBars(context.Background(), "NVDA", date(2024, 1, 2), date(2024, 1, 4))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len(), "row with null close must be dropped")
	assert.True(t, series.Last().Date.Equal(date(2024, 1, 3)))
	assert.Equal(t, 102.0, series.Last().Close)
	assert.Equal(t, 102.0, series.Last().AdjClose)
}

func TestYahooFetcher_SymbolMapAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/^GSPC", r.URL.Path)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	_, err := f.FetchBars(context.Background(), "SPX500", date(2024, 1, 2), date(2024, 1, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol may be delisted")
}

func TestYahooFetcher_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{},"indicators":{"quote":[{}]}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	series, err := f.FetchBars(context.Background(), "NVDA", date(2024, 1, 6), date(2024, 1, 7))
	require.NoError(t, err)
	assert.Equal(t, 0, series.Len())
}

func TestAlphaVantageFetcher_FetchBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY_ADJUSTED", r.URL.Query().Get("function"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{
			"Meta Data": {"2. Symbol": "IBM", "5. Time Zone": "US/Eastern"},
			"Time Series (Daily)": {
				"2024-01-04": {"1. open": "109", "2. high": "111", "3. low": "105", "4. close": "110", "5. adjusted close": "109.5", "6. volume": "2000"},
				"2024-01-02": {"1. open": "100", "2. high": "101", "3. low": "99", "4. close": "100.5", "5. adjusted close": "100", "6. volume": "1000"},
				"2023-12-29": {"1. open": "90", "2. high": "91", "3. low": "89", "4. close": "90", "5. adjusted close": "90", "6. volume": "10"}
			}
		}`))
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "")
	f.BaseURL = srv.URL

	series, err := f.FetchBars(context.Background(), "IBM", date(2024, 1, 1), date(2024, 1, 4))
	require.NoError(t, err)
	require.Equal(t, 2, series.Len(), "bars outside the range must be dropped")

	first := series.First()
	assert.True(t, first.Date.Equal(date(2024, 1, 2)), "bars must be sorted")
	assert.Equal(t, 100.5, first.Close)
	assert.Equal(t, 100.0, first.AdjClose)
	assert.Equal(t, int64(1000), first.Volume)
	assert.Equal(t, 109.5, series.Last().AdjClose)
}

func TestAlphaVantageFetcher_APIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day."}`))
	}))
	defer srv.Close()

	f := NewAlphaVantageFetcher("demo", "")
	f.BaseURL = srv.URL

	_, err := f.FetchBars(context.Background(), "IBM", date(2024, 1, 1), date(2024, 1, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestCollector_Analyze(t *testing.T) {
	c := NewCollector(&MockFetcher{Bars: []model.PriceBar{
		{Date: date(2024, 1, 2), Open: 100, High: 101, Low: 99, Close: 100, AdjClose: 100, Volume: 1000},
		{Date: date(2024, 1, 3), Open: 108, High: 111, Low: 105, Close: 110, AdjClose: 110, Volume: 2000},
	}})

	report, err := c.Analyze(context.Background(), model.AnalysisRequest{
		Ticker: " nvda ",
		Start:  date(2024, 1, 1),
		End:    date(2024, 1, 31),
	})
	require.NoError(t, err)

	assert.Equal(t, "NVDA", report.Request.Ticker)
	assert.Equal(t, model.ChartCandlestick, report.Request.Chart)
	assert.Equal(t, "mock", report.Source)
	assert.Equal(t, model.SummaryMetrics{LastClose: 110, Change: 10, PercentChange: 10, PeriodHigh: 111, PeriodLow: 99, TotalVolume: 3000}, report.Summary)
	require.NotNil(t, report.Returns)
	assert.Equal(t, 1, report.Returns.Observations)
	assert.Len(t, report.Changes, 1)
}

func TestCollector_AnalyzeNoData(t *testing.T) {
	c := NewCollector(&MockFetcher{Bars: []model.PriceBar{}})

	_, err := c.Analyze(context.Background(), model.AnalysisRequest{
		Ticker: "ZZZZ",
		Start:  date(2024, 1, 1),
		End:    date(2024, 1, 31),
	})
	require.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "no data available for ZZZZ from 2024-01-01 to 2024-01-31", err.Error())
}

func TestCollector_AnalyzeSingleBarSuppressesReturns(t *testing.T) {
	c := NewCollector(&MockFetcher{Bars: []model.PriceBar{
		{Date: date(2024, 1, 2), Open: 50, High: 51, Low: 49, Close: 50, AdjClose: 50, Volume: 10},
	}})

	report, err := c.Analyze(context.Background(), model.AnalysisRequest{Ticker: "ONE", Start: date(2024, 1, 2), End: date(2024, 1, 2)})
	require.NoError(t, err)
	assert.Nil(t, report.Returns)
	assert.Equal(t, 0.0, report.Summary.Change)
}

func TestCollector_AnalyzeInvalidRequest(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 100})

	_, err := c.Analyze(context.Background(), model.AnalysisRequest{Start: date(2024, 1, 1), End: date(2024, 1, 2)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = c.Analyze(context.Background(), model.AnalysisRequest{Ticker: "NVDA", Start: date(2024, 2, 1), End: date(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCollector_AnalyzeFetchError(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewCollector(&MockFetcher{Err: boom})

	_, err := c.Analyze(context.Background(), model.AnalysisRequest{Ticker: "NVDA", Start: date(2024, 1, 1), End: date(2024, 1, 2)})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestMockFetcher_GeneratesWeekdays(t *testing.T) {
	m := &MockFetcher{Price: 100}
	// 2024-01-01 is a Monday; two full weeks hold ten weekdays.
	series, err := m.FetchBars(context.Background(), "MOCK", date(2024, 1, 1), date(2024, 1, 14))
	require.NoError(t, err)
	assert.Equal(t, 10, series.Len())
	for _, b := range series.Bars {
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.GreaterOrEqual(t, b.High, b.Close)
	}
}
