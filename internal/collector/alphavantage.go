package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockdash/internal/model"
)

// DefaultAlphaVantageBaseURL is the public Alpha Vantage API host.
const DefaultAlphaVantageBaseURL = "https://www.alphavantage.co"

const avDailyAdjustedKey = "Time Series (Daily)"

// AlphaVantageFetcher implements Fetcher using TIME_SERIES_DAILY_ADJUSTED.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewAlphaVantageFetcher creates a new fetcher with optional proxy support.
func NewAlphaVantageFetcher(apiKey, proxyURL string) *AlphaVantageFetcher {
	return &AlphaVantageFetcher{
		BaseURL: DefaultAlphaVantageBaseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

func (f *AlphaVantageFetcher) FetchBars(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	start, end = truncateDay(start), truncateDay(end)

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")
	q.Set("datatype", "json")
	q.Set("apikey", f.APIKey)
	endpoint := fmt.Sprintf("%s/query?%s", f.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.PriceSeries{}, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.PriceSeries{}, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode, string(body))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage decode: %w", err)
	}
	// The API answers 200 with a message body on bad symbols, throttling and premium endpoints.
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := raw[key]; ok {
			var text string
			_ = json.Unmarshal(msg, &text)
			return model.PriceSeries{}, fmt.Errorf("alphavantage api error: %s", text)
		}
	}

	seriesRaw, ok := raw[avDailyAdjustedKey]
	if !ok {
		return model.PriceSeries{Symbol: symbol}, nil
	}
	var rows map[string]map[string]string
	if err := json.Unmarshal(seriesRaw, &rows); err != nil {
		return model.PriceSeries{}, fmt.Errorf("alphavantage decode time series: %w", err)
	}

	bars := make([]model.PriceBar, 0, len(rows))
	for dateStr, fields := range rows {
		date, err := time.Parse(model.DateLayout, dateStr)
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("alphavantage parse date %q: %w", dateStr, err)
		}
		if date.Before(start) || date.After(end) {
			continue
		}
		bars = append(bars, model.PriceBar{
			Date:     date,
			Open:     avField(fields, ". open"),
			High:     avField(fields, ". high"),
			Low:      avField(fields, ". low"),
			Close:    avField(fields, ". close"),
			AdjClose: avField(fields, ". adjusted close"),
			Volume:   int64(avField(fields, ". volume")),
		})
	}

	return model.NewPriceSeries(symbol, bars), nil
}

// avField finds a value by the suffix of its numbered key, e.g. "4. close".
func avField(fields map[string]string, suffix string) float64 {
	for k, v := range fields {
		if strings.HasSuffix(strings.ToLower(k), suffix) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}
