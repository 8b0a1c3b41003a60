package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"stockdash/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
// An empty series with a nil error means the provider has no bars for the range.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error)
	Name() string
}

// newHTTPClient builds a client with a 30s timeout and optional proxy.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// truncateDay strips the clock from t, keeping its calendar date in UTC.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
