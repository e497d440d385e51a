package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/finpipe/finpipe/internal/price"
)

// YahooClient downloads daily bars from the Yahoo Finance chart API. No API
// key is required.
type YahooClient struct {
	client  *http.Client
	baseURL string
}

// NewYahooClient creates a Yahoo Finance client with a sane timeout.
func NewYahooClient() *YahooClient {
	return &YahooClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://query1.finance.yahoo.com",
	}
}

// NewYahooClientWithBaseURL is used by tests to point at a local server.
func NewYahooClientWithBaseURL(baseURL string) *YahooClient {
	c := NewYahooClient()
	c.baseURL = baseURL
	return c
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchPrices downloads daily bars for a symbol over a Yahoo range string
// such as "1mo", "1y", "2y" or "max". Bars with any missing OHLC field are
// skipped; a missing volume is stored as zero.
func (y *YahooClient) FetchPrices(ctx context.Context, symbol, period string) ([]price.Point, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", y.baseURL, symbol, period)

	log.Printf("FetchPrices | Fetching %s from Yahoo Finance (period: %s)", symbol, period)

	body, err := getWithRetry(ctx, y.client, url, defaultMaxRetries, defaultBaseDelay, defaultMaxDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", symbol, err)
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", symbol, err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s: %s",
			symbol, parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data for %s", symbol)
	}

	data := parsed.Chart.Result[0]
	if len(data.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote data for %s", symbol)
	}
	quote := data.Indicators.Quote[0]

	points := make([]price.Point, 0, len(data.Timestamp))
	for i, ts := range data.Timestamp {
		open := at(quote.Open, i)
		high := at(quote.High, i)
		low := at(quote.Low, i)
		closePx := at(quote.Close, i)
		if open == nil || high == nil || low == nil || closePx == nil {
			continue // partial bar, usually the live trading day
		}

		var volume int64
		if v := at(quote.Volume, i); v != nil {
			volume = *v
		}

		points = append(points, price.Point{
			Symbol: symbol,
			Date:   price.Day(time.Unix(ts, 0)),
			Open:   *open,
			High:   *high,
			Low:    *low,
			Close:  *closePx,
			Volume: volume,
			Source: "yahoo",
		})
	}

	log.Printf("FetchPrices | Downloaded %d bars for %s", len(points), symbol)
	return points, nil
}

func at[T any](s []*T, i int) *T {
	if i >= len(s) {
		return nil
	}
	return s[i]
}
