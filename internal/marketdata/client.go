// Package marketdata fetches daily closing prices from the Yahoo Finance
// chart API. The engine only needs closes to keep the local fund_price table
// current for lot valuation; OHLC detail and volume are discarded at parse
// time.
package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client fetches daily closing prices for a ticker symbol. The interface
// enables dependency injection and testing with mock implementations.
type Client interface {
	RecentCloses(symbol string) ([]DailyClose, error)
}

// DailyClose is one trading day's closing price for a symbol.
type DailyClose struct {
	Date  time.Time
	Close decimal.Decimal
}

// chartResponse maps the subset of the Yahoo Finance chart API response the
// engine reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string `json:"currency"`
				Symbol   string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *string `json:"error"`
	} `json:"chart"`
}

// YahooClient is a Client backed by the public Yahoo Finance chart endpoint.
type YahooClient struct {
	httpClient *http.Client
}

// NewYahooClient creates a Yahoo Finance client with default HTTP settings.
func NewYahooClient() *YahooClient {
	return &YahooClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RecentCloses fetches the last 5 trading days of daily closes for a symbol.
// Quoted prices arrive as floats from the API; they are converted to
// decimals at the boundary and stay exact from here on.
func (c *YahooClient) RecentCloses(symbol string) ([]DailyClose, error) {
	url := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&range=5d", symbol)

	response, err := c.query(url)
	if err != nil {
		return nil, err
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	result := response.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, fmt.Errorf("no price data returned for symbol %s", symbol)
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return nil, fmt.Errorf("no close prices returned for symbol %s", symbol)
	}
	if len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return nil, fmt.Errorf("mismatched data lengths for symbol %s", symbol)
	}

	closes := make([]DailyClose, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closes = append(closes, DailyClose{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: decimal.NewFromFloat(result.Indicators.Quote[0].Close[i]),
		})
	}

	return closes, nil
}

// query executes one request against the chart API. Sets a browser-like
// User-Agent; the endpoint blocks default Go clients.
func (c *YahooClient) query(url string) (chartResponse, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return chartResponse{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chartResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return chartResponse{}, err
	}

	var response chartResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return chartResponse{}, err
	}

	if response.Chart.Error != nil {
		return response, fmt.Errorf("yahoo error: %s", *response.Chart.Error)
	}

	return response, nil
}
