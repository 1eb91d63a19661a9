package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// FeedError wraps any failure to obtain usable candle data from the provider.
// Callers treat it as "skip this instrument this cycle", never as fatal.
type FeedError struct {
	Symbol string
	Op     string
	Err    error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// Feed supplies candle series and live prices for an instrument.
type Feed interface {
	GetSeries(ctx context.Context, symbol, interval string, outputsize int) ([]Candle, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Client is a TwelveData time_series client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a TwelveData client. An empty baseURL selects the
// public endpoint.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 12 * time.Second},
	}
}

// rawSeries mirrors the TwelveData time_series response. Values arrive
// newest-first and are reversed into oldest-first order.
type rawSeries struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// GetSeries fetches candles for symbol at the given interval, oldest-first.
func (c *Client) GetSeries(ctx context.Context, symbol, interval string, outputsize int) ([]Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("outputsize", strconv.Itoa(outputsize))
	params.Set("format", "JSON")
	params.Set("apikey", c.apiKey)

	endpoint := fmt.Sprintf("%s/time_series?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FeedError{Symbol: symbol, Op: "series", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FeedError{Symbol: symbol, Op: "series", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FeedError{Symbol: symbol, Op: "series", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FeedError{Symbol: symbol, Op: "series", Err: fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))}
	}

	candles, err := ParseSeries(body)
	if err != nil {
		return nil, &FeedError{Symbol: symbol, Op: "series", Err: err}
	}

	return candles, nil
}

// ParseSeries decodes a TwelveData time_series payload into an
// oldest-first candle slice. A payload without a values field is a feed
// failure, not an empty series.
func ParseSeries(body []byte) ([]Candle, error) {
	var raw rawSeries
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parsing series: %w", err)
	}

	if raw.Values == nil {
		if raw.Message != "" {
			return nil, fmt.Errorf("provider error: %s", raw.Message)
		}
		return nil, fmt.Errorf("response missing values field")
	}

	candles := make([]Candle, 0, len(raw.Values))
	for i := len(raw.Values) - 1; i >= 0; i-- {
		v := raw.Values[i]

		ts, err := time.Parse("2006-01-02 15:04:05", v.Datetime)
		if err != nil {
			// Daily candles come back without a time component.
			ts, err = time.Parse("2006-01-02", v.Datetime)
			if err != nil {
				return nil, fmt.Errorf("parsing candle time %q: %w", v.Datetime, err)
			}
		}

		candle := Candle{
			Time:   ts,
			Open:   parseFloat(v.Open),
			High:   parseFloat(v.High),
			Low:    parseFloat(v.Low),
			Close:  parseFloat(v.Close),
			Volume: parseFloat(v.Volume),
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetCurrentPrice returns the latest 1-minute close for symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	candles, err := c.GetSeries(ctx, symbol, "1min", 1)
	if err != nil {
		return 0, err
	}
	if len(candles) == 0 {
		return 0, &FeedError{Symbol: symbol, Op: "price", Err: fmt.Errorf("empty series")}
	}
	return candles[len(candles)-1].Close, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
