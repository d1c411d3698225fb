// Package stooq implements marketdata.Client against Stooq's public quote
// CSV endpoint: no Go SDK for market data appears anywhere in the pack, so
// this talks to the same kind of plain CSV-over-HTTP feed the original
// system's balance-sheet tool pulled from yfinance, just for a live quote
// rather than financial statement rows.
package stooq

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fenwicklabs/reactor/internal/tools/marketdata"
)

const defaultBaseURL = "https://stooq.com/q/l/"

// Client queries Stooq's lightweight CSV quote endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client with a bounded HTTP timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: defaultBaseURL, http: &http.Client{Timeout: timeout}}
}

// Quote fetches the latest line for symbol and parses it into a
// marketdata.Quote.
func (c *Client) Quote(ctx context.Context, symbol string) (marketdata.Quote, error) {
	query := url.Values{
		"s": {strings.ToLower(symbol)},
		"f": {"sd2t2ohlcv"},
		"h": {""},
		"e": {"csv"},
	}
	reqURL := c.baseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return marketdata.Quote{}, fmt.Errorf("stooq: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return marketdata.Quote{}, fmt.Errorf("stooq: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return marketdata.Quote{}, fmt.Errorf("stooq: unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	records, err := reader.ReadAll()
	if err != nil {
		return marketdata.Quote{}, fmt.Errorf("stooq: parse response: %w", err)
	}
	if len(records) < 2 {
		return marketdata.Quote{}, fmt.Errorf("stooq: no data for symbol %s", symbol)
	}

	header := records[0]
	row := records[1]
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			fields[strings.ToLower(name)] = row[i]
		}
	}

	if strings.EqualFold(fields["close"], "N/D") || fields["close"] == "" {
		return marketdata.Quote{}, fmt.Errorf("stooq: no quote available for symbol %s", symbol)
	}

	price, err := strconv.ParseFloat(fields["close"], 64)
	if err != nil {
		return marketdata.Quote{}, fmt.Errorf("stooq: parse close price: %w", err)
	}

	open, _ := strconv.ParseFloat(fields["open"], 64)
	var changePercent float64
	if open != 0 {
		changePercent = (price - open) / open * 100
	}

	return marketdata.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         price,
		Currency:      "USD",
		ChangePercent: changePercent,
		AsOf:          strings.TrimSpace(fields["date"] + " " + fields["time"]),
	}, nil
}
