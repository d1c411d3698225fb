// Package marketdata retrieves quote/summary data for a ticker through a
// pluggable client, supplementing the distilled specification with a
// feature the original system's tool catalog carried.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Quote is the data a Client returns for one ticker lookup.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	ChangePercent float64 `json:"change_percent"`
	AsOf          string  `json:"as_of"`
}

// Client abstracts the financial-data provider a Tool queries, so the tool
// itself stays vendor-agnostic.
type Client interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// Tool retrieves a quote for a ticker symbol via its configured Client.
type Tool struct {
	client Client
}

// New builds a Tool backed by client.
func New(client Client) (*Tool, error) {
	if client == nil {
		return nil, fmt.Errorf("marketdata: client is required")
	}
	return &Tool{client: client}, nil
}

func (t *Tool) Name() string { return "market_data" }

func (t *Tool) Description() string {
	return "Retrieve the latest quote for a stock ticker symbol."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"symbol": map[string]any{"type": "string", "description": "Ticker symbol, e.g. AAPL."},
		},
		"required": []string{"symbol"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Symbol string `json:"symbol"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	symbol := strings.ToUpper(strings.TrimSpace(in.Symbol))
	if symbol == "" {
		return &reactmodel.ToolResult{Success: false, Error: "symbol is required"}, nil
	}

	quote, err := t.client.Quote(ctx, symbol)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &reactmodel.ToolResult{Success: true, Value: quote}, nil
}
