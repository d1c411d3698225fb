// Package secfilings queries the SEC EDGAR submissions API for a company's
// recent filings, supplementing the distilled specification with a feature
// the original system's tool catalog carried.
package secfilings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Config configures the EDGAR client. SEC EDGAR requires a descriptive
// User-Agent on every request, per its fair-access policy.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Tool looks up recent filings for a 10-digit zero-padded CIK.
type Tool struct {
	userAgent string
	client    *http.Client
}

// New builds a Tool from cfg.
func New(cfg Config) (*Tool, error) {
	if strings.TrimSpace(cfg.UserAgent) == "" {
		return nil, fmt.Errorf("secfilings: UserAgent is required by SEC EDGAR's fair access policy")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Tool{userAgent: cfg.UserAgent, client: &http.Client{Timeout: timeout}}, nil
}

func (t *Tool) Name() string { return "sec_filings" }

func (t *Tool) Description() string {
	return "Look up a company's recent SEC filings by its 10-digit CIK number."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cik":   map[string]any{"type": "string", "description": "10-digit zero-padded CIK, e.g. 0000320193."},
			"limit": map[string]any{"type": "integer", "minimum": 1, "description": "Maximum filings to return (default 10)."},
		},
		"required": []string{"cik"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	CIK   string `json:"cik"`
	Limit int    `json:"limit"`
}

type submissions struct {
	Name   string `json:"name"`
	Filing struct {
		Recent struct {
			Form          []string `json:"form"`
			FilingDate    []string `json:"filingDate"`
			PrimaryDoc    []string `json:"primaryDocument"`
			AccessionNums []string `json:"accessionNumber"`
		} `json:"recent"`
	} `json:"filings"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	cik := strings.TrimSpace(in.CIK)
	if cik == "" {
		return &reactmodel.ToolResult{Success: false, Error: "cik is required"}, nil
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	url := fmt.Sprintf("https://data.sec.gov/submissions/CIK%s.json", cik)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("EDGAR request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("read response: %v", err)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("EDGAR returned %d for CIK %s", resp.StatusCode, cik)}, nil
	}

	var parsed submissions
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}, nil
	}

	recent := parsed.Filing.Recent
	count := len(recent.Form)
	if limit < count {
		count = limit
	}
	filings := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		filings = append(filings, map[string]any{
			"form":        recent.Form[i],
			"filed_at":    recent.FilingDate[i],
			"document":    recent.PrimaryDoc[i],
			"accession":   recent.AccessionNums[i],
		})
	}

	return &reactmodel.ToolResult{
		Success: true,
		Value:   map[string]any{"company": parsed.Name, "cik": cik, "filings": filings},
	}, nil
}
