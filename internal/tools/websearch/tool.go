// Package websearch provides a thin HTTP client wrapper around a
// Perplexity-compatible search/answer endpoint.
package websearch

import (
	"bytes"
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

// Config holds the endpoint and credentials for the search backend.
type Config struct {
	// BaseURL is the chat-completions-style endpoint to POST to. Defaults
	// to Perplexity's public API.
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Tool queries a Perplexity-compatible endpoint and returns its answer text
// plus any citations it reports.
type Tool struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New builds a Tool from cfg, applying defaults for zero-valued fields.
func New(cfg Config) (*Tool, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("websearch: API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai/chat/completions"
	}
	model := cfg.Model
	if model == "" {
		model = "sonar"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Tool{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (t *Tool) Name() string { return "web_search" }

func (t *Tool) Description() string {
	return "Search the web for current information and return a synthesized answer with citations."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "The search query."},
		},
		"required": []string{"query"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Query string `json:"query"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	if strings.TrimSpace(in.Query) == "" {
		return &reactmodel.ToolResult{Success: false, Error: "query is required"}, nil
	}

	body, err := json.Marshal(chatRequest{
		Model:    t.model,
		Messages: []chatMessage{{Role: "user", Content: in.Query}},
	})
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: err.Error()}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: err.Error()}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("search request failed: %v", err)}, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("read response: %v", err)}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("search backend returned %d: %s", resp.StatusCode, string(raw))}, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}, nil
	}
	if len(parsed.Choices) == 0 {
		return &reactmodel.ToolResult{Success: false, Error: "search backend returned no answer"}, nil
	}

	return &reactmodel.ToolResult{
		Success: true,
		Value: map[string]any{
			"answer":    parsed.Choices[0].Message.Content,
			"citations": parsed.Citations,
		},
	}, nil
}
