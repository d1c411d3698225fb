// Package google binds the llm.ChatSession contract to Google's Gemini API.
// Only plain text is exchanged: no native function-calling, since the ReAct
// engine parses tool calls out of the reply text itself.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/fenwicklabs/reactor/internal/llm"
)

var geminiModelPrefixes = []string{"gemini-"}

// Config holds the settings needed to construct a Provider.
type Config struct {
	APIKey     string
	MaxRetries int
}

// Provider binds llm.Provider to the Gemini API.
type Provider struct {
	client   *genai.Client
	maxRetry int
}

// New constructs a Provider from config.
func New(ctx context.Context, config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("google: API key is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}

	return &Provider{client: client, maxRetry: config.MaxRetries}, nil
}

func (p *Provider) Name() string { return "google" }

// SupportsModel reports whether model looks like a Gemini model name.
func (p *Provider) SupportsModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range geminiModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) NewSession(ctx context.Context, model, systemPrompt string) (llm.ChatSession, error) {
	s := &session{provider: p, model: model}
	if systemPrompt != "" {
		s.config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		}
	}
	return s, nil
}

// session accumulates turns as genai.Content and replays the full history on
// every call, since GenerateContent is stateless per request.
type session struct {
	provider *Provider
	model    string
	config   *genai.GenerateContentConfig
	history  []*genai.Content
}

func (s *session) Model() string { return s.model }

func (s *session) Send(ctx context.Context, message string) (llm.Reply, error) {
	s.history = append(s.history, genai.NewContentFromText(message, genai.RoleUser))

	reply, err := llm.SendWithRetry(ctx, s.provider.maxRetry, func(attempt int) (llm.Reply, error) {
		resp, sendErr := s.provider.client.Models.GenerateContent(ctx, s.model, s.history, s.config)
		if sendErr != nil {
			return llm.Reply{}, llm.NewProviderError("google", s.model, sendErr)
		}

		text := resp.Text()
		usage := llm.Usage{}
		if resp.UsageMetadata != nil {
			usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
			usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
			usage.TotalTokens = int64(resp.UsageMetadata.TotalTokenCount)
		}
		return llm.Reply{Content: text, Usage: usage}, nil
	})
	if err != nil {
		return llm.Reply{}, err
	}

	s.history = append(s.history, genai.NewContentFromText(reply.Content, genai.RoleModel))
	return reply, nil
}
