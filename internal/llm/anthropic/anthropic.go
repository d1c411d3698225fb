// Package anthropic binds the llm.ChatSession contract to Anthropic's
// Claude API. It only ever exchanges plain text: tool calls are parsed out
// of replies upstream by the ReAct engine, not negotiated through the
// vendor's native tool-use API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/fenwicklabs/reactor/internal/llm"
)

var claudeModelPrefixes = []string{"claude-"}

// Config holds the settings needed to construct a Provider.
type Config struct {
	APIKey       string
	BaseURL      string
	MaxTokens    int64
	MaxRetries   int
	DefaultModel string
}

// Provider binds llm.Provider to the Anthropic SDK.
type Provider struct {
	client    anthropic.Client
	maxTokens int64
	maxRetry  int
}

// New constructs a Provider from config. Returns an error if no API key is
// configured.
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		client:    anthropic.NewClient(options...),
		maxTokens: config.MaxTokens,
		maxRetry:  config.MaxRetries,
	}, nil
}

func (p *Provider) Name() string { return "anthropic" }

// SupportsModel reports whether model looks like a Claude model name.
func (p *Provider) SupportsModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range claudeModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) NewSession(ctx context.Context, model, systemPrompt string) (llm.ChatSession, error) {
	return &session{
		provider:     p,
		model:        model,
		systemPrompt: systemPrompt,
	}, nil
}

// session accumulates turns as Anthropic MessageParams and replays the full
// history on every send, since the Anthropic API is stateless per call.
type session struct {
	provider     *Provider
	model        string
	systemPrompt string
	history      []anthropic.MessageParam
}

func (s *session) Model() string { return s.model }

func (s *session) Send(ctx context.Context, message string) (llm.Reply, error) {
	s.history = append(s.history, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))

	reply, err := llm.SendWithRetry(ctx, s.provider.maxRetry, func(attempt int) (llm.Reply, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(s.model),
			Messages:  s.history,
			MaxTokens: s.provider.maxTokens,
		}
		if s.systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: s.systemPrompt}}
		}

		msg, sendErr := s.provider.client.Messages.New(ctx, params)
		if sendErr != nil {
			return llm.Reply{}, llm.NewProviderError("anthropic", s.model, sendErr)
		}

		var text strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				text.WriteString(block.Text)
			}
		}

		usage := llm.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
			TotalTokens:  msg.Usage.InputTokens + msg.Usage.OutputTokens,
		}
		return llm.Reply{Content: text.String(), Usage: usage}, nil
	})
	if err != nil {
		return llm.Reply{}, err
	}

	s.history = append(s.history, anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply.Content)))
	return reply, nil
}
