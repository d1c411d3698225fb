// Package openai binds the llm.ChatSession contract to OpenAI-compatible
// chat completion APIs. Only plain text is exchanged: no native
// function-calling, since the ReAct engine parses tool calls out of the
// reply text itself.
package openai

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fenwicklabs/reactor/internal/llm"
)

var gptModelPrefixes = []string{"gpt-", "o1", "o3", "o4"}

// Config holds the settings needed to construct a Provider.
type Config struct {
	APIKey     string
	BaseURL    string
	MaxTokens  int
	MaxRetries int
}

// Provider binds llm.Provider to an OpenAI-compatible client.
type Provider struct {
	client    *openai.Client
	maxTokens int
	maxRetry  int
}

// New constructs a Provider from config.
func New(config Config) (*Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if strings.TrimSpace(config.BaseURL) != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		client:    openai.NewClientWithConfig(clientConfig),
		maxTokens: config.MaxTokens,
		maxRetry:  config.MaxRetries,
	}, nil
}

func (p *Provider) Name() string { return "openai" }

// SupportsModel reports whether model looks like an OpenAI chat model name.
func (p *Provider) SupportsModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range gptModelPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) NewSession(ctx context.Context, model, systemPrompt string) (llm.ChatSession, error) {
	s := &session{provider: p, model: model}
	if systemPrompt != "" {
		s.history = append(s.history, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	return s, nil
}

// session replays its full message history on every call, matching the
// stateless contract of the chat completions endpoint.
type session struct {
	provider *Provider
	model    string
	history  []openai.ChatCompletionMessage
}

func (s *session) Model() string { return s.model }

func (s *session) Send(ctx context.Context, message string) (llm.Reply, error) {
	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	reply, err := llm.SendWithRetry(ctx, s.provider.maxRetry, func(attempt int) (llm.Reply, error) {
		resp, sendErr := s.provider.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     s.model,
			Messages:  s.history,
			MaxTokens: s.provider.maxTokens,
		})
		if sendErr != nil {
			return llm.Reply{}, llm.NewProviderError("openai", s.model, sendErr)
		}
		if len(resp.Choices) == 0 {
			return llm.Reply{}, llm.NewProviderError("openai", s.model, errors.New("empty choices in response"))
		}

		content := resp.Choices[0].Message.Content
		usage := llm.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
			TotalTokens:  int64(resp.Usage.TotalTokens),
		}
		return llm.Reply{Content: content, Usage: usage}, nil
	})
	if err != nil {
		return llm.Reply{}, err
	}

	s.history = append(s.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: reply.Content,
	})
	return reply, nil
}
