// Package llm defines a narrow, vendor-agnostic chat session contract and
// shared retry/error machinery for LLM providers. Tool invocation is not
// part of this contract: the ReAct engine drives tools by parsing plain text
// out of model replies, so a ChatSession only ever needs to send text and
// get text plus usage back.
package llm

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when a requested model name has no configured
// provider binding.
var ErrNoProvider = errors.New("llm: no provider configured for model")

// Usage reports token accounting for a single completion. Extraction must
// tolerate vendor field-naming variance; providers populate TotalTokens
// directly when the vendor reports it, or as the sum of input and output
// tokens otherwise.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Reply is the result of one ChatSession.Send call.
type Reply struct {
	Content string
	Usage   Usage
}

// ChatSession is a stateful multi-turn conversation bound to one model.
// Implementations hold their own message history; callers never manage it
// directly.
type ChatSession interface {
	// Model returns the model name this session is bound to.
	Model() string

	// Send appends message as a user turn, calls the model, appends the
	// assistant reply to the session's history, and returns it.
	Send(ctx context.Context, message string) (Reply, error)
}

// Provider constructs ChatSessions for a family of models (one vendor SDK).
type Provider interface {
	// Name identifies the provider, e.g. "google", "anthropic", "openai".
	Name() string

	// SupportsModel reports whether this provider can serve the given
	// model name.
	SupportsModel(model string) bool

	// NewSession starts a fresh chat session bound to model, seeded with
	// systemPrompt.
	NewSession(ctx context.Context, model, systemPrompt string) (ChatSession, error)
}

// Router selects the right Provider for a model name out of a configured
// set, so callers needn't know which vendor backs which model.
type Router struct {
	providers []Provider
}

// NewRouter builds a Router over the given providers, tried in order.
func NewRouter(providers ...Provider) *Router {
	return &Router{providers: providers}
}

// NewSession finds a provider that supports model and starts a session on
// it, or returns ErrNoProvider.
func (r *Router) NewSession(ctx context.Context, model, systemPrompt string) (ChatSession, error) {
	for _, p := range r.providers {
		if p.SupportsModel(model) {
			return p.NewSession(ctx, model, systemPrompt)
		}
	}
	return nil, ErrNoProvider
}
