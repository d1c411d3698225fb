// Package final provides the observation-override bypass tool: calling it
// records its answer as the observation directly, skipping the engine's
// usual LLM observation-summarization call, and marks the run ready for the
// engine's final-answer step.
package final

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// PromptBuilder renders the final answer text for a query. Wiring code
// supplies this at construction rather than final importing internal/react
// directly, which would otherwise create a prompts<->tools import cycle
// (final needs a prompt, prompts lives next to the engine that calls tools).
type PromptBuilder func(query string) string

// Tool is the final_answer bypass tool: it sets Observation.SkipLLM so the
// engine records its text as the observation verbatim, with no LLM call in
// between.
type Tool struct {
	buildPrompt PromptBuilder
}

// New builds a Tool. buildPrompt may be nil, in which case the tool simply
// echoes its answer parameter back as the observation text, followed by the
// completion marker.
func New(buildPrompt PromptBuilder) *Tool {
	return &Tool{buildPrompt: buildPrompt}
}

func (t *Tool) Name() string { return "final_answer" }

func (t *Tool) Description() string {
	return "Provide the final answer directly when no further reasoning is needed, bypassing observation summarization."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string", "description": "The final answer text."},
		},
		"required": []string{"answer"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Answer string `json:"answer"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	if in.Answer == "" {
		return &reactmodel.ToolResult{Success: false, Error: "answer is required"}, nil
	}

	text := in.Answer
	if t.buildPrompt != nil {
		text = t.buildPrompt(in.Answer)
	}
	// The engine's final-answer decision reads this marker off the last
	// observation's content, same as it would for an LLM-summarized one.
	text += "\n<final_answer_ready/>"

	return &reactmodel.ToolResult{
		Success: true,
		Value: reactmodel.Observation{
			Data:        in.Answer,
			Text:        text,
			StoreOutput: true,
			StoreResult: true,
			SkipLLM:     true,
		},
	}, nil
}
