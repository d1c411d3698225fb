// Package tools defines the contract every ReAct action dispatches through,
// and a thread-safe registry for looking tools up by name.
package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Tool-name and parameter-size limits, mirroring the kind of resource-
// exhaustion guard a registry needs once tool names and parameters arrive
// as LLM-generated text rather than compile-time constants.
const (
	MaxToolNameLength = 256
	MaxToolParamsSize = 10 << 20
)

// ErrDuplicateTool is returned by Register when a tool name collides with
// one already registered.
var ErrDuplicateTool = errors.New("tool already registered")

// ErrToolNotFound names the missing-tool condition. Registry does not return
// it: Get reports a miss through its bool result and Execute through a
// ToolResult with Success=false.
var ErrToolNotFound = errors.New("tool not found")

// DecodeParams round-trips params through JSON into dst, the common way a
// concrete tool turns the registry's loosely-typed map[string]any into its
// own strongly-typed input struct.
func DecodeParams(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// Tool is the contract every ReAct action dispatches through. Execute must
// never panic or return a Go error for an ordinary failure: a failing tool
// reports success=false in its ToolResult, so a single bad tool call cannot
// take down a run. The returned error is reserved for parameter decoding
// failures the registry itself should surface.
//
// A tool that wants to bypass the LLM observation-summarization step (the
// "observation override") sets ToolResult.Value to a reactmodel.Observation
// with SkipLLM set, instead of a plain value.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error)
}
