// Package codeexec runs a bounded Python-style snippet by shelling out to an
// external interpreter binary, since the Go port has no embedded Python
// runtime of its own.
package codeexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	osexec "os/exec"
	"time"

	"github.com/fenwicklabs/reactor/internal/exec"
	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Config controls which interpreter runs submitted code and how long it's
// allowed to run.
type Config struct {
	// Interpreter is the executable invoked with "-c" and the snippet as
	// its arguments.
	// Defaults to "python3".
	Interpreter string
	// Timeout bounds wall-clock execution time. Defaults to 30s.
	Timeout time.Duration
}

// Tool executes code snippets under a hard timeout, capturing stdout and
// stderr separately.
type Tool struct {
	interpreter string
	timeout     time.Duration
}

// New builds a Tool from cfg, applying defaults for zero-valued fields.
func New(cfg Config) (*Tool, error) {
	interpreter := cfg.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	if _, err := exec.SanitizeExecutableValue(interpreter); err != nil {
		return nil, fmt.Errorf("codeexec: unsafe interpreter %q: %w", interpreter, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Tool{interpreter: interpreter, timeout: timeout}, nil
}

func (t *Tool) Name() string { return "code_executor" }

func (t *Tool) Description() string {
	return "Execute a short Python snippet and return its stdout/stderr. Runs under a hard timeout with no network or filesystem guarantees beyond the sandbox."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"code": map[string]any{"type": "string", "description": "Python source to execute."},
		},
		"required": []string{"code"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Code string `json:"code"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("invalid parameters: %v", err)}, nil
	}
	if in.Code == "" {
		return &reactmodel.ToolResult{Success: false, Error: "code is required"}, nil
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := osexec.CommandContext(runCtx, t.interpreter, "-c", in.Code)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return &reactmodel.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("execution timed out after %s", t.timeout),
			Value:   map[string]any{"stdout": stdout.String(), "stderr": stderr.String()},
		}, nil
	}

	result := map[string]any{"stdout": stdout.String(), "stderr": stderr.String()}
	if err != nil {
		return &reactmodel.ToolResult{
			Success: false,
			Error:   err.Error(),
			Value:   result,
		}, nil
	}
	return &reactmodel.ToolResult{Success: true, Value: result}, nil
}
