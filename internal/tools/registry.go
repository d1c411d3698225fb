package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Registry manages available tools with thread-safe registration and
// lookup, and wraps every Execute call with timing and invocation
// bookkeeping so callers get execution_time_seconds, invocation_count, and
// success_rate in the result metadata without each tool implementing that
// itself.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	usage   map[string]*reactmodel.UsageRecord
	metrics metricsRecorder
}

// metricsRecorder is the slice of observability.Metrics the registry needs,
// declared locally so this package doesn't import internal/observability.
type metricsRecorder interface {
	RecordToolInvocation(tool, outcome string, durationSeconds float64)
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		usage: make(map[string]*reactmodel.UsageRecord),
	}
}

// SetMetrics attaches a metrics recorder; every Execute call after this
// reports its outcome and duration through it. Passing nil disables
// reporting again.
func (r *Registry) SetMetrics(metrics metricsRecorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = metrics
}

// Register adds a tool to the registry. It returns ErrDuplicateTool if a
// tool with the same name is already registered.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name())
	}
	r.tools[tool.Name()] = tool
	r.usage[tool.Name()] = &reactmodel.UsageRecord{ToolName: tool.Name()}
	return nil
}

// Get returns a tool by name and whether it was found.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names, for building prompt tool lists.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Descriptions returns name->description pairs for every registered tool,
// used to render the tool catalog in the system prompt.
func (r *Registry) Descriptions() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.tools))
	for name, tool := range r.tools {
		out[name] = tool.Description()
	}
	return out
}

// Execute runs a tool by name, never returning a Go error for a missing
// tool or a tool-internal failure: both come back as a ToolResult with
// Success=false so the engine can fold them straight into an observation.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) *reactmodel.ToolResult {
	if len(name) > MaxToolNameLength {
		return &reactmodel.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength),
		}
	}
	if encoded, err := json.Marshal(params); err == nil && len(encoded) > MaxToolParamsSize {
		return &reactmodel.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize),
		}
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return &reactmodel.ToolResult{
			Success: false,
			Error:   fmt.Sprintf("tool '%s' not found", name),
		}
	}

	start := time.Now()
	result, err := safeExecute(ctx, tool, params)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		result = &reactmodel.ToolResult{Success: false, Error: err.Error()}
	}
	if result == nil {
		result = &reactmodel.ToolResult{Success: false, Error: "tool returned no result"}
	}

	r.recordUsage(name, result.Success, elapsed)
	r.reportMetrics(name, result.Success, elapsed)

	if result.Metadata == nil {
		result.Metadata = make(map[string]any)
	}
	record := r.usageSnapshot(name)
	result.Metadata["execution_time_seconds"] = elapsed
	result.Metadata["invocation_count"] = record.InvocationCount
	result.Metadata["success_rate"] = record.SuccessRate()

	return result
}

// safeExecute guards against a tool panicking, converting it into a failed
// ToolResult instead of crashing the run.
func safeExecute(ctx context.Context, tool Tool, params map[string]any) (result *reactmodel.ToolResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = &reactmodel.ToolResult{
				Success: false,
				Error:   fmt.Sprintf("tool panicked: %v", rec),
			}
			err = nil
		}
	}()
	return tool.Execute(ctx, params)
}

func (r *Registry) recordUsage(name string, success bool, seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.usage[name]
	if !ok {
		record = &reactmodel.UsageRecord{ToolName: name}
		r.usage[name] = record
	}
	record.InvocationCount++
	record.TotalSeconds += seconds
	if success {
		record.SuccessCount++
	}
}

func (r *Registry) reportMetrics(name string, success bool, seconds float64) {
	r.mu.RLock()
	metrics := r.metrics
	r.mu.RUnlock()
	if metrics == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	metrics.RecordToolInvocation(name, outcome, seconds)
}

func (r *Registry) usageSnapshot(name string) reactmodel.UsageRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if record, ok := r.usage[name]; ok {
		return *record
	}
	return reactmodel.UsageRecord{ToolName: name}
}
