package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

type stubTool struct {
	name   string
	result *reactmodel.ToolResult
	err    error
	panics bool
	calls  int
}

func (s *stubTool) Name() string                 { return s.name }
func (s *stubTool) Description() string          { return "stub tool for testing" }
func (s *stubTool) Schema() json.RawMessage      { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	s.calls++
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "echo", result: &reactmodel.ToolResult{Success: true}}

	if err := r.Register(tool); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	got, ok := r.Get("echo")
	if !ok {
		t.Fatal("expected tool to be found")
	}
	if got.Name() != "echo" {
		t.Errorf("got name %q, want echo", got.Name())
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "echo", result: &reactmodel.ToolResult{Success: true}}

	if err := r.Register(tool); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	err := r.Register(&stubTool{name: "echo"})
	if !errors.Is(err, ErrDuplicateTool) {
		t.Errorf("got error %v, want ErrDuplicateTool", err)
	}
}

func TestRegistry_Execute_Success(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "echo", result: &reactmodel.ToolResult{Success: true, Value: "hi"}}
	r.Register(tool)

	result := r.Execute(context.Background(), "echo", nil)
	if !result.Success {
		t.Errorf("got Success=false, want true: %s", result.Error)
	}
	if result.Value != "hi" {
		t.Errorf("got Value %v, want hi", result.Value)
	}
	if result.Metadata["invocation_count"] != int64(1) {
		t.Errorf("got invocation_count %v, want 1", result.Metadata["invocation_count"])
	}
	if result.Metadata["success_rate"] != float64(1) {
		t.Errorf("got success_rate %v, want 1", result.Metadata["success_rate"])
	}
	if _, ok := result.Metadata["execution_time_seconds"]; !ok {
		t.Error("expected execution_time_seconds in metadata")
	}
}

func TestRegistry_Execute_NotFound(t *testing.T) {
	r := NewRegistry()
	result := r.Execute(context.Background(), "missing", nil)
	if result.Success {
		t.Error("expected Success=false for missing tool")
	}
	if result.Error == "" {
		t.Error("expected a non-empty error message")
	}
}

func TestRegistry_Execute_NameTooLong(t *testing.T) {
	r := NewRegistry()
	longName := make([]byte, MaxToolNameLength+1)
	for i := range longName {
		longName[i] = 'a'
	}
	result := r.Execute(context.Background(), string(longName), nil)
	if result.Success {
		t.Error("expected Success=false for oversized tool name")
	}
}

func TestRegistry_Execute_ToolError(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "broken", err: errors.New("decode failed")})

	result := r.Execute(context.Background(), "broken", nil)
	if result.Success {
		t.Error("expected Success=false when tool returns an error")
	}
	if result.Error != "decode failed" {
		t.Errorf("got error %q, want decode failed", result.Error)
	}
}

func TestRegistry_Execute_ToolPanicRecovered(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "unstable", panics: true})

	result := r.Execute(context.Background(), "unstable", nil)
	if result.Success {
		t.Error("expected Success=false when tool panics")
	}
	if result.Error == "" {
		t.Error("expected a non-empty error message after recovered panic")
	}
}

func TestRegistry_Execute_SuccessRateAcrossCalls(t *testing.T) {
	r := NewRegistry()
	tool := &stubTool{name: "flaky", err: errors.New("fail")}
	r.Register(tool)

	r.Execute(context.Background(), "flaky", nil)
	tool.err = nil
	tool.result = &reactmodel.ToolResult{Success: true}
	result := r.Execute(context.Background(), "flaky", nil)

	if result.Metadata["invocation_count"] != int64(2) {
		t.Errorf("got invocation_count %v, want 2", result.Metadata["invocation_count"])
	}
	if result.Metadata["success_rate"] != float64(0.5) {
		t.Errorf("got success_rate %v, want 0.5", result.Metadata["success_rate"])
	}
}

func TestRegistry_NamesAndDescriptions(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "a", result: &reactmodel.ToolResult{Success: true}})
	r.Register(&stubTool{name: "b", result: &reactmodel.ToolResult{Success: true}})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("got %d names, want 2", len(names))
	}

	descriptions := r.Descriptions()
	if len(descriptions) != 2 {
		t.Fatalf("got %d descriptions, want 2", len(descriptions))
	}
	if descriptions["a"] != "stub tool for testing" {
		t.Errorf("got description %q", descriptions["a"])
	}
}
