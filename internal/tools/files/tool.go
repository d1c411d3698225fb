package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Config controls the sandbox a Tool is confined to.
type Config struct {
	Workspace    string
	MaxReadBytes int
}

// Tool implements read/write/list operations rooted under a configured
// workspace directory. A single instance serves all three operations,
// selected by the "op" parameter, so it registers under one tool name.
type Tool struct {
	resolver Resolver
	maxRead  int
}

// New builds a files Tool scoped to cfg.Workspace.
func New(cfg Config) *Tool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200_000
	}
	return &Tool{resolver: Resolver{Root: cfg.Workspace}, maxRead: limit}
}

func (t *Tool) Name() string { return "file_system" }

func (t *Tool) Description() string {
	return "Read, write, or list files under the sandboxed workspace directory."
}

func (t *Tool) Schema() json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"op":      map[string]any{"type": "string", "enum": []string{"read", "write", "list"}},
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace."},
			"content": map[string]any{"type": "string", "description": "Content to write (op=write only)."},
			"offset":  map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"op", "path"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Op      string `json:"op"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Offset  int64  `json:"offset"`
}

func (t *Tool) Execute(ctx context.Context, params map[string]any) (*reactmodel.ToolResult, error) {
	var in input
	if err := tools.DecodeParams(params, &in); err != nil {
		return fail(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(in.Path) == "" {
		return fail("path is required"), nil
	}

	switch in.Op {
	case "read":
		return t.read(in)
	case "write":
		return t.write(in)
	case "list":
		return t.list(in)
	default:
		return fail(fmt.Sprintf("unknown op %q: must be read, write, or list", in.Op)), nil
	}
}

func (t *Tool) read(in input) (*reactmodel.ToolResult, error) {
	resolved, err := t.resolver.Resolve(in.Path)
	if err != nil {
		return fail(err.Error()), nil
	}
	file, err := os.Open(resolved)
	if err != nil {
		return fail(fmt.Sprintf("open file: %v", err)), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fail(fmt.Sprintf("stat file: %v", err)), nil
	}
	if info.IsDir() {
		return fail("path is a directory, use op=list"), nil
	}

	if in.Offset > 0 {
		if _, err := file.Seek(in.Offset, io.SeekStart); err != nil {
			return fail(fmt.Sprintf("seek file: %v", err)), nil
		}
	}

	remaining := info.Size() - in.Offset
	if remaining < 0 {
		remaining = 0
	}
	if remaining > int64(t.maxRead) {
		remaining = int64(t.maxRead)
	}

	buf, err := io.ReadAll(io.LimitReader(file, remaining))
	if err != nil {
		return fail(fmt.Sprintf("read file: %v", err)), nil
	}

	truncated := in.Offset+int64(len(buf)) < info.Size()
	return &reactmodel.ToolResult{
		Success: true,
		Value: map[string]any{
			"path":      in.Path,
			"content":   string(buf),
			"bytes":     len(buf),
			"truncated": truncated,
		},
	}, nil
}

func (t *Tool) write(in input) (*reactmodel.ToolResult, error) {
	resolved, err := t.resolver.Resolve(in.Path)
	if err != nil {
		return fail(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fail(fmt.Sprintf("create directory: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(in.Content), 0o644); err != nil {
		return fail(fmt.Sprintf("write file: %v", err)), nil
	}
	return &reactmodel.ToolResult{
		Success: true,
		Value:   map[string]any{"path": in.Path, "bytes_written": len(in.Content)},
	}, nil
}

func (t *Tool) list(in input) (*reactmodel.ToolResult, error) {
	resolved, err := t.resolver.Resolve(in.Path)
	if err != nil {
		return fail(err.Error()), nil
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return fail(fmt.Sprintf("list directory: %v", err)), nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return &reactmodel.ToolResult{
		Success: true,
		Value:   map[string]any{"path": in.Path, "entries": names},
	}, nil
}

func fail(message string) *reactmodel.ToolResult {
	return &reactmodel.ToolResult{Success: false, Error: message}
}
