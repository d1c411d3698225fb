package react

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ToolCall is what the parser extracts from a model's action text: which
// tool to invoke and with what parameters. ParseToolCall returns a nil
// *ToolCall when no tool call could be recovered from the text at all.
type ToolCall struct {
	Name       string
	Parameters map[string]any
}

var (
	codeBlockPattern     = regexp.MustCompile("(?s)```python\\s*\\n?(.*?)```")
	braceSlicePattern    = regexp.MustCompile(`\{[^{}]*"tool"[^{}]*"parameters"[^{}]*\}`)
	toolLinePattern      = regexp.MustCompile(`(?i)tool:\s*([^\n]+)`)
	parametersYAMLBlock  = regexp.MustCompile(`(?is)parameters:\s*\n((?:[ \t]+.+\n?)+)`)
	keyValuePattern      = regexp.MustCompile(`(?m)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:\s*(.+)$`)
	keywordToolPattern   = regexp.MustCompile(`(?i)(?:use the|use|execute|run|call)\s+([A-Za-z_][A-Za-z0-9_]*)\s+tool`)
	toolColonPattern     = regexp.MustCompile(`(?i)tool\s*:\s*([A-Za-z_][A-Za-z0-9_]*)`)
	inputJSONPattern     = regexp.MustCompile(`(?is)(?:Input|Parameters|Args)\s*:\s*(\{.*\})`)
	inputKeyValuePattern = regexp.MustCompile(`(?is)(?:Input|Parameters|Args)\s*:\s*(.+)$`)
)

// ParseToolCall recovers a tool invocation from an action step's raw text.
// It works through a sequence of increasingly permissive strategies and
// never errors: when every strategy fails it returns a nil ToolCall so the
// engine can fold that into a clear observation instead of crashing.
//
// knownTools is the set of registered tool names, consulted only by the
// last-resort keyword scan.
func ParseToolCall(text string, knownTools []string) *ToolCall {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if call := parseCodeBlock(trimmed); call != nil {
		return call
	}
	if call := parseStrictJSON(trimmed); call != nil {
		return call
	}
	if call := parseRepairedJSON(trimmed); call != nil {
		return call
	}
	if call := parseYAMLObject(trimmed); call != nil {
		return call
	}
	if call := parseLineBasedYAML(trimmed); call != nil {
		return call
	}
	if call := parseKeywordPattern(trimmed); call != nil {
		return call
	}
	if call := parseEmergencyScan(trimmed, knownTools); call != nil {
		return call
	}
	return nil
}

func parseCodeBlock(text string) *ToolCall {
	match := codeBlockPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	code := strings.TrimSpace(match[1])
	if code == "" {
		return nil
	}
	return &ToolCall{Name: "code_executor", Parameters: map[string]any{"code": code}}
}

func toolCallFromMap(raw map[string]any) *ToolCall {
	name, ok := raw["tool"].(string)
	if !ok || name == "" {
		return nil
	}
	params, _ := raw["parameters"].(map[string]any)
	if params == nil {
		params = map[string]any{}
	}
	return &ToolCall{Name: name, Parameters: params}
}

func parseStrictJSON(text string) *ToolCall {
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil
	}
	return toolCallFromMap(raw)
}

// parseRepairedJSON handles JSON truncated mid-object (a common failure mode
// when a model's output gets cut off): it tries appending closing braces,
// then slicing out the smallest {"tool":...,"parameters":...} span, then a
// manual brace-balance scan from the first opening brace.
func parseRepairedJSON(text string) *ToolCall {
	for _, suffix := range []string{"}", "}}", "}}}"} {
		var raw map[string]any
		if err := json.Unmarshal([]byte(text+suffix), &raw); err == nil {
			if call := toolCallFromMap(raw); call != nil {
				return call
			}
		}
	}

	if match := braceSlicePattern.FindString(text); match != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(match), &raw); err == nil {
			if call := toolCallFromMap(raw); call != nil {
				return call
			}
		}
	}

	if span := balancedBraceSpan(text); span != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(span), &raw); err == nil {
			if call := toolCallFromMap(raw); call != nil {
				return call
			}
		}
	}
	return nil
}

func balancedBraceSpan(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func parseYAMLObject(text string) *ToolCall {
	candidate := text
	if span := balancedBraceSpan(text); span != "" {
		candidate = span
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}
	return toolCallFromMap(raw)
}

// parseLineBasedYAML looks for a "tool: name" line followed by a
// "parameters:" block, scraping either an indented YAML block or bare
// "key: value" lines underneath it.
func parseLineBasedYAML(text string) *ToolCall {
	toolMatch := toolLinePattern.FindStringSubmatch(text)
	if toolMatch == nil {
		return nil
	}
	name := strings.Trim(strings.TrimSpace(toolMatch[1]), `"'`)
	if name == "" {
		return nil
	}

	params := map[string]any{}
	if block := parametersYAMLBlock.FindStringSubmatch(text); block != nil {
		var parsed map[string]any
		if err := yaml.Unmarshal([]byte(block[1]), &parsed); err == nil && parsed != nil {
			params = parsed
		}
	}
	if len(params) == 0 {
		for _, match := range keyValuePattern.FindAllStringSubmatch(text, -1) {
			key := strings.ToLower(match[1])
			if key == "tool" || key == "parameters" {
				continue
			}
			params[match[1]] = strings.Trim(strings.TrimSpace(match[2]), `"'`)
		}
	}
	return &ToolCall{Name: name, Parameters: params}
}

// parseKeywordPattern matches phrasing like "Use the web_search tool" or
// "Tool: web_search" combined with a following Input/Parameters/Args tail.
func parseKeywordPattern(text string) *ToolCall {
	var name string
	if m := keywordToolPattern.FindStringSubmatch(text); m != nil {
		name = m[1]
	} else if m := toolColonPattern.FindStringSubmatch(text); m != nil {
		name = m[1]
	}
	if name == "" {
		return nil
	}

	params := map[string]any{}
	if m := inputJSONPattern.FindStringSubmatch(text); m != nil {
		var raw map[string]any
		if err := json.Unmarshal([]byte(m[1]), &raw); err == nil {
			params = raw
		}
	} else if m := inputKeyValuePattern.FindStringSubmatch(text); m != nil {
		for _, pair := range strings.Split(m[1], ",") {
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) == 2 {
				params[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
			}
		}
	}
	return &ToolCall{Name: name, Parameters: params}
}

// parseEmergencyScan is the last resort: scan the text case-insensitively
// for any registered tool name and, if exactly one or more appear, return
// the first match with no parameters rather than giving up entirely.
func parseEmergencyScan(text string, knownTools []string) *ToolCall {
	lower := strings.ToLower(text)
	for _, name := range knownTools {
		if name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(name)) {
			return &ToolCall{Name: name, Parameters: map[string]any{}}
		}
	}
	return nil
}
