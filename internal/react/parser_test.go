package react

import "testing"

// TestParseToolCall_NeverPanics exercises ParseToolCall against a spread of
// adversarial inputs - including the empty string - and asserts it always
// returns cleanly rather than panicking. It never asserts the returned
// ToolCall is non-nil: nil is itself the valid outcome for unrecognizable
// text.
func TestParseToolCall_NeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"\n\n\t",
		"{",
		"}}}}",
		`{"tool": "search"`,
		`{"tool": "search", "parameters": {`,
		"```python\n",
		"```python\nprint(1)",
		"```\nno language tag\n```",
		"tool: \n",
		"parameters:\n  -\n",
		"Use the tool.",
		"Input: {not json}",
		string([]byte{0x00, 0xff, 0xfe}),
		string(make([]byte, 10000)),
	}

	for i, input := range inputs {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					t.Errorf("input %d panicked: %v", i, rec)
				}
			}()
			ParseToolCall(input, []string{"search", "code_executor"})
		}()
	}
}

func TestParseToolCall_EmptyReturnsNil(t *testing.T) {
	if call := ParseToolCall("", nil); call != nil {
		t.Errorf("expected nil ToolCall for empty input, got %+v", call)
	}
	if call := ParseToolCall("   ", nil); call != nil {
		t.Errorf("expected nil ToolCall for whitespace-only input, got %+v", call)
	}
}

func TestParseToolCall_UnrecognizableTextReturnsNil(t *testing.T) {
	call := ParseToolCall("just some prose with no structure at all", nil)
	if call != nil {
		t.Errorf("expected nil ToolCall, got %+v", call)
	}
}

func TestParseToolCall_PythonFenceRoutesToCodeExecutor(t *testing.T) {
	call := ParseToolCall("```python\nprint('hi')\n```", nil)
	if call == nil || call.Name != "code_executor" {
		t.Fatalf("expected code_executor call, got %+v", call)
	}
}

func TestParseToolCall_NonPythonFenceFallsThrough(t *testing.T) {
	call := ParseToolCall("```json\n{\"tool\": \"search\", \"parameters\": {\"q\": \"x\"}}\n```", nil)
	if call == nil || call.Name != "search" {
		t.Fatalf("expected the JSON fence to fall through to the JSON strategies and parse as a search call, got %+v", call)
	}
}
