package reactmodel

// ToolResult is the uniform envelope every tool invocation returns, whether
// it succeeded or failed.
type ToolResult struct {
	Success  bool           `json:"success"`
	Value    any            `json:"value"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Observation carries a tool's output into the engine along with hints
// about how the engine should fold it into the run. A tool that wants to
// bypass the LLM observation-summarization call sets SkipLLM, supplying the
// text the engine should store directly.
type Observation struct {
	Data        any            `json:"data"`
	Text        string         `json:"observation,omitempty"`
	Error       string         `json:"error,omitempty"`
	StoreOutput bool           `json:"store_output"`
	StoreResult bool           `json:"store_result"`
	SkipLLM     bool           `json:"skip_llm"`
	LogQuery    string         `json:"log_query,omitempty"`
	LogResponse string         `json:"log_response,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UsageRecord accumulates every accounted invocation of one tool, for the
// registry's per-tool invocation_count/success_rate bookkeeping.
type UsageRecord struct {
	ToolName        string  `json:"tool_name"`
	InvocationCount int64   `json:"invocation_count"`
	SuccessCount    int64   `json:"success_count"`
	TotalSeconds    float64 `json:"total_seconds"`
}

// SuccessRate returns SuccessCount/InvocationCount, or 0 if no invocations
// have been recorded yet.
func (u UsageRecord) SuccessRate() float64 {
	if u.InvocationCount == 0 {
		return 0
	}
	return float64(u.SuccessCount) / float64(u.InvocationCount)
}
