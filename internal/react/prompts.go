package react

import (
	"fmt"
	"strings"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

const systemPromptTemplate = `You are a highly intelligent AI assistant that solves complex problems step-by-step using the ReAct (Reasoning + Acting) framework. Your goal is to provide accurate, efficient, and reliable solutions.

Today's Date: %s. Use this for any date-related tasks.

**ReAct Framework:**
You will proceed in a loop of Thought -> Action -> Observation.
1.  **Thought**: Analyze the problem, history, and previous observation to form a plan for the next action.
2.  **Action**: Execute a single, specific action. This MUST be a tool call in the specified JSON format.
3.  **Observation**: I will provide the result of your action. You will then start the next cycle with a new Thought.

**Available Tools:**
You have access to the following tools. Use them when necessary.
%s

**CRITICAL Response Format:**
You MUST follow these rules for every response.
-   **For Tool Actions**:
    -   **Code Execution ONLY**: Use `+"```python\\nyour_code_here\\n```"+` format (no JSON wrapper)
    -   **All Other Tools**: Your response MUST be ONLY a single, valid JSON object
        -   Format: {"tool": "tool_name", "parameters": {"param_name": "param_value"}}
        -   Do NOT include any text, explanations, or markdown before or after the JSON
        -   Ensure all strings in JSON are enclosed in double quotes
-   **For Thoughts, Observations, and Final Answer**: Respond in plain text. Do NOT use JSON.

**General Guidelines:**
-   Be methodical. Analyze the results of each action before planning the next one.
-   If a tool fails, analyze the error and try a different approach. Do not repeat the same failed action.
-   Break down complex problems into smaller, manageable steps.
-   Strive to solve the problem in the fewest steps possible.`

const planningPromptTemplate = `**Original Query:** %s

%s**Task:**
Produce a short, prose plan for how you will approach this query using the available tools below. Do not include a tool call; this is planning only.

**Available Tools:**
%s

**Plan:**`

const thoughtPromptTemplate = `**Original Query:** %s

**Task:**
1.  Analyze the original query and formulate a concise plan for your next immediate action.
2.  Provide ONLY your thought process. Do not include the action itself.

You have completed %d/%d thought cycles. Use the remaining cycles effectively.

**Thought:**`

const actionPromptTemplate = `**Current Time:** %s

**Task:**
Based on your last thought, execute ONE tool action.

**Response Requirements:**
-   **For code_executor**: You MUST respond with `+"```python\\nyour_code_here\\n```"+` format ONLY
-   **For all other tools**: You MUST respond with a single, complete, and valid JSON object
-   Refer to the system prompt for the exact format and rules
-   Do NOT add any extra text or explanations

**Action:**`

const observationPromptTemplate = `**Tool Execution Result:**
-   Success: %v
-   Output: %s
-   Error: %s

**Task:**
1.  Analyze the result of the action.
2.  Determine if the problem is solved or what the next logical step should be.

**Completion Markers (use at the end of your observation):**
-   ` + "`<next_task_required/>`" + `: If more steps are needed to solve the problem.
-   ` + "`<final_answer_ready/>`" + `: If you have successfully solved the problem and verified the answer.

**Observation:**`

const finalAnswerPromptTemplate = `**Original Query:** %s

**Task:**
Provide the final, comprehensive answer to the original query.

**Final Answer:**`

// ToolInfo is the minimal shape the prompt templates need from a tool: its
// name and human description.
type ToolInfo struct {
	Name        string
	Description string
}

// formatToolCatalog renders the tool list as "- name: description" lines.
func formatToolCatalog(tools []ToolInfo) string {
	if len(tools) == 0 {
		return "No tools are currently available."
	}
	lines := make([]string, 0, len(tools))
	for _, tool := range tools {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name, tool.Description))
	}
	return strings.Join(lines, "\n")
}

// FormatSystemPrompt builds the system prompt from the tool catalog and
// the current date (format "2006-01-02").
func FormatSystemPrompt(tools []ToolInfo, currentDate string) string {
	return fmt.Sprintf(systemPromptTemplate, currentDate, formatToolCatalog(tools))
}

// FormatPlanningPrompt builds the optional pre-loop planning prompt.
func FormatPlanningPrompt(query string, tools []ToolInfo, systemContext string) string {
	context := ""
	if systemContext != "" {
		context = "**Additional Context:** " + systemContext + "\n\n"
	}
	return fmt.Sprintf(planningPromptTemplate, query, context, formatToolCatalog(tools))
}

// FormatThoughtPrompt builds the prompt for a Thought step.
func FormatThoughtPrompt(state *reactmodel.State, maxThoughtCycles int) string {
	thoughtSteps := len(state.StepsByType(reactmodel.StepThought))
	return fmt.Sprintf(thoughtPromptTemplate, state.OriginalQuery, thoughtSteps, maxThoughtCycles)
}

// FormatActionPrompt builds the prompt for an Action step.
func FormatActionPrompt(currentDateTime string) string {
	return fmt.Sprintf(actionPromptTemplate, currentDateTime)
}

// FormatObservationPrompt builds the prompt for an Observation step from a
// tool result.
func FormatObservationPrompt(result *reactmodel.ToolResult) string {
	success := false
	output := "No tool executed"
	errMsg := "None"
	if result != nil {
		success = result.Success
		if result.Value != nil {
			output = fmt.Sprintf("%v", result.Value)
		} else {
			output = "No output"
		}
		if result.Error != "" {
			errMsg = result.Error
		}
	}
	return fmt.Sprintf(observationPromptTemplate, success, output, errMsg)
}

// FormatFinalAnswerPrompt builds the prompt for the Final Answer step.
func FormatFinalAnswerPrompt(state *reactmodel.State) string {
	return fmt.Sprintf(finalAnswerPromptTemplate, state.OriginalQuery)
}

var responsePrefixes = []string{
	"Thought:", "Action:", "Observation:", "Final Answer:",
	"Your response should start with your analysis of the situation:",
	"Your action:", "Your observation:", "Your final answer:",
}

// ParsedResponse holds the same cleaned content under every field name, so
// the caller picks whichever is relevant for the step type it just ran.
type ParsedResponse struct {
	Thought     string
	Action      string
	Observation string
	FinalAnswer string
}

// ParseResponse strips role-label prefixes the model sometimes echoes back
// and returns the cleaned text under every field. It never fails: with
// nothing recognizable to strip, it returns the trimmed input unchanged.
func ParseResponse(response string) ParsedResponse {
	content := strings.TrimSpace(response)

	for _, prefix := range responsePrefixes {
		if strings.HasPrefix(content, prefix) {
			content = strings.TrimSpace(content[len(prefix):])
			break
		}
	}

	return ParsedResponse{
		Thought:     content,
		Action:      content,
		Observation: content,
		FinalAnswer: content,
	}
}
