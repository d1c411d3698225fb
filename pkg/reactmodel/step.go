// Package reactmodel defines the shared data types passed between the
// ReAct engine, tool registry, session manager, and persistence layers.
package reactmodel

import (
	"strconv"
	"time"
)

// StepType identifies which phase of the Reason-Act-Observe cycle a Step
// records.
type StepType string

const (
	StepThought     StepType = "thought"
	StepAction      StepType = "action"
	StepObservation StepType = "observation"
	StepFinalAnswer StepType = "final_answer"
)

// Step is a single entry in a run's history.
type Step struct {
	Type       StepType       `json:"type"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	ToolOutput any            `json:"tool_output,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// State is the full mutable record of one ReAct run: the original query,
// the accumulated steps, and the terminal outcome once reached.
type State struct {
	OriginalQuery string         `json:"original_query"`
	Steps         []Step         `json:"steps"`
	CurrentStep   int            `json:"current_step"`
	MaxSteps      int            `json:"max_steps"`
	IsCompleted   bool           `json:"is_completed"`
	FinalAnswer   string         `json:"final_answer,omitempty"`
	Error         string         `json:"error,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Plan          string         `json:"plan,omitempty"`
}

// SetPlan records the optional pre-loop planning pass output.
func (s *State) SetPlan(plan string) {
	s.Plan = plan
}

// NewState creates a State ready for its first step.
func NewState(query string, maxSteps int) *State {
	if maxSteps <= 0 {
		maxSteps = 10
	}
	return &State{
		OriginalQuery: query,
		MaxSteps:      maxSteps,
		Context:       make(map[string]any),
	}
}

// AddStep appends step to the history and advances the step counter.
func (s *State) AddStep(step Step) {
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	s.Steps = append(s.Steps, step)
	s.CurrentStep++
}

// AddThought records a THOUGHT step.
func (s *State) AddThought(content string, metadata map[string]any) {
	s.AddStep(Step{Type: StepThought, Content: content, Metadata: metadata})
}

// AddAction records an ACTION step, capturing the parsed tool call if any.
func (s *State) AddAction(content, toolName string, toolInput map[string]any, metadata map[string]any) {
	s.AddStep(Step{
		Type:      StepAction,
		Content:   content,
		ToolName:  toolName,
		ToolInput: toolInput,
		Metadata:  metadata,
	})
}

// AddObservation records an OBSERVATION step, capturing the tool's output or
// error.
func (s *State) AddObservation(content string, output any, errMsg string, metadata map[string]any) {
	s.AddStep(Step{
		Type:       StepObservation,
		Content:    content,
		ToolOutput: output,
		Error:      errMsg,
		Metadata:   metadata,
	})
}

// SetFinalAnswer marks the run complete and appends the terminal step.
func (s *State) SetFinalAnswer(answer string) {
	s.FinalAnswer = answer
	s.IsCompleted = true
	s.AddStep(Step{Type: StepFinalAnswer, Content: answer})
}

// SetError marks the run complete with an error and no final answer.
func (s *State) SetError(err string) {
	s.Error = err
	s.IsCompleted = true
}

// ShouldContinue reports whether the engine may take another step.
func (s *State) ShouldContinue() bool {
	if s.IsCompleted {
		return false
	}
	if s.CurrentStep >= s.MaxSteps {
		return false
	}
	if s.Error != "" {
		return false
	}
	return true
}

// LastStep returns the most recent step, or nil if none have been recorded.
func (s *State) LastStep() *Step {
	if len(s.Steps) == 0 {
		return nil
	}
	return &s.Steps[len(s.Steps)-1]
}

// StepsByType returns every step of the given type, in order.
func (s *State) StepsByType(t StepType) []Step {
	var out []Step
	for _, step := range s.Steps {
		if step.Type == t {
			out = append(out, step)
		}
	}
	return out
}

// FormatHistory renders the run so far as plain text suitable for inclusion
// in a follow-up prompt.
func (s *State) FormatHistory() string {
	out := "Query: " + s.OriginalQuery + "\n"
	thoughtN, actionN, obsN := 0, 0, 0
	for _, step := range s.Steps {
		switch step.Type {
		case StepThought:
			thoughtN++
			out += "\nThought " + strconv.Itoa(thoughtN) + ": " + step.Content + "\n"
		case StepAction:
			actionN++
			out += "\nAction " + strconv.Itoa(actionN) + ": " + step.Content + "\n"
			if step.ToolName != "" {
				out += "Tool: " + step.ToolName + "\n"
			}
		case StepObservation:
			obsN++
			out += "\nObservation " + strconv.Itoa(obsN) + ": " + step.Content + "\n"
			if step.Error != "" {
				out += "Error: " + step.Error + "\n"
			}
		case StepFinalAnswer:
			out += "\nFinal Answer: " + step.Content + "\n"
		}
	}
	return out
}
