// Package react implements the Reason-Act-Observe problem-solving loop: it
// drives an LLM chat session through alternating Thought, Action, and
// Observation steps, dispatching Action steps through a tool registry,
// until a Final Answer is produced or the run is forced to stop.
package react

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fenwicklabs/reactor/internal/tools"
	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

var tracer = otel.Tracer("github.com/fenwicklabs/reactor/internal/react")

// SessionFactory builds a fresh llm.ChatSession bound to the engine's model
// and system prompt. The engine calls it once for the main loop and, when
// planning is enabled, again for the disposable planning pass, so the plan
// exchange never lingers in the main loop's conversation history.
type SessionFactory func(ctx context.Context) (ChatSession, error)

// ChatSession is the narrow slice of llm.ChatSession the engine depends on,
// declared locally so this package does not import internal/llm directly.
type ChatSession interface {
	Model() string
	Send(ctx context.Context, message string) (Reply, error)
}

// Reply mirrors llm.Reply's shape without importing internal/llm.
type Reply struct {
	Content string
}

// Config controls how a run behaves.
type Config struct {
	MaxSteps         int
	MaxThoughtCycles int
	EnablePlanning   bool
	SystemContext    string
}

// DefaultConfig returns reasonable defaults: 15 steps, 5 thought cycles,
// planning disabled.
func DefaultConfig() Config {
	return Config{MaxSteps: 15, MaxThoughtCycles: 5}
}

var infiniteLoopMarkers = []string{
	"problem has been", "task is complete", "already provided",
	"no further steps", "solved", "finished",
}

// Engine drives one ReAct run at a time from a fresh State; create one per
// run rather than sharing an Engine across concurrent runs.
type Engine struct {
	newSession SessionFactory
	registry   *tools.Registry
	cfg        Config
}

// NewEngine builds an Engine. registry may be nil, in which case every
// action fails to find a tool and the run proceeds via the engine's normal
// tool-not-found observation path.
func NewEngine(newSession SessionFactory, registry *tools.Registry, cfg Config) *Engine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 15
	}
	if cfg.MaxThoughtCycles <= 0 {
		cfg.MaxThoughtCycles = 5
	}
	return &Engine{newSession: newSession, registry: registry, cfg: cfg}
}

func (e *Engine) registryNames() []string {
	if e.registry == nil {
		return nil
	}
	return e.registry.Names()
}

func (e *Engine) executeTool(ctx context.Context, name string, params map[string]any) *reactmodel.ToolResult {
	if e.registry == nil {
		return &reactmodel.ToolResult{Success: false, Error: fmt.Sprintf("tool '%s' not found", name)}
	}
	return e.registry.Execute(ctx, name, params)
}

func (e *Engine) toolCatalog() []ToolInfo {
	if e.registry == nil {
		return nil
	}
	descriptions := e.registry.Descriptions()
	infos := make([]ToolInfo, 0, len(descriptions))
	for name, desc := range descriptions {
		infos = append(infos, ToolInfo{Name: name, Description: desc})
	}
	return infos
}

// Run starts a ReAct run in a background goroutine and returns the channel
// of events it produces. The channel is closed once the run reaches a
// terminal state (a final answer, an error, or the step budget running
// out) and its closing `end` event has been sent.
func (e *Engine) Run(ctx context.Context, sessionID, query string) (<-chan reactmodel.Event, *reactmodel.State) {
	state := reactmodel.NewState(query, e.cfg.MaxSteps)
	events := make(chan reactmodel.Event, 64)
	go e.run(ctx, sessionID, state, events)
	return events, state
}

type emitter struct {
	sessionID string
	sequence  uint64
	out       chan<- reactmodel.Event
}

func (em *emitter) emit(eventType reactmodel.EventType, content string, success bool, errMsg string, metadata map[string]any) {
	em.sequence++
	em.out <- reactmodel.Event{
		Type:      eventType,
		SessionID: em.sessionID,
		Sequence:  em.sequence,
		Content:   content,
		Success:   success,
		Error:     errMsg,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
}

func (e *Engine) run(ctx context.Context, sessionID string, state *reactmodel.State, out chan<- reactmodel.Event) {
	ctx, span := tracer.Start(ctx, "react.run", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	em := &emitter{sessionID: sessionID, out: out}
	defer close(out)

	em.emit(reactmodel.EventStart, state.OriginalQuery, true, "", nil)

	session, err := e.newSession(ctx)
	if err != nil {
		state.SetError(err.Error())
		em.emit(reactmodel.EventError, err.Error(), false, err.Error(), nil)
		em.emit(reactmodel.EventEnd, "", true, "", nil)
		return
	}

	if e.cfg.EnablePlanning {
		if err := e.planningStep(ctx, state, em); err != nil {
			// Planning is a best-effort enhancement: a failure here is
			// logged as part of the event stream but does not abort the run.
			em.emit(reactmodel.EventThought, "", false, err.Error(), map[string]any{"stage": "plan"})
		}
	}

	for state.ShouldContinue() {
		if e.detectInfiniteLoop(state) {
			e.forceCompletion(state)
			break
		}

		next := e.determineNextStep(state)
		var stepErr error
		switch next {
		case reactmodel.StepThought:
			stepErr = e.thoughtStep(ctx, session, state, em)
		case reactmodel.StepAction:
			stepErr = e.actionStep(ctx, session, state, em)
		case reactmodel.StepObservation:
			stepErr = e.observationStep(ctx, session, state, em)
		case reactmodel.StepFinalAnswer:
			stepErr = e.finalAnswerStep(ctx, session, state, em)
		}

		if stepErr != nil {
			state.SetError(stepErr.Error())
			em.emit(reactmodel.EventError, stepErr.Error(), false, stepErr.Error(), nil)
			em.emit(reactmodel.EventEnd, "", true, "", nil)
			return
		}

		if state.CurrentStep >= state.MaxSteps && !state.IsCompleted {
			e.forceCompletion(state)
			break
		}
	}

	if !state.IsCompleted {
		e.forceCompletion(state)
	}

	em.emit(reactmodel.EventFinalAnswer, state.FinalAnswer, true, "", nil)
	em.emit(reactmodel.EventEnd, "", true, "", nil)
}

// planningStep runs a disposable pre-loop exchange asking the model to lay
// out a short prose plan. It uses its own session so the exchange never
// becomes part of the main loop's conversation history.
func (e *Engine) planningStep(ctx context.Context, state *reactmodel.State, em *emitter) error {
	planSession, err := e.newSession(ctx)
	if err != nil {
		return err
	}
	prompt := FormatPlanningPrompt(state.OriginalQuery, e.toolCatalog(), e.cfg.SystemContext)
	reply, err := planSession.Send(ctx, prompt)
	if err != nil {
		return err
	}
	plan := stripTrailingToolCall(reply.Content)
	state.SetPlan(plan)
	em.emit(reactmodel.EventThought, plan, true, "", map[string]any{"stage": "plan"})
	return nil
}

func (e *Engine) thoughtStep(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter) error {
	prompt := FormatThoughtPrompt(state, e.cfg.MaxThoughtCycles)
	reply, err := session.Send(ctx, prompt)
	if err != nil {
		return err
	}
	content := ParseResponse(reply.Content).Thought
	state.AddThought(content, nil)
	em.emit(reactmodel.EventThought, content, true, "", nil)
	return nil
}

func (e *Engine) actionStep(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter) error {
	prompt := FormatActionPrompt(time.Now().Format(time.RFC3339))
	reply, err := session.Send(ctx, prompt)
	if err != nil {
		return err
	}
	content := ParseResponse(reply.Content).Action

	call := ParseToolCall(content, e.registryNames())
	var toolName string
	var toolInput map[string]any
	if call != nil {
		toolName = call.Name
		toolInput = call.Parameters
	}
	state.AddAction(content, toolName, toolInput, nil)
	em.emit(reactmodel.EventAction, content, true, "", map[string]any{"tool_name": toolName, "tool_input": toolInput})
	return nil
}

func (e *Engine) observationStep(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter) error {
	last := state.LastStep()
	if last == nil || last.Type != reactmodel.StepAction {
		return fmt.Errorf("observation step requires a preceding action step")
	}

	if last.ToolName == "" {
		return e.observeUnparsedAction(ctx, session, state, em, last)
	}

	result := e.executeTool(ctx, last.ToolName, last.ToolInput)
	if obs, ok := result.Value.(reactmodel.Observation); ok {
		return e.recordObservation(ctx, session, state, em, obs, result)
	}
	return e.summarizeObservation(ctx, session, state, em, result, result)
}

// observeUnparsedAction handles an action step the parser could not
// recover a tool call from. If the text looks like a failed tool-call
// attempt it's reported to the model as a parse failure; otherwise it's
// treated as a genuine non-tool action and recorded without an LLM call.
func (e *Engine) observeUnparsedAction(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter, last *reactmodel.Step) error {
	lower := strings.ToLower(last.Content)
	looksLikeFailedToolCall := strings.Contains(lower, "tool") && strings.Contains(last.Content, "{")
	if !looksLikeFailedToolCall {
		state.AddObservation("Non-tool action.", nil, "", map[string]any{"store_output": false})
		em.emit(reactmodel.EventObservation, "Non-tool action.", true, "", nil)
		return nil
	}

	failed := &reactmodel.ToolResult{
		Success: false,
		Error:   "Failed to parse tool from action - check JSON format",
	}
	return e.summarizeObservation(ctx, session, state, em, failed, failed)
}

// recordObservation folds a tool's explicit Observation envelope into the
// run. When SkipLLM is set the tool's own text is used verbatim and no LLM
// call is made at all; otherwise the observation's data/error is summarized
// by the LLM as usual, while the raw data is still what gets stored as the
// step's tool output.
func (e *Engine) recordObservation(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter, obs reactmodel.Observation, raw *reactmodel.ToolResult) error {
	if obs.SkipLLM {
		var output any
		if obs.StoreOutput {
			output = obs.Data
		}
		state.AddObservation(obs.Text, output, obs.Error, obs.Metadata)
		em.emit(reactmodel.EventObservation, obs.Text, obs.Error == "", obs.Error, obs.Metadata)
		return nil
	}

	derived := &reactmodel.ToolResult{Success: obs.Error == "", Value: obs.Data, Error: obs.Error}
	return e.summarizeObservation(ctx, session, state, em, derived, raw)
}

// summarizeObservation asks the LLM to summarize toolResult and records the
// summary as the observation step's content, while storing outputSource's
// value as the step's raw tool output.
func (e *Engine) summarizeObservation(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter, toolResult *reactmodel.ToolResult, outputSource *reactmodel.ToolResult) error {
	prompt := FormatObservationPrompt(toolResult)
	reply, err := session.Send(ctx, prompt)
	if err != nil {
		return err
	}
	content := ParseResponse(reply.Content).Observation
	state.AddObservation(content, outputSource.Value, outputSource.Error, map[string]any{"store_output": true, "store_result": true})
	em.emit(reactmodel.EventObservation, content, toolResult.Success, toolResult.Error, nil)
	return nil
}

func (e *Engine) finalAnswerStep(ctx context.Context, session ChatSession, state *reactmodel.State, em *emitter) error {
	prompt := FormatFinalAnswerPrompt(state)
	reply, err := session.Send(ctx, prompt)
	if err != nil {
		return err
	}
	content := ParseResponse(reply.Content).FinalAnswer
	state.SetFinalAnswer(content)
	return nil
}

// determineNextStep mirrors the ReAct cycle's fixed grammar: a Thought is
// always followed by an Action, an Action by an Observation, and an
// Observation by either another Thought or, once the model signals it's
// ready, a Final Answer.
func (e *Engine) determineNextStep(state *reactmodel.State) reactmodel.StepType {
	last := state.LastStep()
	if last == nil {
		return reactmodel.StepThought
	}
	switch last.Type {
	case reactmodel.StepThought:
		return reactmodel.StepAction
	case reactmodel.StepAction:
		return reactmodel.StepObservation
	case reactmodel.StepObservation:
		if e.shouldProvideFinalAnswer(state) {
			return reactmodel.StepFinalAnswer
		}
		return reactmodel.StepThought
	default:
		return reactmodel.StepFinalAnswer
	}
}

func (e *Engine) shouldProvideFinalAnswer(state *reactmodel.State) bool {
	thoughts := state.StepsByType(reactmodel.StepThought)
	if len(thoughts) >= e.cfg.MaxThoughtCycles {
		return true
	}
	actions := state.StepsByType(reactmodel.StepAction)
	observations := state.StepsByType(reactmodel.StepObservation)
	if len(thoughts) < 1 || len(actions) < 1 || len(observations) < 1 {
		return false
	}
	last := state.LastStep()
	if last == nil {
		return false
	}
	lower := strings.ToLower(last.Content)
	if strings.Contains(lower, "<final_answer_ready/>") {
		return true
	}
	if strings.Contains(lower, "<next_task_required/>") {
		return false
	}
	return false
}

// detectInfiniteLoop only looks once at least 8 steps have run, checking
// whether recent actions are repeating or recent thoughts keep declaring
// the work done without the engine ever reaching a final answer.
func (e *Engine) detectInfiniteLoop(state *reactmodel.State) bool {
	if len(state.Steps) < 8 {
		return false
	}
	recent := state.Steps[len(state.Steps)-8:]

	actionContents := map[string]int{}
	actionCount := 0
	thoughtDoneCount := 0
	thoughtCount := 0
	for _, step := range recent {
		switch step.Type {
		case reactmodel.StepAction:
			actionCount++
			actionContents[strings.ToLower(step.Content)]++
		case reactmodel.StepThought:
			thoughtCount++
			lower := strings.ToLower(step.Content)
			for _, marker := range infiniteLoopMarkers {
				if strings.Contains(lower, marker) {
					thoughtDoneCount++
					break
				}
			}
		}
	}

	if actionCount >= 6 && len(actionContents) <= 2 {
		return true
	}
	if thoughtCount >= 4 && thoughtDoneCount >= 3 {
		return true
	}
	return false
}

// forceCompletion synthesizes a final answer from the run's history when
// the step budget runs out or an infinite loop is detected, so a run always
// ends with a final answer rather than simply stopping mid-cycle.
func (e *Engine) forceCompletion(state *reactmodel.State) {
	summary := fmt.Sprintf(
		"Based on the work done so far, here's what I found:\n\n%s\nThe analysis reached the maximum number of steps, but I can provide this summary of the findings.",
		state.FormatHistory(),
	)
	state.SetFinalAnswer(summary)
}
