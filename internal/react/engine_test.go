package react

import (
	"context"
	"testing"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// scriptedSession returns replyContent for every Send call, regardless of
// the prompt, recording each prompt it was given.
type scriptedSession struct {
	replyContent string
	prompts      []string
}

func (s *scriptedSession) Model() string { return "test-model" }

func (s *scriptedSession) Send(ctx context.Context, message string) (Reply, error) {
	s.prompts = append(s.prompts, message)
	return Reply{Content: s.replyContent}, nil
}

func newTestEngine(session ChatSession, cfg Config) *Engine {
	return NewEngine(func(ctx context.Context) (ChatSession, error) {
		return session, nil
	}, nil, cfg)
}

// TestEngine_Run_EventSequence drives a full run with a single thought
// cycle (MaxThoughtCycles: 1 forces a final answer right after the first
// observation) and asserts the emitted events follow the fixed
// Start -> Thought -> Action -> Observation -> FinalAnswer -> End grammar,
// in that order, with strictly increasing sequence numbers.
func TestEngine_Run_EventSequence(t *testing.T) {
	session := &scriptedSession{replyContent: "nothing tool-shaped here"}
	engine := newTestEngine(session, Config{MaxSteps: 10, MaxThoughtCycles: 1})

	events, state := engine.Run(context.Background(), "sess-1", "what is the weather")

	var got []reactmodel.EventType
	var lastSeq uint64
	for event := range events {
		if event.Sequence <= lastSeq {
			t.Errorf("event sequence did not strictly increase: got %d after %d", event.Sequence, lastSeq)
		}
		lastSeq = event.Sequence
		got = append(got, event.Type)
	}

	want := []reactmodel.EventType{
		reactmodel.EventStart,
		reactmodel.EventThought,
		reactmodel.EventAction,
		reactmodel.EventObservation,
		reactmodel.EventFinalAnswer,
		reactmodel.EventEnd,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d events %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s (full sequence: %v)", i, got[i], want[i], got)
		}
	}
	if !state.IsCompleted {
		t.Error("expected state to be completed after the run")
	}
}

// TestEngine_Run_SessionFactoryError asserts a run that can't even obtain a
// ChatSession still terminates with an Error event followed by an End
// event, rather than hanging or panicking.
func TestEngine_Run_SessionFactoryError(t *testing.T) {
	engine := NewEngine(func(ctx context.Context) (ChatSession, error) {
		return nil, context.DeadlineExceeded
	}, nil, DefaultConfig())

	events, _ := engine.Run(context.Background(), "sess-2", "query")
	var got []reactmodel.EventType
	for event := range events {
		got = append(got, event.Type)
	}
	want := []reactmodel.EventType{reactmodel.EventStart, reactmodel.EventError, reactmodel.EventEnd}
	if len(got) != len(want) {
		t.Fatalf("got %d events %v, want %d events %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

// TestEngine_DetectInfiniteLoop_TooFewSteps asserts the detector never
// fires before the run has accumulated 8 steps, regardless of content.
func TestEngine_DetectInfiniteLoop_TooFewSteps(t *testing.T) {
	engine := newTestEngine(&scriptedSession{}, DefaultConfig())
	state := reactmodel.NewState("q", 50)
	for i := 0; i < 7; i++ {
		state.AddAction("same action", "", nil, nil)
	}
	if engine.detectInfiniteLoop(state) {
		t.Error("expected no infinite-loop detection with fewer than 8 steps")
	}
}

// TestEngine_DetectInfiniteLoop_RepeatedActions asserts the detector fires
// once at least 6 of the last 8 steps are actions with at most 2 distinct
// contents among them - the repeating-action short-circuit.
func TestEngine_DetectInfiniteLoop_RepeatedActions(t *testing.T) {
	engine := newTestEngine(&scriptedSession{}, DefaultConfig())
	state := reactmodel.NewState("q", 50)
	for i := 0; i < 8; i++ {
		state.AddAction("retry the same thing", "", nil, nil)
	}
	if !engine.detectInfiniteLoop(state) {
		t.Error("expected infinite-loop detection for 8 identical repeated actions")
	}
}

// TestEngine_DetectInfiniteLoop_RepeatedDoneThoughts asserts the detector
// fires when recent thoughts keep declaring the work finished without the
// run ever reaching a final answer.
func TestEngine_DetectInfiniteLoop_RepeatedDoneThoughts(t *testing.T) {
	engine := newTestEngine(&scriptedSession{}, DefaultConfig())
	state := reactmodel.NewState("q", 50)
	for i := 0; i < 4; i++ {
		state.AddThought("the task is complete", nil)
		state.AddAction("noop", "", nil, nil)
	}
	if !engine.detectInfiniteLoop(state) {
		t.Error("expected infinite-loop detection for repeated done-declaring thoughts")
	}
}

// TestEngine_DetectInfiniteLoop_DistinctStepsNoFalsePositive asserts 8
// genuinely distinct steps never trip the detector.
func TestEngine_DetectInfiniteLoop_DistinctStepsNoFalsePositive(t *testing.T) {
	engine := newTestEngine(&scriptedSession{}, DefaultConfig())
	state := reactmodel.NewState("q", 50)
	for i := 0; i < 8; i++ {
		state.AddAction("distinct action number", "", nil, nil)
		state.Steps[len(state.Steps)-1].Content += string(rune('a' + i))
	}
	if engine.detectInfiniteLoop(state) {
		t.Error("did not expect infinite-loop detection for 8 distinct actions")
	}
}

// TestEngine_ForceCompletion_MarksStateComplete asserts forceCompletion
// always leaves the run in a completed state with a non-empty answer
// synthesized from the run's history, so a detected loop never leaves the
// run hanging mid-cycle.
func TestEngine_ForceCompletion_MarksStateComplete(t *testing.T) {
	engine := newTestEngine(&scriptedSession{}, DefaultConfig())
	state := reactmodel.NewState("q", 50)
	state.AddThought("thinking", nil)

	engine.forceCompletion(state)

	if !state.IsCompleted {
		t.Error("expected state to be marked completed")
	}
	if state.FinalAnswer == "" {
		t.Error("expected a non-empty synthesized final answer")
	}
}
