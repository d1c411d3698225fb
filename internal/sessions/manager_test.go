package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

func drain(t *testing.T, ch <-chan reactmodel.Event, count int) []reactmodel.Event {
	t.Helper()
	events := make([]reactmodel.Event, 0, count)
	for i := 0; i < count; i++ {
		select {
		case event, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d expected events", i, count)
			}
			events = append(events, event)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i, count)
		}
	}
	return events
}

// TestManager_Subscribe_TwoSubscribersSameOrder asserts that two concurrent
// subscribers to the same session observe every event in the exact same
// order the producer appended them in, whether the subscriber attached
// before or after some events were already recorded.
func TestManager_Subscribe_TwoSubscribersSameOrder(t *testing.T) {
	m := New(nil, nil)
	session := m.CreateSession("find the weather", "test-model")

	if err := m.AddEvent(session.ID, reactmodel.Event{Type: reactmodel.EventStart, Sequence: 1}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}

	earlySub, err := m.Subscribe(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for seq := uint64(2); seq <= 4; seq++ {
		if err := m.AddEvent(session.ID, reactmodel.Event{Type: reactmodel.EventThought, Sequence: seq}); err != nil {
			t.Fatalf("AddEvent failed: %v", err)
		}
	}

	lateSub, err := m.Subscribe(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := m.AddEvent(session.ID, reactmodel.Event{Type: reactmodel.EventEnd, Sequence: 5}); err != nil {
		t.Fatalf("AddEvent failed: %v", err)
	}

	earlyEvents := drain(t, earlySub, 5)
	lateEvents := drain(t, lateSub, 5)

	wantSeqs := []uint64{1, 2, 3, 4, 5}
	for i, want := range wantSeqs {
		if earlyEvents[i].Sequence != want {
			t.Errorf("early subscriber event %d: got sequence %d, want %d", i, earlyEvents[i].Sequence, want)
		}
		if lateEvents[i].Sequence != want {
			t.Errorf("late subscriber event %d: got sequence %d, want %d", i, lateEvents[i].Sequence, want)
		}
	}
}

func TestManager_CreateSession_ReportsMetrics(t *testing.T) {
	metrics := &fakeMetrics{}
	m := New(nil, nil)
	m.SetMetrics(metrics)

	session := m.CreateSession("q", "test-model")
	if metrics.started != 1 {
		t.Errorf("got %d SessionStarted calls, want 1", metrics.started)
	}

	if err := m.CleanupSession(context.Background(), session.ID); err != nil {
		t.Fatalf("CleanupSession failed: %v", err)
	}
	if metrics.ended != 1 {
		t.Errorf("got %d SessionEnded calls, want 1", metrics.ended)
	}
}

type fakeMetrics struct {
	started int
	ended   int
}

func (f *fakeMetrics) SessionStarted() { f.started++ }
func (f *fakeMetrics) SessionEnded()   { f.ended++ }

func TestManager_GetSession_NotFound(t *testing.T) {
	m := New(nil, nil)
	if _, err := m.GetSession("missing"); err == nil {
		t.Error("expected an error for an unknown session id")
	}
}
