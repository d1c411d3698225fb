package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

func sampleSession(id string) reactmodel.Session {
	now := time.Now()
	return reactmodel.Session{
		ID:    id,
		Query: "what is the capital of France",
		Model: "test-model",
		Status: reactmodel.StatusCompleted,
		Events: []reactmodel.Event{
			{Type: reactmodel.EventStart, SessionID: id, Sequence: 1, Content: "what is the capital of France"},
			{Type: reactmodel.EventFinalAnswer, SessionID: id, Sequence: 2, Content: "Paris"},
		},
		FinalAnswer: "Paris",
		CreatedAt:   now,
		CompletedAt: now.Add(time.Second),
	}
}

// TestFileRepository_SaveGetRoundTrip asserts a session saved through Save
// comes back from Get with every field intact, including the nested event
// slice.
func TestFileRepository_SaveGetRoundTrip(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}
	session := sampleSession("chat_20260730_120000")

	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	record, err := repo.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if record.SessionID != session.ID {
		t.Errorf("got session id %q, want %q", record.SessionID, session.ID)
	}
	if record.Query != session.Query {
		t.Errorf("got query %q, want %q", record.Query, session.Query)
	}
	if record.FinalAnswer != session.FinalAnswer {
		t.Errorf("got final answer %q, want %q", record.FinalAnswer, session.FinalAnswer)
	}
	if record.Status != session.Status {
		t.Errorf("got status %q, want %q", record.Status, session.Status)
	}
	if !record.Success {
		t.Error("expected Success to be true for a completed session with no error")
	}
	if len(record.Events) != len(session.Events) {
		t.Fatalf("got %d events, want %d", len(record.Events), len(session.Events))
	}
	for i, event := range session.Events {
		if record.Events[i].Type != event.Type || record.Events[i].Content != event.Content {
			t.Errorf("event %d: got %+v, want %+v", i, record.Events[i], event)
		}
	}
}

// TestFileRepository_Save_NoTempFileLeftBehind asserts a successful Save
// leaves only the final "<id>.json" file in place, not its "<id>.json.tmp"
// staging file.
func TestFileRepository_Save_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepository(dir)
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}
	session := sampleSession("chat_20260730_130000")

	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, session.ID+".json")); err != nil {
		t.Errorf("expected final record file to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, session.ID+".json.tmp")); !os.IsNotExist(err) {
		t.Errorf("expected no leftover .tmp file, stat returned: %v", err)
	}
}

// TestFileRepository_Save_Overwrites asserts saving a second time under the
// same session id replaces the record rather than appending or erroring.
func TestFileRepository_Save_Overwrites(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}
	session := sampleSession("chat_20260730_140000")

	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	session.FinalAnswer = "Lyon"
	if err := repo.Save(context.Background(), session); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	record, err := repo.Get(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if record.FinalAnswer != "Lyon" {
		t.Errorf("got final answer %q, want %q", record.FinalAnswer, "Lyon")
	}
}

func TestFileRepository_Get_NotFound(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository failed: %v", err)
	}
	if _, err := repo.Get(context.Background(), "missing"); err == nil {
		t.Error("expected an error for an unknown session id")
	}
}
