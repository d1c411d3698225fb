// Package persistence defines the Repository contract completed sessions
// are saved through, plus a file-backed and a Postgres/JSONB-backed
// implementation of it.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// ErrNotFound is returned by Get/Delete when no record matches the id.
var ErrNotFound = errors.New("session record not found")

// Record is the stable external shape a completed session is saved as:
// richer than reactmodel.Session in that it carries derived summary
// fields (duration, event_count) a caller can filter/sort on without
// re-walking the full event list.
type Record struct {
	SessionID       string            `json:"session_id"`
	Timestamp       time.Time         `json:"timestamp"`
	Query           string            `json:"query"`
	Events          []reactmodel.Event `json:"events"`
	FinalAnswer     string            `json:"final_answer,omitempty"`
	Success         bool              `json:"success"`
	DurationSeconds float64           `json:"duration_seconds"`
	Model           string            `json:"model"`
	Status          reactmodel.SessionStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     time.Time         `json:"completed_at,omitempty"`
	EventCount      int               `json:"event_count"`
	Error           string            `json:"error,omitempty"`
}

// RecordFromSession derives the saved Record shape from a live Session.
func RecordFromSession(session reactmodel.Session) Record {
	var duration float64
	if !session.CompletedAt.IsZero() && !session.CreatedAt.IsZero() {
		duration = session.CompletedAt.Sub(session.CreatedAt).Seconds()
	}
	return Record{
		SessionID:       session.ID,
		Timestamp:       time.Now(),
		Query:           session.Query,
		Events:          session.Events,
		FinalAnswer:     session.FinalAnswer,
		Success:         session.Status == reactmodel.StatusCompleted && session.Error == "",
		DurationSeconds: duration,
		Model:           session.Model,
		Status:          session.Status,
		CreatedAt:       session.CreatedAt,
		CompletedAt:     session.CompletedAt,
		EventCount:      len(session.Events),
		Error:           session.Error,
	}
}

// Repository is the Persistence Gateway contract: save/get/list/search/
// delete over completed session records. Every method is safe to call
// from a goroutine awaiting it without stalling the caller's own
// scheduler, since both implementations bound their I/O with ctx.
type Repository interface {
	Save(ctx context.Context, session reactmodel.Session) error
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	Search(ctx context.Context, queryText string) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// matchesQuery reports whether queryText appears, case-insensitively, in
// record's query, final answer, or any event's content. FileRepository
// searches with it; PostgresRepository matches in SQL instead, with ILIKE
// over query, final_answer, and the whole events JSON text.
func matchesQuery(record Record, queryText string) bool {
	needle := normalizeForSearch(queryText)
	if containsFold(record.Query, needle) || containsFold(record.FinalAnswer, needle) {
		return true
	}
	for _, event := range record.Events {
		if containsFold(event.Content, needle) {
			return true
		}
	}
	return false
}
