// Package runner drives a ReAct engine run to completion independent of any
// HTTP client, feeding its events into the session manager and scheduling
// a grace-period cleanup once the run ends.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// Engine is the slice of react.Engine the runner depends on, declared
// locally so this package doesn't import internal/react directly.
type Engine interface {
	Run(ctx context.Context, sessionID, query string) (<-chan reactmodel.Event, *reactmodel.State)
}

// SessionManager is the slice of sessions.Manager the runner depends on.
type SessionManager interface {
	AddEvent(id string, event reactmodel.Event) error
	UpdateStatus(id string, status reactmodel.SessionStatus) error
	SetFinalAnswer(id, answer string) error
	SetError(id, errText string) error
	CleanupSession(ctx context.Context, id string) error
}

// Metrics is the slice of observability.Metrics the runner depends on,
// declared locally so this package doesn't import internal/observability
// directly.
type Metrics interface {
	RecordStep(stepType string)
}

// GracePeriod is how long a completed session stays queryable before its
// background cleanup runs, giving late subscribers a window to attach and
// replay the snapshot.
const GracePeriod = 60 * time.Second

// Runner schedules background ReAct runs, one goroutine per session.
type Runner struct {
	sessions SessionManager
	logger   *slog.Logger
	metrics  Metrics
}

// New builds a Runner.
func New(sessions SessionManager, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{sessions: sessions, logger: logger}
}

// SetMetrics attaches a metrics recorder. A nil metrics disables reporting.
func (r *Runner) SetMetrics(metrics Metrics) {
	r.metrics = metrics
}

// Run starts engine's run for sessionID in its own goroutine and returns
// immediately; it does not block the caller.
func (r *Runner) Run(ctx context.Context, engine Engine, sessionID, query string) {
	go r.run(ctx, engine, sessionID, query)
}

func (r *Runner) run(ctx context.Context, engine Engine, sessionID, query string) {
	if err := r.sessions.UpdateStatus(sessionID, reactmodel.StatusRunning); err != nil {
		r.logger.Error("failed to mark session running", "session_id", sessionID, "error", err)
		return
	}

	start := time.Now()
	events, state := engine.Run(ctx, sessionID, query)

	var runErr string
	var stats reactmodel.RunStats
	for event := range events {
		stats.Fold(event)
		if r.metrics != nil {
			r.metrics.RecordStep(string(event.Type))
		}
		if err := r.sessions.AddEvent(sessionID, event); err != nil {
			r.logger.Warn("failed to record event", "session_id", sessionID, "error", err)
		}
		if event.Type == reactmodel.EventError {
			runErr = event.Error
		}
	}
	stats.WallTime = time.Since(start)

	if runErr != "" {
		_ = r.sessions.SetError(sessionID, runErr)
		_ = r.sessions.UpdateStatus(sessionID, reactmodel.StatusFailed)
	} else {
		_ = r.sessions.SetFinalAnswer(sessionID, state.FinalAnswer)
		_ = r.sessions.UpdateStatus(sessionID, reactmodel.StatusCompleted)
	}

	r.logger.Info("run completed",
		"session_id", sessionID,
		"thoughts", stats.Thoughts,
		"actions", stats.Actions,
		"observations", stats.Observations,
		"errors", stats.Errors,
		"wall_time", stats.WallTime,
	)

	r.scheduleCleanup(sessionID)
}

func (r *Runner) scheduleCleanup(sessionID string) {
	time.AfterFunc(GracePeriod, func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.sessions.CleanupSession(cleanupCtx, sessionID); err != nil {
			r.logger.Warn("cleanup failed", "session_id", sessionID, "error", err)
		}
	})
}
