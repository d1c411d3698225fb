// Package sessions tracks every in-flight and recently-completed ReAct run:
// one producer (the background runner) appends events, and any number of
// subscribers fan out from the same ordered stream.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// ErrSessionNotFound is returned by Get/AddEvent/UpdateStatus/Subscribe when
// no session with the given id is registered.
var ErrSessionNotFound = errors.New("session not found")

// subscriberQueueSize bounds each subscriber's backlog; once full, new
// events are dropped for that subscriber rather than blocking the producer.
const subscriberQueueSize = 256

// Repository is the slice of persistence.Repository the manager needs to
// snapshot a session on completion, declared locally to avoid an import
// cycle between sessions and persistence.
type Repository interface {
	Save(ctx context.Context, record reactmodel.Session) error
}

// Metrics is the slice of observability.Metrics the manager depends on,
// declared locally so this package doesn't import internal/observability
// directly.
type Metrics interface {
	SessionStarted()
	SessionEnded()
}

type subscriber struct {
	queue  chan reactmodel.Event
	cancel context.CancelFunc
}

type entry struct {
	mu          sync.Mutex
	session     reactmodel.Session
	subscribers map[int]*subscriber
	nextSubID   int
}

// Manager is the single process-wide registry of sessions. Create one
// instance and share it across the HTTP/CLI layer and the background
// runner.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	repo     Repository
	logger   *slog.Logger
	metrics  Metrics
}

// New builds a Manager. repo may be nil, in which case cleanup simply drops
// the session without persisting it.
func New(repo Repository, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		repo:     repo,
		logger:   logger,
	}
}

// SetMetrics attaches a metrics recorder. A nil metrics disables reporting.
func (m *Manager) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// NewSessionID derives a session id from the current wall-clock time in the
// "chat_YYYYMMDD_HHMMSS" format. Collisions within the same second are
// vanishingly unlikely for a single process's session creation rate; a
// caller that needs a hard uniqueness guarantee should check CreateSession's
// behavior (it never errors on id reuse, it simply overwrites) against its
// own requirements.
func NewSessionID(now time.Time) string {
	return "chat_" + now.Format("20060102_150405")
}

// CreateSession registers a new session in the Created state.
func (m *Manager) CreateSession(query, model string) reactmodel.Session {
	now := time.Now()
	session := reactmodel.Session{
		ID:        NewSessionID(now),
		Query:     query,
		Model:     model,
		Status:    reactmodel.StatusCreated,
		CreatedAt: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = &entry{session: session, subscribers: make(map[int]*subscriber)}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionStarted()
	}

	return session
}

func (m *Manager) lookup(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	return e, ok
}

// GetSession returns a snapshot of the session's current state.
func (m *Manager) GetSession(id string) (reactmodel.Session, error) {
	e, ok := m.lookup(id)
	if !ok {
		return reactmodel.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, nil
}

// ListSessions returns up to limit sessions, newest-first by CreatedAt,
// skipping the first offset results.
func (m *Manager) ListSessions(limit, offset int) []reactmodel.Session {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	snapshots := make([]reactmodel.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		snapshots = append(snapshots, e.session)
		e.mu.Unlock()
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})

	if offset >= len(snapshots) {
		return nil
	}
	snapshots = snapshots[offset:]
	if limit > 0 && limit < len(snapshots) {
		snapshots = snapshots[:limit]
	}
	return snapshots
}

// AddEvent appends event to the session's history and broadcasts it to
// every subscriber's queue without blocking: a subscriber whose queue is
// full has this event dropped for it, logged as a warning, while the
// session's own event log still records it in full.
func (m *Manager) AddEvent(id string, event reactmodel.Event) error {
	e, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	e.session.Events = append(e.session.Events, event)
	subs := make([]*subscriber, 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		subs = append(subs, sub)
	}
	e.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.queue <- event:
		default:
			m.logger.Warn("dropping event for slow subscriber", "session_id", id, "event_type", event.Type)
		}
	}
	return nil
}

// UpdateStatus transitions the session's status, stamping CompletedAt when
// it reaches a terminal state.
func (m *Manager) UpdateStatus(id string, status reactmodel.SessionStatus) error {
	e, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Status = status
	if status == reactmodel.StatusCompleted || status == reactmodel.StatusFailed {
		e.session.CompletedAt = time.Now()
	}
	return nil
}

// SetFinalAnswer records the run's outcome text directly on the session.
func (m *Manager) SetFinalAnswer(id, answer string) error {
	e, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.FinalAnswer = answer
	return nil
}

// SetError records the run's failure reason directly on the session.
func (m *Manager) SetError(id, errText string) error {
	e, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Error = errText
	return nil
}

// Subscribe returns a channel that first replays every event already
// recorded for the session (the snapshot), then continues to deliver new
// events as they arrive (the live tail), preserving the order the engine
// produced them in. Cancel ctx to stop the subscription and release its
// queue; CleanupSession also stops it.
func (m *Manager) Subscribe(ctx context.Context, id string) (<-chan reactmodel.Event, error) {
	e, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscriber{queue: make(chan reactmodel.Event, subscriberQueueSize), cancel: cancel}

	e.mu.Lock()
	snapshot := append([]reactmodel.Event(nil), e.session.Events...)
	subID := e.nextSubID
	e.nextSubID++
	e.subscribers[subID] = sub
	e.mu.Unlock()

	out := make(chan reactmodel.Event, subscriberQueueSize)
	go func() {
		defer close(out)
		defer func() {
			e.mu.Lock()
			delete(e.subscribers, subID)
			e.mu.Unlock()
		}()

		for _, event := range snapshot {
			select {
			case out <- event:
			case <-subCtx.Done():
				return
			}
		}

		for {
			select {
			case event, ok := <-sub.queue:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-subCtx.Done():
					return
				}
			case <-subCtx.Done():
				return
			}
		}
	}()

	return out, nil
}

// CleanupSession transitions the session to Completed, persists it through
// repo if configured, and removes it along with its subscribers from the
// manager.
func (m *Manager) CleanupSession(ctx context.Context, id string) error {
	e, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	e.mu.Lock()
	e.session.Status = reactmodel.StatusCompleted
	if e.session.CompletedAt.IsZero() {
		e.session.CompletedAt = time.Now()
	}
	snapshot := e.session
	for _, sub := range e.subscribers {
		sub.cancel()
	}
	e.mu.Unlock()

	if m.repo != nil {
		if err := m.repo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("persist session %s: %w", id, err)
		}
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionEnded()
	}
	return nil
}

// CleanupOldSessions cleans up every Completed or Failed session whose
// CompletedAt is older than maxAge.
func (m *Manager) CleanupOldSessions(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	m.mu.RLock()
	candidates := make([]string, 0)
	for id, e := range m.sessions {
		e.mu.Lock()
		terminal := e.session.Status == reactmodel.StatusCompleted || e.session.Status == reactmodel.StatusFailed
		stale := !e.session.CompletedAt.IsZero() && e.session.CompletedAt.Before(cutoff)
		e.mu.Unlock()
		if terminal && stale {
			candidates = append(candidates, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range candidates {
		if err := m.CleanupSession(ctx, id); err != nil {
			m.logger.Warn("cleanup of stale session failed", "session_id", id, "error", err)
		}
	}
}
