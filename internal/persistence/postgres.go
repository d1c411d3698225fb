package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/fenwicklabs/reactor/pkg/reactmodel"
)

// PostgresConfig holds connection pool tuning for a PostgresRepository.
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns reasonable pool defaults; DSN must still be
// set by the caller.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// PostgresRepository stores one row per session keyed by session_id, with
// the events array kept as a JSONB column, playing the role the original
// system gave to a MongoDB document store.
type PostgresRepository struct {
	db *sql.DB
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS react_sessions (
	session_id       TEXT PRIMARY KEY,
	query            TEXT NOT NULL,
	events           JSONB NOT NULL DEFAULT '[]',
	final_answer     TEXT,
	success          BOOLEAN NOT NULL DEFAULT FALSE,
	duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
	model            TEXT,
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	completed_at     TIMESTAMPTZ,
	event_count      INTEGER NOT NULL DEFAULT 0,
	error            TEXT
);
CREATE INDEX IF NOT EXISTS react_sessions_created_at_idx ON react_sessions (created_at DESC);
`

// NewPostgresRepository opens a connection pool per config, ensures the
// backing table exists, and returns a ready PostgresRepository.
func NewPostgresRepository(ctx context.Context, config PostgresConfig) (*PostgresRepository, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("persistence: DSN is required")
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 25
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime <= 0 {
		config.ConnMaxLifetime = 5 * time.Minute
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 10 * time.Second
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("persistence: open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ensure schema: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Save upserts session as a row keyed by session_id.
func (r *PostgresRepository) Save(ctx context.Context, session reactmodel.Session) error {
	record := RecordFromSession(session)
	eventsJSON, err := json.Marshal(record.Events)
	if err != nil {
		return fmt.Errorf("persistence: encode events: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO react_sessions
			(session_id, query, events, final_answer, success, duration_seconds, model, status, created_at, completed_at, event_count, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id) DO UPDATE SET
			query = EXCLUDED.query,
			events = EXCLUDED.events,
			final_answer = EXCLUDED.final_answer,
			success = EXCLUDED.success,
			duration_seconds = EXCLUDED.duration_seconds,
			model = EXCLUDED.model,
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			event_count = EXCLUDED.event_count,
			error = EXCLUDED.error
	`,
		record.SessionID, record.Query, eventsJSON, record.FinalAnswer, record.Success,
		record.DurationSeconds, record.Model, record.Status, record.CreatedAt,
		nullableTime(record.CompletedAt), record.EventCount, record.Error,
	)
	if err != nil {
		return fmt.Errorf("persistence: save session: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func scanRecord(row interface{ Scan(dest ...any) error }) (Record, error) {
	var record Record
	var eventsJSON []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&record.SessionID, &record.Query, &eventsJSON, &record.FinalAnswer, &record.Success,
		&record.DurationSeconds, &record.Model, &record.Status, &record.CreatedAt,
		&completedAt, &record.EventCount, &record.Error,
	)
	if err != nil {
		return Record{}, err
	}
	if completedAt.Valid {
		record.CompletedAt = completedAt.Time
	}
	if err := json.Unmarshal(eventsJSON, &record.Events); err != nil {
		return Record{}, fmt.Errorf("persistence: decode events: %w", err)
	}
	return record, nil
}

const selectColumns = `session_id, query, events, final_answer, success, duration_seconds, model, status, created_at, completed_at, event_count, error`

// Get fetches a single record by session_id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM react_sessions WHERE session_id = $1`, id)
	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("persistence: get session: %w", err)
	}
	return record, nil
}

// List returns records ordered by created_at descending.
func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM react_sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: list sessions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

// Search performs a case-insensitive substring match across query,
// final_answer, and the JSON-serialized events column.
func (r *PostgresRepository) Search(ctx context.Context, queryText string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM react_sessions
		 WHERE query ILIKE '%' || $1 || '%'
		    OR final_answer ILIKE '%' || $1 || '%'
		    OR events::text ILIKE '%' || $1 || '%'
		 ORDER BY created_at DESC`,
		queryText,
	)
	if err != nil {
		return nil, fmt.Errorf("persistence: search sessions: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func scanAll(rows *sql.Rows) ([]Record, error) {
	records := make([]Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("persistence: scan session: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("persistence: iterate sessions: %w", err)
	}
	return records, nil
}

// Delete removes the row for id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM react_sessions WHERE session_id = $1`, id)
	if err != nil {
		return fmt.Errorf("persistence: delete session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("persistence: delete session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
