// Package history keeps an append-only SQLite log of translation activity:
// requests, results, failures, and undos. It is an audit trail only — the
// document itself remains the sole source of truth for which spans are
// currently translated, so nothing here is ever consulted by the undo path.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Event kinds.
const (
	KindRequested  = "requested"
	KindTranslated = "translated"
	KindFailed     = "failed"
	KindUndone     = "undone"
)

// Schema is the DDL for the history table. Applied by Open.
const Schema = `
CREATE TABLE IF NOT EXISTS translation_events (
    event_id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    original TEXT NOT NULL,
    translated TEXT,
    context_before TEXT,
    context_after TEXT,
    model TEXT,
    duration_ms INTEGER,
    error TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_events_created ON translation_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_kind ON translation_events(kind, created_at DESC);
`

// Event is one row of translation activity.
type Event struct {
	ID            string `json:"event_id"`
	Kind          string `json:"kind"`
	Original      string `json:"original"`
	Translated    string `json:"translated,omitempty"`
	ContextBefore string `json:"context_before,omitempty"`
	ContextAfter  string `json:"context_after,omitempty"`
	Model         string `json:"model,omitempty"`
	DurationMs    int64  `json:"duration_ms,omitempty"`
	Error         string `json:"error,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// Recorder writes events. A failing history store must never block or fail
// a translation, so Record logs errors instead of returning them.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
	newID  func() string
}

// Open opens (or creates) the history database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Recorder{
		db:     db,
		logger: logger,
		newID:  func() string { return "evt_" + uuid.Must(uuid.NewV7()).String() },
	}, nil
}

// DB exposes the underlying handle (for Cleanup scheduling in the daemon).
func (r *Recorder) DB() *sql.DB { return r.db }

// Close closes the database.
func (r *Recorder) Close() error { return r.db.Close() }

// Record appends an event. Errors are logged, not propagated.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = r.newID()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	err := execRetry(ctx, r.db, `
		INSERT INTO translation_events (
			event_id, kind, original, translated, context_before,
			context_after, model, duration_ms, error, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Kind, e.Original, e.Translated, e.ContextBefore,
		e.ContextAfter, e.Model, e.DurationMs, e.Error, e.CreatedAt)
	if err != nil {
		r.logger.Error("history: record failed", "kind", e.Kind, "error", err)
	}
}

// Recent returns the n most recent events, newest first.
func (r *Recorder) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, kind, original, COALESCE(translated,''),
		       COALESCE(context_before,''), COALESCE(context_after,''),
		       COALESCE(model,''), COALESCE(duration_ms,0),
		       COALESCE(error,''), created_at
		FROM translation_events
		ORDER BY created_at DESC, event_id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.Original, &e.Translated,
			&e.ContextBefore, &e.ContextAfter, &e.Model, &e.DurationMs,
			&e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than days. Zero days means no cleanup.
func (r *Recorder) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if err := execRetry(ctx, r.db,
		`DELETE FROM translation_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("history: cleanup: %w", err)
	}
	return nil
}

const maxBusyRetries = 3

// isBusy reports whether err indicates an SQLite BUSY condition.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// execRetry executes a statement with retry on SQLITE_BUSY, backing off
// 100/200/300 ms between attempts.
func execRetry(ctx context.Context, db *sql.DB, query string, args ...any) error {
	for i := range maxBusyRetries {
		_, err := db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !isBusy(err) || i == maxBusyRetries-1 {
			return err
		}
		if err := sleepCtx(ctx, time.Duration(100*(i+1))*time.Millisecond); err != nil {
			return fmt.Errorf("history: context cancelled during retry: %w", err)
		}
	}
	return fmt.Errorf("history: max busy retries exceeded")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
