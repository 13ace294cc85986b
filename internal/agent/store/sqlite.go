package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/drblury/agentflow/internal/agent/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS submission_events (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id      TEXT NOT NULL UNIQUE,
	submission_id INTEGER NOT NULL,
	kind          TEXT NOT NULL,
	payload       BLOB NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submission_events_submission
	ON submission_events (submission_id, seq);
`

// SQLiteStore is a durable event log on SQLite. Aggregates are derived by
// replaying the log in insertion order; the unique event_id makes commits
// idempotent even across processes.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) an event store at the given path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Commit(ctx context.Context, submissionID int64, events ...domain.Event) (*domain.Submission, []domain.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	var applied []domain.Event
	for _, e := range events {
		base := e.Base()
		if base.Committed {
			continue
		}

		payload, err := domain.MarshalEvent(e)
		if err != nil {
			return nil, nil, err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO submission_events
				(event_id, submission_id, kind, payload, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			base.EventID, submissionID, e.Kind(), payload,
			base.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("insert event %s: %w", base.EventID, err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return nil, nil, fmt.Errorf("insert event %s: %w", base.EventID, err)
		}
		if inserted == 0 {
			// Already persisted by an earlier commit attempt.
			base.Committed = true
			continue
		}

		base.Committed = true
		applied = append(applied, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit events: %w", err)
	}

	sub, err := s.Load(ctx, submissionID)
	if err != nil {
		return nil, nil, err
	}
	return sub, applied, nil
}

func (s *SQLiteStore) Load(ctx context.Context, submissionID int64) (*domain.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM submission_events
		 WHERE submission_id = ? ORDER BY seq`,
		submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load submission %d: %w", submissionID, err)
	}
	defer rows.Close()

	sub := domain.NewSubmission(submissionID)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e, err := domain.UnmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		e.Apply(sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load submission %d: %w", submissionID, err)
	}
	return sub, nil
}

// ListEvents returns the decoded event log for a submission, in commit order.
// Intended for diagnostics and the failure callback.
func (s *SQLiteStore) ListEvents(ctx context.Context, submissionID int64) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM submission_events
		 WHERE submission_id = ? ORDER BY seq`,
		submissionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events for %d: %w", submissionID, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		e, err := domain.UnmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		e.Base().Committed = true
		events = append(events, e)
	}
	return events, rows.Err()
}
