// Package store persists gestures, binds and settings as JSON documents in the
// data directory, and keeps an SQLite journal of dispatched inputs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Outcomes recorded in the journal.
const (
	OutcomeSent      = "sent"
	OutcomePreempted = "preempted"
	OutcomeFailed    = "failed"
)

// Entry is one dispatched input.
type Entry struct {
	ID          string    `json:"id"`
	Gesture     string    `json:"gesture"`
	Bind        string    `json:"bind"`
	Hand        string    `json:"hand,omitempty"`
	HoldSeconds float64   `json:"holdSeconds"`
	Toggle      bool      `json:"toggle"`
	Outcome     string    `json:"outcome"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Journal represents the SQLite input history.
type Journal struct {
	db   *sql.DB
	path string
}

// OpenJournal opens the journal database at dbPath and runs migrations.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer at a time; the dispatcher records from several goroutines.
	db.SetMaxOpenConns(1)

	j := &Journal{
		db:   db,
		path: dbPath,
	}

	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return j, nil
}

// Record stores e, filling in its ID and timestamp when unset.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO input_history (id, gesture, bind, hand, hold_seconds, toggle, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.Bind, e.Hand, e.HoldSeconds, e.Toggle, e.Outcome, e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record input: %w", err)
	}
	return e, nil
}

// Recent returns at most limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, gesture, bind, hand, hold_seconds, toggle, outcome, created_at
		 FROM input_history ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query input history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Gesture, &e.Bind, &e.Hand, &e.HoldSeconds, &e.Toggle, &e.Outcome, &created); err != nil {
			return nil, fmt.Errorf("failed to scan input history: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate input history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM input_history WHERE created_at < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune input history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}
