package draftstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	session_key TEXT NOT NULL,
	slot        TEXT NOT NULL,
	position    INTEGER NOT NULL,
	text        TEXT NOT NULL,
	saved_at    INTEGER NOT NULL,
	PRIMARY KEY (session_key, slot)
);
CREATE INDEX IF NOT EXISTS idx_drafts_session ON drafts(session_key);
`

// SQLite is a Store backed by a SQLite file (pure Go driver).
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("draftstore: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("draftstore: open %s: %w", path, err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("draftstore: create schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Save(ctx context.Context, snap Snapshot) error {
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("draftstore: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drafts WHERE session_key = ?`, snap.Key); err != nil {
		return fmt.Errorf("draftstore: replace %q: %w", snap.Key, err)
	}
	for i, d := range snap.Drafts {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO drafts (session_key, slot, position, text, saved_at) VALUES (?, ?, ?, ?, ?)`,
			snap.Key, d.Slot, i, d.Text, savedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("draftstore: save slot %q: %w", d.Slot, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("draftstore: commit: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, key string) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, text, saved_at FROM drafts WHERE session_key = ? ORDER BY position`, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("draftstore: load %q: %w", key, err)
	}
	defer rows.Close()

	snap := Snapshot{Key: key}
	found := false
	for rows.Next() {
		var d Draft
		var savedAt int64
		if err := rows.Scan(&d.Slot, &d.Text, &savedAt); err != nil {
			return Snapshot{}, fmt.Errorf("draftstore: scan: %w", err)
		}
		snap.Drafts = append(snap.Drafts, d)
		snap.SavedAt = time.Unix(0, savedAt)
		found = true
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("draftstore: load %q: %w", key, err)
	}
	if !found {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (s *SQLite) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("draftstore: clear %q: %w", key, err)
	}
	return nil
}
