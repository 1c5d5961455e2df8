// Package store provides the SQLite persistence layer for the dashboard.
package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the dashboard storage on SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(30000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id      TEXT PRIMARY KEY,
		cwd             TEXT NOT NULL DEFAULT 'unknown',
		start_time      TEXT NOT NULL,
		end_time        TEXT,
		source          TEXT,
		transcript_path TEXT,
		created_at      TEXT DEFAULT (datetime('now')),
		updated_at      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);

	CREATE TABLE IF NOT EXISTS messages (
		id                    INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id            TEXT NOT NULL REFERENCES sessions(session_id),
		role                  TEXT NOT NULL,
		content               TEXT,
		sequence_num          INTEGER NOT NULL,
		timestamp             TEXT,
		model                 TEXT,
		input_tokens          INTEGER,
		output_tokens         INTEGER,
		cache_read_tokens     INTEGER,
		cache_creation_tokens INTEGER,
		UNIQUE (session_id, sequence_num)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence_num);

	CREATE TABLE IF NOT EXISTS tool_usages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id   INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		tool_name    TEXT NOT NULL,
		tool_input   TEXT,
		sequence_num INTEGER NOT NULL DEFAULT 0,
		timestamp    TEXT,
		UNIQUE (message_id, sequence_num)
	);
	CREATE INDEX IF NOT EXISTS idx_tool_usages_message ON tool_usages(message_id);
	CREATE INDEX IF NOT EXISTS idx_tool_usages_timestamp ON tool_usages(timestamp);

	CREATE TABLE IF NOT EXISTS semantic_filters (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL UNIQUE,
		query_text TEXT NOT NULL,
		created_at TEXT NOT NULL,
		is_active  INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS semantic_filter_results (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		filter_id  INTEGER NOT NULL REFERENCES semantic_filters(id),
		message_id INTEGER NOT NULL REFERENCES messages(id),
		matches    INTEGER NOT NULL,
		confidence REAL,
		scored_at  TEXT,
		UNIQUE (filter_id, message_id)
	);
	CREATE INDEX IF NOT EXISTS idx_filter_results_filter ON semantic_filter_results(filter_id, matches);
	CREATE INDEX IF NOT EXISTS idx_filter_results_message ON semantic_filter_results(message_id);

	CREATE TABLE IF NOT EXISTS message_embeddings (
		message_id INTEGER PRIMARY KEY REFERENCES messages(id) ON DELETE CASCADE,
		model      TEXT NOT NULL,
		dimensions INTEGER NOT NULL,
		embedding  BLOB NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS ingest_runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		sessions    INTEGER NOT NULL DEFAULT 0,
		messages    INTEGER NOT NULL DEFAULT 0,
		tools       INTEGER NOT NULL DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
