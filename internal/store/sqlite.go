// Package store provides SQLite persistence for the cortex engine.
//
// All seven cortex entities live here, including rate-limit buckets: keeping
// limiter state in the same transactional store means every server instance
// observes one shared counter. Transactions are opened immediate so
// read-modify-write sequences (suburb merges, bucket increments) never hit a
// lock upgrade mid-flight.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeFormat is how timestamps are encoded in TEXT columns.
const timeFormat = time.RFC3339Nano

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_txlock=immediate" +
		"&_pragma=journal_mode(wal)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(on)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id              TEXT PRIMARY KEY,
		email           TEXT,
		name            TEXT,
		memory_space_id TEXT,
		created_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memory_spaces (
		id           TEXT PRIMARY KEY,
		participants TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'active',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversations (
		id            TEXT PRIMARY KEY,
		space_id      TEXT NOT NULL REFERENCES memory_spaces(id),
		messages      TEXT NOT NULL,
		message_count INTEGER NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_space ON conversations(space_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS memories (
		id              TEXT PRIMARY KEY,
		space_id        TEXT NOT NULL REFERENCES memory_spaces(id),
		conversation_id TEXT,
		content         TEXT NOT NULL,
		content_type    TEXT NOT NULL DEFAULT 'text',
		source          TEXT NOT NULL,
		importance      INTEGER NOT NULL DEFAULT 50,
		tags            TEXT,
		version         INTEGER NOT NULL DEFAULT 1,
		access_count    INTEGER NOT NULL DEFAULT 0,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_space ON memories(space_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS facts (
		id         TEXT PRIMARY KEY,
		space_id   TEXT NOT NULL REFERENCES memory_spaces(id),
		fact       TEXT NOT NULL,
		subject    TEXT NOT NULL,
		predicate  TEXT NOT NULL,
		object     TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		category   TEXT NOT NULL,
		tags       TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_facts_space ON facts(space_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS suburb_preferences (
		id                   TEXT PRIMARY KEY,
		user_id              TEXT NOT NULL,
		suburb_name          TEXT NOT NULL,
		state                TEXT NOT NULL,
		preference_score     INTEGER NOT NULL,
		interaction_count    INTEGER NOT NULL DEFAULT 1,
		reasons              TEXT,
		mentioned_in_queries TEXT,
		first_mentioned_at   TEXT NOT NULL,
		last_mentioned_at    TEXT NOT NULL,
		UNIQUE(user_id, suburb_name, state)
	);
	CREATE INDEX IF NOT EXISTS idx_suburb_prefs_user ON suburb_preferences(user_id, preference_score DESC);

	CREATE TABLE IF NOT EXISTS property_interactions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		space_id         TEXT NOT NULL REFERENCES memory_spaces(id),
		property_id      TEXT NOT NULL,
		interaction_type TEXT NOT NULL,
		property_context TEXT,
		query            TEXT,
		version          INTEGER NOT NULL DEFAULT 1,
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_property_interactions_user ON property_interactions(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS rate_limits (
		key          TEXT PRIMARY KEY,
		window_start TEXT NOT NULL,
		count        INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func encodeList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw.String), &items); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t, nil
}
