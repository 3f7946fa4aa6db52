// Package store persists profiles, evidence, team analyses, relationships and
// history in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"team-insights-go/internal/types"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

type Store struct {
	db  *sql.DB
	now func() time.Time

	// relMu serializes relationship upserts within the process.
	relMu sync.Mutex
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Open opens (creating if needed) the database at path and runs migrations.
// Transactions begin IMMEDIATE so read-modify-write upserts hold the write
// lock for their whole duration.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create data dir: %w", err)
		}
	}
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_txlock=immediate"
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock overrides the store's clock. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	owner_id           TEXT NOT NULL,
	behavioral_enabled INTEGER NOT NULL DEFAULT 0,
	access_policy      TEXT NOT NULL DEFAULT 'admin_only',
	llm_provider       TEXT NOT NULL DEFAULT '',
	llm_model          TEXT NOT NULL DEFAULT '',
	llm_config         TEXT NOT NULL DEFAULT '{}',
	created_at         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS team_members (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	name         TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	email        TEXT NOT NULL DEFAULT '',
	aliases      TEXT NOT NULL DEFAULT '[]',
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	company    TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	aliases    TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	file_ref   TEXT NOT NULL DEFAULT '',
	file_name  TEXT NOT NULL DEFAULT '',
	extraction TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id                         TEXT PRIMARY KEY,
	project_id                 TEXT NOT NULL,
	person_id                  TEXT NOT NULL,
	person_name                TEXT NOT NULL,
	profile_data               TEXT NOT NULL,
	confidence_level           TEXT NOT NULL DEFAULT 'low',
	communication_style        TEXT NOT NULL DEFAULT '',
	dominant_motivation        TEXT NOT NULL DEFAULT '',
	risk_tolerance             TEXT NOT NULL DEFAULT '',
	influence_score            INTEGER NOT NULL DEFAULT 50,
	total_speaking_time        INTEGER NOT NULL DEFAULT 0,
	total_interventions        INTEGER NOT NULL DEFAULT 0,
	total_words                INTEGER NOT NULL DEFAULT 0,
	avg_words_per_intervention REAL NOT NULL DEFAULT 0,
	transcripts_analyzed       TEXT NOT NULL DEFAULT '[]',
	evidence_count             INTEGER NOT NULL DEFAULT 0,
	last_analysis_at           TEXT NOT NULL,
	last_incremental_at        TEXT,
	created_at                 TEXT NOT NULL,
	updated_at                 TEXT NOT NULL,
	UNIQUE (project_id, person_id)
);

CREATE TABLE IF NOT EXISTS profile_evidence (
	id                   TEXT PRIMARY KEY,
	profile_id           TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
	project_id           TEXT NOT NULL,
	person_id            TEXT NOT NULL,
	quote                TEXT NOT NULL,
	trait                TEXT NOT NULL DEFAULT '',
	confidence           TEXT NOT NULL DEFAULT '',
	is_primary           INTEGER NOT NULL DEFAULT 0,
	source_transcript_id TEXT NOT NULL DEFAULT '',
	created_at           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_evidence_profile ON profile_evidence(profile_id);

CREATE TABLE IF NOT EXISTS team_analyses (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL UNIQUE,
	cohesion_score REAL NOT NULL DEFAULT 0,
	tension_level  TEXT NOT NULL DEFAULT '',
	analysis       TEXT NOT NULL,
	member_ids     TEXT NOT NULL DEFAULT '[]',
	transcript_ids TEXT NOT NULL DEFAULT '[]',
	analyzed_at    TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS behavioral_relationships (
	id                TEXT PRIMARY KEY,
	project_id        TEXT NOT NULL,
	from_person_id    TEXT NOT NULL,
	to_person_id      TEXT NOT NULL,
	relationship_type TEXT NOT NULL,
	strength          REAL NOT NULL,
	evidence          TEXT NOT NULL DEFAULT '[]',
	evidence_count    INTEGER NOT NULL DEFAULT 0,
	last_observed_at  TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	UNIQUE (project_id, from_person_id, to_person_id, relationship_type)
);

CREATE TABLE IF NOT EXISTS analysis_history (
	id                    TEXT PRIMARY KEY,
	project_id            TEXT NOT NULL,
	kind                  TEXT NOT NULL,
	subject_id            TEXT NOT NULL DEFAULT '',
	snapshot              TEXT NOT NULL,
	trigger_type          TEXT NOT NULL,
	trigger_transcript_id TEXT NOT NULL DEFAULT '',
	created_at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_subject ON analysis_history(project_id, kind, subject_id);

CREATE TABLE IF NOT EXISTS prompts (
	key        TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// ─── helpers ─────────────────────────────────────────────────────────────────

func newID() string {
	return uuid.New().String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encodeList stores nil slices as [] rather than null.
func encodeList[T any](v []T) string {
	if v == nil {
		v = []T{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func decodeList[T any](s string) ([]T, error) {
	var out []T
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func notFound(what, id string) error {
	return fmt.Errorf("store: %s %q: %w", what, id, types.ErrNotFound)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
