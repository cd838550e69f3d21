// Package store implements the domain.Repository port over SQLite
// (modernc.org/sqlite, pure-Go, no cgo) and an in-memory fake for tests.
// Schema and upsert style follow a raw-SQL, one-migration-slice, explicit
// ON CONFLICT idiom: no ORM, no query builder, just prepared statements
// against a hand-written schema.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection handle and exposes the IIDP schema.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) a SQLite database at path and applies migrations.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrations is the IIDP schema, applied in order on every Open.
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS items (
			id         TEXT PRIMARY KEY,
			topic_id   TEXT NOT NULL,
			subject    TEXT NOT NULL,
			type       TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			b          REAL NOT NULL,
			a          REAL NOT NULL,
			c          REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_topic ON items(topic_id)`,

		`CREATE TABLE IF NOT EXISTS learner_profiles (
			learner_id               TEXT PRIMARY KEY,
			overall_theta            REAL NOT NULL DEFAULT 0,
			completed_quiz_count     INTEGER NOT NULL DEFAULT 0,
			assessment_completed_at  TEXT,
			learning_phase           TEXT NOT NULL DEFAULT 'exploration',
			phase_switched_at_quiz   INTEGER,
			topic_attempt_counts_json TEXT NOT NULL DEFAULT '{}',
			subject_balance_json      TEXT NOT NULL DEFAULT '{}',
			total_questions_solved    INTEGER NOT NULL DEFAULT 0,
			version                   INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS topic_abilities (
			learner_id   TEXT NOT NULL,
			topic_id     TEXT NOT NULL,
			theta        REAL NOT NULL,
			se           REAL NOT NULL,
			attempts     INTEGER NOT NULL DEFAULT 0,
			accuracy     REAL,
			last_updated TEXT,
			PRIMARY KEY (learner_id, topic_id)
		)`,

		`CREATE TABLE IF NOT EXISTS responses (
			id              TEXT PRIMARY KEY,
			learner_id      TEXT NOT NULL,
			item_id         TEXT NOT NULL,
			topic_id        TEXT NOT NULL,
			correct         INTEGER NOT NULL,
			elapsed_seconds INTEGER NOT NULL DEFAULT 0,
			theta_before    REAL NOT NULL,
			theta_after     REAL NOT NULL,
			delta_theta     REAL NOT NULL,
			se_before       REAL NOT NULL,
			se_after        REAL NOT NULL,
			answered_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_learner_time ON responses(learner_id, answered_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_learner_item ON responses(learner_id, item_id)`,

		`CREATE TABLE IF NOT EXISTS quizzes (
			id           TEXT PRIMARY KEY,
			learner_id   TEXT NOT NULL,
			number       INTEGER NOT NULL,
			phase        TEXT NOT NULL,
			topics_json  TEXT NOT NULL DEFAULT '[]',
			generated_at TEXT NOT NULL,
			short_quiz   INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_learner ON quizzes(learner_id, number DESC)`,

		`CREATE TABLE IF NOT EXISTS quiz_items (
			quiz_id  TEXT NOT NULL,
			position INTEGER NOT NULL,
			item_id  TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			PRIMARY KEY (quiz_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			learner_id TEXT NOT NULL,
			at         TEXT NOT NULL,
			attrs_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_learner ON events(learner_id, at DESC)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range migrations() {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}
