// Package sqlite implements repository.Store on SQLite.
//
// The driver is modernc.org/sqlite, a pure Go translation of SQLite, so
// the binary builds without cgo. Queries go through sqlx for struct
// scanning and IN-clause expansion; the SQL itself is plain and
// parameterised.
//
// The pool is capped at one connection. SQLite serialises writers anyway,
// and an in-memory database (":memory:") only exists on the connection
// that created it.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/fitlog/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB is the SQLite store. Create it with New and Close it when done.
type DB struct {
	conn *sqlx.DB
}

// New opens (or creates) the database at dbPath and brings the schema up
// to date. Use ":memory:" for a throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed during a write. Foreign keys are off by
	// default in SQLite.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// schema is idempotent; every statement uses IF NOT EXISTS.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL,
		verified_email INTEGER NOT NULL DEFAULT 0,
		github_id      INTEGER UNIQUE,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		id              TEXT PRIMARY KEY REFERENCES users(id),
		display_name    TEXT NOT NULL,
		gender          TEXT,
		preferred_units TEXT,
		target_weight   REAL,
		target_calories REAL,
		weight_goal     TEXT,
		country         TEXT,
		state           TEXT,
		city            TEXT,
		last_activity   DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS foods (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		date       TEXT NOT NULL,
		time       TEXT,
		name       TEXT NOT NULL,
		quantity   TEXT,
		calories   REAL,
		protein    REAL,
		parent_id  TEXT REFERENCES foods(id),
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_user_date ON foods(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_foods_parent ON foods(parent_id)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL REFERENCES users(id),
		file_name    TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size         INTEGER NOT NULL DEFAULT 0,
		date         TEXT NOT NULL,
		time         TEXT,
		upload_time  DATETIME NOT NULL,
		food_id      TEXT REFERENCES foods(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_photos_user_date ON photos(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_photos_food ON photos(food_id)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		parent_id   TEXT REFERENCES tags(id),
		tag         TEXT NOT NULL,
		description TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tags_user ON tags(user_id)`,
	`CREATE TABLE IF NOT EXISTS photo_labels (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL REFERENCES users(id),
		photo_id         TEXT NOT NULL REFERENCES photos(id),
		tag_id           TEXT NOT NULL REFERENCES tags(id),
		bounding_box     TEXT,
		bounding_polygon TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_photo_labels_photo ON photo_labels(photo_id)`,
	`CREATE TABLE IF NOT EXISTS bodyweights (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		date       TEXT NOT NULL,
		time       TEXT,
		bodyweight REAL NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bodyweights_user_date ON bodyweights(user_id, date)`,
}

func (db *DB) migrate() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("applying %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// in expands a query holding one or more "IN (?)" placeholders.
func in(query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("sqlite: expanding IN clause: %w", err)
	}
	return q, a, nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// likePattern turns user input into a LIKE pattern matching it anywhere,
// with the LIKE wildcards in the input escaped. Use with ESCAPE '\'.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
