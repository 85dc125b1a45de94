// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the binary builds without a C
// toolchain and cross-compiles like any other Go program.
//
// LAYOUT:
// DB owns the connection pool and the schema. Each entity gets a small store
// type (UserDB, ExampleDB, ...) that shares the pool, so method names like
// Create and List don't collide:
//
//	db, _ := sqlite.New("data/guitar-ai.db")
//	db.Examples().ListPublic(ctx, model.CategoryGuitar, 50)
//
// ONE CONNECTION:
// SQLite allows a single writer at a time anyway. Capping the pool at one
// connection turns "database is locked" errors into plain queueing inside
// database/sql, and keeps ":memory:" databases alive (every new connection
// to ":memory:" would otherwise open a fresh, empty database).
// The flip side: code running inside withTx must only use the *sql.Tx it is
// given, never db.conn, or it waits on itself forever.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out per-entity stores.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/guitar-ai.db" → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() *UserDB             { return &UserDB{db: db} }
func (db *DB) Examples() *ExampleDB       { return &ExampleDB{db: db} }
func (db *DB) Corrections() *CorrectionDB { return &CorrectionDB{db: db} }
func (db *DB) Adjustments() *AdjustmentDB { return &AdjustmentDB{db: db} }
func (db *DB) Templates() *TemplateDB     { return &TemplateDB{db: db} }
func (db *DB) Generations() *GenerationDB { return &GenerationDB{db: db} }

// schema is applied in order on every start. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		github_id     INTEGER UNIQUE,
		email         TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT 'user',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS generations (
		id              TEXT PRIMARY KEY,
		input_text      TEXT NOT NULL,
		generated_text  TEXT NOT NULL,
		category        TEXT NOT NULL,
		owner_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		tokens_used     INTEGER,
		model_version   TEXT NOT NULL DEFAULT '',
		processing_time REAL NOT NULL DEFAULT 0,
		was_saved       INTEGER NOT NULL DEFAULT 0,
		created_at      DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_generations_owner ON generations(owner_id, created_at)`,

	// tags holds a JSON array of strings.
	`CREATE TABLE IF NOT EXISTS examples (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		content     TEXT NOT NULL,
		category    TEXT NOT NULL,
		subcategory TEXT NOT NULL DEFAULT '',
		tags        TEXT NOT NULL DEFAULT '[]',
		owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		visibility  TEXT NOT NULL DEFAULT 'private',
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_examples_owner ON examples(owner_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_examples_public ON examples(category, visibility, created_at)`,

	`CREATE TABLE IF NOT EXISTS corrections (
		id             TEXT PRIMARY KEY,
		original_text  TEXT NOT NULL,
		corrected_text TEXT NOT NULL,
		category       TEXT NOT NULL,
		kind           TEXT NOT NULL DEFAULT 'general',
		owner_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		generation_id  TEXT REFERENCES generations(id) ON DELETE SET NULL,
		applied        INTEGER NOT NULL DEFAULT 0,
		notes          TEXT NOT NULL DEFAULT '',
		created_at     DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_corrections_owner ON corrections(owner_id, category, applied, created_at)`,

	// NULL category = every type, NULL owner_id = system-wide.
	`CREATE TABLE IF NOT EXISTS adjustments (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		category   TEXT,
		owner_id   TEXT REFERENCES users(id) ON DELETE CASCADE,
		active     INTEGER NOT NULL DEFAULT 1,
		priority   INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_adjustments_active ON adjustments(active, priority)`,

	`CREATE TABLE IF NOT EXISTS prompt_templates (
		id         TEXT PRIMARY KEY,
		category   TEXT NOT NULL,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		active     INTEGER NOT NULL DEFAULT 0,
		version    INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	// The database itself refuses a second active template per (owner, type),
	// whatever the application code does.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompt_templates_one_active
		ON prompt_templates(owner_id, category) WHERE active = 1`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "\n")
	return s
}

// withTx runs fn inside a transaction. Any error from fn (or a panic) rolls
// everything back; otherwise the transaction is committed.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// checkAffected turns "no rows matched" into notFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// clampLimit applies the default and maximum page size.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 100:
		return 100
	}
	return limit
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
