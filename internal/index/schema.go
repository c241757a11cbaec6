// Package index provides a SQLite-backed index of branch journals with
// optional FTS5 full-text search.
//
// The index is a cache of the journal files: Sync can always rebuild it,
// so schema changes drop and recreate the tables instead of migrating rows.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is stored in PRAGMA user_version. Bump it whenever
// coreSchemaSQL or the FTS table changes.
const schemaVersion = 2

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS journals (
	path         TEXT PRIMARY KEY,
	folder       TEXT NOT NULL DEFAULT '',
	branch       TEXT NOT NULL DEFAULT '',
	created      TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL DEFAULT '',
	author       TEXT NOT NULL DEFAULT '',
	head         TEXT NOT NULL DEFAULT '',
	entries      INTEGER NOT NULL DEFAULT 0,
	tags         TEXT NOT NULL DEFAULT '[]',
	checksum     TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL DEFAULT '',
	indexed_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_journals_branch ON journals(branch);
CREATE INDEX IF NOT EXISTS idx_journals_last_updated ON journals(last_updated);
`

const dropSchemaSQL = `
DROP TABLE IF EXISTS journals_fts;
DROP TABLE IF EXISTS journals;
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := applySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func applySchema(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	if version != 0 && version != schemaVersion {
		if _, err := conn.Exec(dropSchemaSQL); err != nil {
			return fmt.Errorf("index: drop schema v%d: %w", version, err)
		}
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("index: write schema version: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
