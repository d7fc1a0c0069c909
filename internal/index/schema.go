// Package index provides a SQLite-backed search and citation-graph index
// over the corpus, with optional FTS5 full-text search.
//
// The index is derived data: it is rebuilt from the declaration files at any
// time and is never consulted by the editing path.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS works (
	key        TEXT PRIMARY KEY,
	file       TEXT NOT NULL,
	class      TEXT NOT NULL DEFAULT 'Work',
	year       INTEGER NOT NULL DEFAULT 0,
	title      TEXT NOT NULL DEFAULT '',
	display    TEXT NOT NULL DEFAULT '',
	authors    TEXT NOT NULL DEFAULT '',
	place      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_works_file ON works(file);
CREATE INDEX IF NOT EXISTS idx_works_year ON works(year);

CREATE TABLE IF NOT EXISTS citations (
	file   TEXT NOT NULL,
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	UNIQUE(file, source, target)
);

CREATE INDEX IF NOT EXISTS idx_citations_source ON citations(source);
CREATE INDEX IF NOT EXISTS idx_citations_target ON citations(target);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
