//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS works_fts USING fts5(
			key UNINDEXED,
			title,
			authors,
			display,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, key, title, authors, display string) error {
	_, _ = tx.Exec(`DELETE FROM works_fts WHERE key = ?`, key)
	_, err := tx.Exec(`INSERT INTO works_fts (key, title, authors, display) VALUES (?, ?, ?, ?)`,
		key, title, authors, display)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, key string) {
	_, _ = tx.Exec(`DELETE FROM works_fts WHERE key = ?`, key)
}

// Search performs an FTS5 full-text search over title, authors, and display.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.key,
		       w.file,
		       w.title,
		       snippet(works_fts, 1, '<b>', '</b>', '...', 64)
		FROM works_fts f
		JOIN works w ON w.key = f.key
		WHERE works_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Key, &r.File, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
