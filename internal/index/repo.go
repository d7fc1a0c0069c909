package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftdb/snowdrift/internal/apperr"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// WorkRow represents a row in the works table.
type WorkRow struct {
	Key       string
	File      string
	Class     string
	Year      int
	Title     string
	Display   string
	Authors   string
	Place     string
	UpdatedAt time.Time
}

// EdgeRow represents one directed citation.
type EdgeRow struct {
	File   string
	Source string
	Target string
}

// SearchResult represents one search hit.
type SearchResult struct {
	Key     string
	File    string
	Title   string
	Snippet string
}

// GraphNode is one work in the citation graph.
type GraphNode struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Class string `json:"class"`
	Year  int    `json:"year"`
}

// GraphLink is one citation edge in the graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// UpsertFile replaces one file's contribution to the index: its work rows,
// its citation edges, and its FTS entries, within a transaction.
func (db *DB) UpsertFile(f FileRow, works []WorkRow, edges []EdgeRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := clearFile(tx, f.Path); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO files (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, f.Path, f.Checksum, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	for _, w := range works {
		_, err = tx.Exec(`
			INSERT INTO works (key, file, class, year, title, display, authors, place, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				file       = excluded.file,
				class      = excluded.class,
				year       = excluded.year,
				title      = excluded.title,
				display    = excluded.display,
				authors    = excluded.authors,
				place      = excluded.place,
				updated_at = excluded.updated_at
		`, w.Key, w.File, w.Class, w.Year, w.Title, w.Display, w.Authors, w.Place, w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("index: upsert work %s: %w", w.Key, err)
		}
		if err := ftsUpsert(tx, w.Key, w.Title, w.Authors, w.Display); err != nil {
			return err
		}
	}

	if len(edges) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO citations (file, source, target) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare edge insert: %w", err)
		}
		defer stmt.Close()
		for _, e := range edges {
			if _, err := stmt.Exec(f.Path, e.Source, e.Target); err != nil {
				return fmt.Errorf("index: insert edge: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and everything it contributed.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearFile(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM files WHERE path = ?`, path)

	return tx.Commit()
}

// clearFile removes a file's work rows, FTS entries, and citation edges.
func clearFile(tx *sql.Tx, path string) error {
	rows, err := tx.Query(`SELECT key FROM works WHERE file = ?`, path)
	if err != nil {
		return fmt.Errorf("index: clear file: %w", err)
	}
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range keys {
		ftsDelete(tx, k)
	}
	_, _ = tx.Exec(`DELETE FROM citations WHERE file = ?`, path)
	_, _ = tx.Exec(`DELETE FROM works WHERE file = ?`, path)
	return nil
}

// AllFileChecksums returns the stored checksum of every indexed file.
func (db *DB) AllFileChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// GetWork returns one work row by key.
func (db *DB) GetWork(key string) (*WorkRow, error) {
	var w WorkRow
	err := db.conn.QueryRow(`
		SELECT key, file, class, year, title, display, authors, place, updated_at
		FROM works WHERE key = ?
	`, key).Scan(&w.Key, &w.File, &w.Class, &w.Year, &w.Title, &w.Display, &w.Authors, &w.Place, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get work: %w", err)
	}
	return &w, nil
}

// ListWorks returns paginated works with optional year and class filters.
// sort is "key" (default) or "year".
func (db *DB) ListWorks(limit, offset, year int, class, sort string) ([]WorkRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	where := "1=1"
	args := []any{}
	if year != 0 {
		where += " AND year = ?"
		args = append(args, year)
	}
	if class != "" {
		where += " AND class = ?"
		args = append(args, class)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM works WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count works: %w", err)
	}

	order := "key ASC"
	if sort == "year" {
		order = "year DESC, key ASC"
	}
	rows, err := db.conn.Query(`
		SELECT key, file, class, year, title, display, authors, place, updated_at
		FROM works WHERE `+where+` ORDER BY `+order+` LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list works: %w", err)
	}
	defer rows.Close()

	var out []WorkRow
	for rows.Next() {
		var w WorkRow
		if err := rows.Scan(&w.Key, &w.File, &w.Class, &w.Year, &w.Title, &w.Display, &w.Authors, &w.Place, &w.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, w)
	}
	return out, total, rows.Err()
}

// Graph returns every work and citation edge for graph rendering. Edges
// pointing at keys the index does not know stay included; dangling names are
// a corpus defect worth seeing.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT key, title, class, year FROM works ORDER BY key`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.Key, &n.Title, &n.Class, &n.Year); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = db.conn.Query(`SELECT DISTINCT source, target FROM citations ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer rows.Close()
	var links []GraphLink
	for rows.Next() {
		var l GraphLink
		if err := rows.Scan(&l.Source, &l.Target); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, rows.Err()
}

// Cites returns the keys the given work cites.
func (db *DB) Cites(key string) ([]string, error) {
	return db.edgeEnds(`SELECT DISTINCT target FROM citations WHERE source = ? ORDER BY target`, key)
}

// CitedBy returns the keys of works citing the given work.
func (db *DB) CitedBy(key string) ([]string, error) {
	return db.edgeEnds(`SELECT DISTINCT source FROM citations WHERE target = ? ORDER BY source`, key)
}

func (db *DB) edgeEnds(query, key string) ([]string, error) {
	rows, err := db.conn.Query(query, key)
	if err != nil {
		return nil, fmt.Errorf("index: citation edges: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
