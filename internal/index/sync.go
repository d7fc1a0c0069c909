package index

import (
	"log/slog"
	"time"

	"github.com/driftdb/snowdrift/internal/checksum"
	"github.com/driftdb/snowdrift/internal/locator"
	"github.com/driftdb/snowdrift/internal/models"
	"github.com/driftdb/snowdrift/internal/storage"
)

// Sync walks the corpus and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// A file that fails to parse is logged and skipped; the index keeps the last
// good view of it and the rest of the corpus still syncs.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List(".")
	if err != nil {
		return err
	}

	checksums, err := db.AllFileChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses one declaration file and upserts its works and citation
// edges. Exported so the watcher can reuse it.
func IndexFile(db *DB, path string, data []byte) error {
	f, err := locator.Parse(path, data)
	if err != nil {
		return err
	}
	now := time.Now()

	var works []WorkRow
	var edges []EdgeRow
	for i := range f.Statements {
		stmt := &f.Statements[i]
		switch {
		case stmt.Decl != nil && models.IsWorkClass(stmt.Decl.Constructor):
			w := models.WorkFromDeclaration(path, f.Source, stmt.Decl)
			works = append(works, WorkRow{
				Key:       w.Key,
				File:      path,
				Class:     w.Class,
				Year:      w.Year,
				Title:     w.Title,
				Display:   w.Display,
				Authors:   w.Authors,
				Place:     w.Place,
				UpdatedAt: now,
			})
			for _, e := range models.CitationEdges(f.Source, stmt.Decl) {
				edges = append(edges, EdgeRow{File: path, Source: e.Source, Target: e.Target})
			}
		case stmt.Call != nil:
			if e, ok := models.EdgeFromCall(stmt.Call); ok {
				edges = append(edges, EdgeRow{File: path, Source: e.Source, Target: e.Target})
			}
		}
	}

	return db.UpsertFile(FileRow{Path: path, Checksum: checksum.Sum(data), UpdatedAt: now}, works, edges)
}
