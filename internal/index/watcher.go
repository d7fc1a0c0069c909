package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftdb/snowdrift/internal/storage"
	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the corpus root and keeps the index in
// step with outside edits (notebook sessions, editors, git checkouts) until
// ctx is cancelled. cb (if non-nil) fires after each successful mutation.
//
// Directories created at runtime are added to the watch list. Rename events
// schedule a debounced reconciliation pass, because fsnotify reports only the
// old path of a rename.
func Watch(ctx context.Context, db *DB, store storage.Provider, corpusRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := watchTree(w, corpusRoot); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", corpusRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			handleEvent(w, db, store, corpusRoot, logger, cb, scheduleReconcile, ev)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleEvent(w *fsnotify.Watcher, db *DB, store storage.Provider, corpusRoot string,
	logger *slog.Logger, cb EventCallback, scheduleReconcile func(), ev fsnotify.Event) {
	abs := ev.Name

	// A new directory starts being watched; declaration files already inside
	// it are indexed in the same pass.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			if err := watchTree(w, abs); err != nil {
				logger.Warn("watcher: add dir failed", slog.String("path", abs), slog.String("error", err.Error()))
			}
			indexTree(db, store, corpusRoot, abs, logger, cb)
			return
		}
	}

	// Only declaration files matter; this also skips the atomic-write temp
	// files the storage layer creates next to them.
	if !strings.HasSuffix(abs, ".py") {
		return
	}
	rel, err := filepath.Rel(corpusRoot, abs)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, err := store.Read(rel)
		if err != nil {
			logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if err := IndexFile(db, rel, data); err != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, rel)
		}

	case ev.Op&fsnotify.Remove != 0:
		if err := db.DeleteFile(rel); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", rel))
		if cb != nil {
			cb("deleted", rel)
		}

	case ev.Op&fsnotify.Rename != 0:
		// The new path arrives as its own Create event when it lands inside
		// a watched directory; the reconcile pass catches anything that
		// moved out of view.
		if err := db.DeleteFile(rel); err == nil {
			logger.Debug("watcher: rename old deleted", slog.String("path", rel))
			if cb != nil {
				cb("deleted", rel)
			}
		}
		scheduleReconcile()
	}
}

// reconcile compares the index against the disk: stale entries go, changed
// or unseen files get indexed.
func reconcile(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllFileChecksums()
	if err != nil {
		logger.Warn("reconcile: checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := store.List(".")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteFile(p); err == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, err := store.Read(p)
		if err != nil {
			continue
		}
		if err := IndexFile(db, p, data); err == nil {
			logger.Debug("reconcile: indexed", slog.String("path", p))
			if cb != nil {
				cb("created", p)
			}
		}
	}
}

// indexTree indexes every declaration file under a newly watched directory.
func indexTree(db *DB, store storage.Provider, corpusRoot, dir string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".py") {
			return nil
		}
		rel, err := filepath.Rel(corpusRoot, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, err := store.Read(rel)
		if err != nil {
			return nil
		}
		if err := IndexFile(db, rel, data); err == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb("created", rel)
			}
		}
		return nil
	})
}

// watchTree adds root and all its subdirectories to the watcher.
func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
