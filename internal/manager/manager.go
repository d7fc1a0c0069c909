// Package manager sequences logical corpus operations into span edits.
//
// Every operation follows the same two-phase shape: locate everything the
// operation needs across one or more files (read-only), then apply the edits
// and write the affected files back. Any locate-phase failure aborts before
// a single byte hits disk. Nothing is cached between operations; every call
// re-reads the files it touches.
package manager

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/driftdb/snowdrift/internal/apperr"
	"github.com/driftdb/snowdrift/internal/corpus"
	"github.com/driftdb/snowdrift/internal/editor"
	"github.com/driftdb/snowdrift/internal/locator"
	"github.com/driftdb/snowdrift/internal/storage"
)

// Manager coordinates corpus reads, span edits, and atomic writes.
type Manager struct {
	store storage.Provider
}

// New creates a manager over a corpus storage provider.
func New(store storage.Provider) *Manager {
	return &Manager{store: store}
}

// Result reports the outcome of one logical operation.
type Result struct {
	// Key is the declaration the operation resolved to or created.
	Key string `json:"key"`
	// Existing is set when insert found an equivalent declaration and
	// returned its key instead of writing a new one.
	Existing bool `json:"existing,omitempty"`
	// Modified lists the corpus-relative paths written, sorted.
	Modified []string `json:"modified"`
}

// corpusFile is one parsed file plus what the write path needs to restore it.
type corpusFile struct {
	file *locator.File
	crlf bool
}

// files returns the corpus-relative paths of every declaration file, sorted.
func (m *Manager) files() ([]string, error) {
	infos, err := m.store.List(".")
	if err != nil {
		return nil, fmt.Errorf("manager: list corpus: %w", err)
	}
	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		paths = append(paths, info.Path)
	}
	sort.Strings(paths)
	return paths, nil
}

// read loads and parses one corpus file. CRLF files are normalized to LF for
// span arithmetic; write restores the original convention.
func (m *Manager) read(path string) (*corpusFile, error) {
	data, err := m.store.Read(path)
	if err != nil {
		return nil, err
	}
	crlf := bytes.Contains(data, []byte("\r\n"))
	if crlf {
		data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	}
	f, err := locator.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &corpusFile{file: f, crlf: crlf}, nil
}

// write stores edited content, restoring the file's line-ending convention.
func (m *Manager) write(path string, content []byte, crlf bool) error {
	if crlf {
		content = bytes.ReplaceAll(content, []byte("\n"), []byte("\r\n"))
	}
	return m.store.Write(path, content)
}

// readAll parses the whole corpus. Parse failures are collected per file and
// reported together so a corpus-wide scan names every broken file at once.
func (m *Manager) readAll() (map[string]*corpusFile, error) {
	paths, err := m.files()
	if err != nil {
		return nil, err
	}
	parsed := make(map[string]*corpusFile, len(paths))
	var errs []error
	for _, p := range paths {
		cf, err := m.read(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed[p] = cf
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return parsed, nil
}

// locate finds the file holding the declaration for key. The conventional
// year file is tried first; a corpus scan covers keys that live elsewhere.
func (m *Manager) locate(key string) (string, *corpusFile, error) {
	if p, err := corpus.FileForKey(key); err == nil && m.store.Exists(p) {
		cf, err := m.read(p)
		if err != nil {
			return "", nil, err
		}
		if cf.file.Declaration(key) != nil {
			return p, cf, nil
		}
	}
	paths, err := m.files()
	if err != nil {
		return "", nil, err
	}
	for _, p := range paths {
		cf, err := m.read(p)
		if err != nil {
			return "", nil, err
		}
		if cf.file.Declaration(key) != nil {
			return p, cf, nil
		}
	}
	return "", nil, fmt.Errorf("manager: declaration %q: %w", key, apperr.ErrNotFound)
}

// exists reports whether any corpus file declares key.
func (m *Manager) exists(key string) (bool, error) {
	_, _, err := m.locate(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// applyAndWrite runs the apply phase over located batches and writes every
// file that carries edits. Apply failures surface before any write.
func (m *Manager) applyAndWrite(batches map[string]*editor.Batch, crlf map[string]bool) ([]string, error) {
	paths := make([]string, 0, len(batches))
	for p, b := range batches {
		if !b.Empty() {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	outputs := make(map[string][]byte, len(paths))
	for _, p := range paths {
		out, err := batches[p].Apply()
		if err != nil {
			return nil, err
		}
		outputs[p] = out
	}
	for _, p := range paths {
		if err := m.write(p, outputs[p], crlf[p]); err != nil {
			return nil, err
		}
	}
	return paths, nil
}
