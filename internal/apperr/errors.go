// Package apperr defines the sentinel errors shared across layers.
package apperr

import "errors"

var (
	// ErrNotFound reports a key, file, or span that could not be located.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey reports an attempt to create or rename to a key that
	// already exists somewhere in the corpus.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrSpanConflict reports two edits scheduled over overlapping spans in
	// the same batch.
	ErrSpanConflict = errors.New("span conflict")
	// ErrParse reports declaration-file content that is not valid syntax.
	ErrParse = errors.New("parse error")
	// ErrStaleState reports a file that changed between locating an edit and
	// applying it.
	ErrStaleState = errors.New("stale state")
	// ErrConflict reports an operation the current corpus state forbids,
	// such as deleting a work other declarations still reference.
	ErrConflict = errors.New("conflict")
)
