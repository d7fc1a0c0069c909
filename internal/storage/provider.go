// Package storage defines the corpus file-system abstraction.
package storage

import "time"

// FileInfo is lightweight metadata for one declaration file.
type FileInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for corpus file operations. All paths are
// relative to the corpus root.
type Provider interface {
	// List returns metadata for every declaration file under dir.
	List(dir string) ([]FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether a file is present at path.
	Exists(path string) bool
}
