// Package storage defines the journal file-system abstraction.
package storage

import "github.com/starford/gitjournal/internal/models"

// Provider is the interface for journal file operations. All paths are
// relative to the repository root.
type Provider interface {
	// Root returns the absolute directory every path is resolved against.
	Root() string
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Dirs returns the directories directly under dir whose names match pattern.
	Dirs(dir, pattern string) ([]string, error)
	// Exists reports whether a regular file exists at path.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the content of path.
	Write(path string, content []byte) error
	// Create atomically writes content to path and fails with
	// apperr.ErrAlreadyExists if the file is already there.
	Create(path string, content []byte) error
}
