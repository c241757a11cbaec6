// Package apperr defines the sentinel errors shared across gitjournal.
package apperr

import "errors"

var (
	// ErrNoRepository means no version-control context could be discovered.
	ErrNoRepository = errors.New("not in a git repository")
	// ErrAlreadyExists is returned when a journal file appeared before it could be created.
	ErrAlreadyExists = errors.New("already exists")
	// ErrSchemaParse means a journal deviates from the fixed section schema.
	ErrSchemaParse = errors.New("journal does not match the section schema")
	// ErrWriteFailure wraps storage errors during the temp-write/rename sequence.
	ErrWriteFailure = errors.New("write failed")
	ErrNotFound     = errors.New("not found")
)
