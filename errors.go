// Package memfs contains core domain types and interfaces for the in-memory
// namespace filesystem
package memfs

import (
	"errors"
	"fmt"
)

// Error kinds returned by the namespace. Callers should test with errors.Is
// since operations wrap them in a [PathError].
var (
	ErrNotFound          = errors.New("no such file or directory")
	ErrNotADirectory     = errors.New("not a directory")
	ErrNotAFile          = errors.New("not a regular file")
	ErrNameCollision     = errors.New("name collision")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrInvalidPath       = errors.New("invalid path")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrBadHandle         = errors.New("bad file handle")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyOpen       = errors.New("too many open files")

	// ErrNameTooLong is a kind of ErrInvalidPath
	ErrNameTooLong = fmt.Errorf("file name too long: %w", ErrInvalidPath)
)

// PathError records the failed operation and the path or handle it was
// applied to.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }
