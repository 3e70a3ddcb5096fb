package core

import "errors"

// Common errors.
var (
	// ErrUnauthenticated is returned when a record is created with no active identity.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when a mutation targets a record of another owner
	// and the store enforces ownership.
	ErrForbidden = errors.New("record belongs to another owner")
	// ErrInvalidInput is returned when required fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrFolderCycle is returned when a folder would become its own ancestor.
	ErrFolderCycle = errors.New("folder cannot be moved under itself")
	// ErrKeyNotFound is returned by Storage.Get for absent keys.
	ErrKeyNotFound = errors.New("key not found")
	// ErrReadOnly is returned by storage adapters opened in read-only mode.
	ErrReadOnly = errors.New("storage is in read-only mode")
)
