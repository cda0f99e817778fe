// Package apperr defines sentinel errors shared across the storage subsystem.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
	ErrMalformedImport  = errors.New("malformed import payload")
	ErrDefaultWorkspace = errors.New("default workspace cannot be deleted")
	ErrNoWorkspace      = errors.New("workspace does not exist")
)
