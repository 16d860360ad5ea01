// Package apperr holds the sentinel errors shared across the workspace engine.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid name")
	ErrCancelled     = errors.New("cancelled")
	ErrNotAFile      = errors.New("not a file")
	ErrInvalidPath   = errors.New("invalid path")
)
