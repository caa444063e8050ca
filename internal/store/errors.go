package store

import "errors"

var (
	// ErrReadOnly is returned by every write against a read-only store.
	ErrReadOnly = errors.New("store is read-only")

	// ErrLayout reports a file whose table layout this build cannot read.
	ErrLayout = errors.New("unsupported store layout")

	// ErrClosed is returned by every operation on a closed store.
	ErrClosed = errors.New("store is closed")
)
