package provision

import (
	"errors"
	"fmt"
)

var (
	// ErrDestinationUnresolvable is returned when no destination was given
	// and no default directory is configured.
	ErrDestinationUnresolvable = errors.New("bootstrap destination unresolvable")
	// ErrFilesystem matches every FilesystemError.
	ErrFilesystem = errors.New("filesystem failure")
)

// FilesystemError reports a failed filesystem step of a bootstrap. Failures
// are not retried.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrFilesystem and the underlying cause, so
// errors.Is(err, fs.ErrNotExist) keeps working.
func (e *FilesystemError) Unwrap() []error {
	return []error{ErrFilesystem, e.Err}
}

func fsError(op, path string, err error) error {
	return &FilesystemError{Op: op, Path: path, Err: err}
}
