package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionMismatch matches every VersionMismatchError.
	ErrVersionMismatch = errors.New("schema version mismatch")

	// ErrNoMigrationPath is returned by Migrations.Plan when no contiguous
	// chain leads from one version to another.
	ErrNoMigrationPath = errors.New("no migration path")
)

// VersionMismatchError reports a store whose recorded version cannot be used
// with the running model.
type VersionMismatchError struct {
	Found    Version
	Expected Version
	Reason   string
}

func (e *VersionMismatchError) Error() string {
	msg := fmt.Sprintf("schema version mismatch: store is %s, model is %s", e.Found, e.Expected)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *VersionMismatchError) Unwrap() error {
	return ErrVersionMismatch
}

// IsVersionMismatch reports whether err is or wraps a version mismatch.
func IsVersionMismatch(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}
