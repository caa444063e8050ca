package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/northwind/internal/schema"
)

var (
	// ErrUnknownField matches every UnknownFieldError.
	ErrUnknownField  = errors.New("unknown predicate field")
	ErrUnknownEntity = errors.New("unknown entity type")
	ErrWrongEntity   = errors.New("accessor applied to wrong entity type")
)

// UnknownFieldError reports a predicate name with no registered accessor.
type UnknownFieldError struct {
	Entity schema.EntityType
	Name   string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown predicate field %q for %s", e.Name, e.Entity)
}

func (e *UnknownFieldError) Unwrap() error {
	return ErrUnknownField
}

// IsUnknownField reports whether err is or wraps an UnknownFieldError.
func IsUnknownField(err error) bool {
	return errors.Is(err, ErrUnknownField)
}
