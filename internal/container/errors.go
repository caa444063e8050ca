package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
	"github.com/roach88/northwind/internal/store"
)

var (
	// ErrReadOnly is returned by every mutation of a read-only container.
	ErrReadOnly = store.ErrReadOnly

	ErrNotFound             = errors.New("entity not found")
	ErrWrongType            = errors.New("entity has a different type")
	ErrIdentityInUse        = errors.New("identity already in use")
	ErrDuplicateKey         = errors.New("duplicate natural key")
	ErrRequiredRelationship = errors.New("required relationship missing")
)

func notFound(id model.ID) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// DuplicateKeyError reports a natural key value already held by another
// entity of the same type.
type DuplicateKeyError struct {
	Entity   schema.EntityType
	Field    string
	Value    string
	Existing model.ID
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s.%s %s (held by %s)", e.Entity, e.Field, e.Value, e.Existing)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// MissingLink names a required edge with no target.
type MissingLink struct {
	Ref  graph.Ref
	Edge string
}

func (m MissingLink) String() string {
	return m.Ref.String() + "." + m.Edge
}

// RequiredRelationshipError lists every required edge left empty by the
// changes being saved.
type RequiredRelationshipError struct {
	Missing []MissingLink
}

func (e *RequiredRelationshipError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = m.String()
	}
	return "required relationship missing: " + strings.Join(parts, ", ")
}

func (e *RequiredRelationshipError) Unwrap() error {
	return ErrRequiredRelationship
}
