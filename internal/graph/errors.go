package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

var (
	// ErrDeleteDenied matches every DeleteDeniedError.
	ErrDeleteDenied = errors.New("delete denied")
	// ErrCycle matches every CycleError.
	ErrCycle = errors.New("relationship cycle")

	ErrUnknownEdge = errors.New("unknown edge")
	ErrUnknownNode = errors.New("unknown node")
	ErrWrongTarget = errors.New("wrong target type")
)

// Ref identifies a node in the link index.
type Ref struct {
	Type schema.EntityType
	ID   model.ID
}

func (r Ref) String() string {
	return string(r.Type) + "(" + string(r.ID) + ")"
}

// Blocker is a live dependent reached through a deny edge.
type Blocker struct {
	Owner     Ref
	Edge      string
	Dependent Ref
}

func (b Blocker) String() string {
	return fmt.Sprintf("%s.%s -> %s", b.Owner, b.Edge, b.Dependent)
}

// DeleteDeniedError reports a delete refused by a deny rule. Nothing was
// changed when it is returned.
type DeleteDeniedError struct {
	Root     Ref
	Blockers []Blocker
}

func (e *DeleteDeniedError) Error() string {
	parts := make([]string, len(e.Blockers))
	for i, b := range e.Blockers {
		parts[i] = b.String()
	}
	return fmt.Sprintf("delete of %s denied by %d dependent(s): %s", e.Root, len(e.Blockers), strings.Join(parts, ", "))
}

func (e *DeleteDeniedError) Unwrap() error {
	return ErrDeleteDenied
}

// CycleError reports a link that would close a loop over an acyclic edge.
type CycleError struct {
	Edge string
	Path []model.ID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Path))
	for i, id := range e.Path {
		ids[i] = string(id)
	}
	return fmt.Sprintf("%s would form a cycle: %s", e.Edge, strings.Join(ids, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}
