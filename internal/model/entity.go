package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/northwind/internal/schema"
)

// ID is the opaque identity of a stored entity.
type ID string

// NewID returns a fresh time-ordered identifier.
func NewID() ID {
	return ID(uuid.Must(uuid.NewV7()).String())
}

// Entity is implemented by the eleven Northwind entity structs and nothing
// else; the unexported methods seal the interface.
type Entity interface {
	EntityType() schema.EntityType
	Identity() ID
	base() *Base
	clone() Entity
}

// Base carries the identity shared by all entities.
type Base struct {
	ID ID
}

// Identity returns the entity's ID, empty until it has been inserted.
func (b *Base) Identity() ID { return b.ID }

func (b *Base) base() *Base { return b }

// AssignID sets the identity of e. The container calls it once on insert.
func AssignID(e Entity, id ID) {
	e.base().ID = id
}

// Clone returns a deep copy of e.
func Clone(e Entity) Entity {
	return e.clone()
}

// New returns a zero entity of type t.
func New(t schema.EntityType) (Entity, error) {
	switch t {
	case schema.Product:
		return &Product{}, nil
	case schema.Category:
		return &Category{}, nil
	case schema.Supplier:
		return &Supplier{}, nil
	case schema.Customer:
		return &Customer{}, nil
	case schema.CustomerDemographic:
		return &CustomerDemographic{}, nil
	case schema.Employee:
		return &Employee{}, nil
	case schema.Order:
		return &Order{}, nil
	case schema.OrderDetail:
		return &OrderDetail{}, nil
	case schema.Shipper:
		return &Shipper{}, nil
	case schema.Region:
		return &Region{}, nil
	case schema.Territory:
		return &Territory{}, nil
	}
	return nil, fmt.Errorf("unknown entity type %q", t)
}

// Ptr returns a pointer to v, for populating optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	return Ptr(*s)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return Ptr(*t)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return slices.Clone(b)
}
