package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

// createTestStore creates a new writable store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.store")
	s, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// region builds a Region record with a fixed id.
func region(id, name string) Record {
	return Record{
		ID:      model.ID(id),
		Entity:  schema.Region,
		Payload: ir.Object{"name": ir.String(name)},
	}
}

// territory builds a Territory record with a fixed id.
func territory(id, code, name string) Record {
	return Record{
		ID:      model.ID(id),
		Entity:  schema.Territory,
		Payload: ir.Object{"code": ir.String(code), "name": ir.String(name)},
	}
}
