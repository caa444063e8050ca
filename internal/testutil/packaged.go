package testutil

import (
	"context"
	"testing"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/store"
)

// BuildPackaged writes the sample data set to a sealed store at path, the
// form in which a store ships alongside an application. Identities are
// deterministic, so two builds produce the same records.
func BuildPackaged(tb testing.TB, path string) *Fixture {
	tb.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, path, store.Options{})
	if err != nil {
		tb.Fatalf("open packaged store: %v", err)
	}
	defer st.Close()

	c, err := container.Open(ctx, st, container.Options{NewID: NewDeterministicIDs().Next})
	if err != nil {
		tb.Fatalf("open packaged container: %v", err)
	}
	f := MustLoadNorthwind(tb, c)
	if err := c.Save(ctx); err != nil {
		tb.Fatalf("save packaged store: %v", err)
	}
	if err := st.Seal(ctx); err != nil {
		tb.Fatalf("seal packaged store: %v", err)
	}
	return f
}
