package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

func TestApply_InsertAndLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{
		Upserts: []Record{
			territory("t2", "01730", "Bedford"),
			region("r1", "Eastern"),
			territory("t1", "01581", "Westboro"),
		},
		Relinked: []model.ID{"r1", "t1", "t2"},
		Links: []graph.Row{
			{Source: "r1", Edge: "territories", Target: "t1"},
			{Source: "r1", Edge: "territories", Target: "t2"},
		},
	}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, schema.CurrentVersion, snap.Version)
	assert.Equal(t, []Record{
		region("r1", "Eastern"),
		territory("t1", "01581", "Westboro"),
		territory("t2", "01730", "Bedford"),
	}, snap.Records, "records are ordered by id")
	assert.Equal(t, []graph.Row{
		{Source: "r1", Edge: "territories", Target: "t1"},
		{Source: "r1", Edge: "territories", Target: "t2"},
	}, snap.Links)
}

func TestApply_PayloadIsCanonical(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{Upserts: []Record{{
		ID:     "p1",
		Entity: schema.Product,
		Payload: ir.Object{
			"unit_price":   ir.String("18"),
			"name":         ir.String("Chai"),
			"discontinued": ir.Bool(false),
		},
	}}}))

	var payload string
	require.NoError(t, s.DB().QueryRow(`SELECT payload FROM records WHERE id = 'p1'`).Scan(&payload))
	assert.Equal(t, `{"discontinued":false,"name":"Chai","unit_price":"18"}`, payload)
}

func TestApply_UpsertReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{Upserts: []Record{region("r1", "Eastern")}}))
	require.NoError(t, s.Apply(ctx, ChangeSet{Upserts: []Record{region("r1", "Westerns")}}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Record{region("r1", "Westerns")}, snap.Records)
}

func TestApply_DeleteRemovesLinks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{
		Upserts: []Record{region("r1", "Eastern"), territory("t1", "01581", "Westboro")},
		Links:   []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}},
	}))
	require.NoError(t, s.Apply(ctx, ChangeSet{Deletes: []model.ID{"r1"}}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Record{territory("t1", "01581", "Westboro")}, snap.Records)
	assert.Empty(t, snap.Links)
}

func TestApply_RelinkReplacesRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{
		Upserts: []Record{region("r1", "Eastern"), region("r2", "Western"), territory("t1", "01581", "Westboro")},
		Links:   []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}},
	}))

	// Move t1 from r1 to r2.
	require.NoError(t, s.Apply(ctx, ChangeSet{
		Relinked: []model.ID{"r1", "r2", "t1"},
		Links:    []graph.Row{{Source: "r2", Edge: "territories", Target: "t1"}},
	}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.Row{{Source: "r2", Edge: "territories", Target: "t1"}}, snap.Links)
}

func TestApply_IsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Apply(ctx, ChangeSet{
		Upserts: []Record{region("r1", "Eastern")},
		// t9 does not exist, so the foreign key fails the whole change set.
		Links: []graph.Row{{Source: "r1", Edge: "territories", Target: "t9"}},
	})
	require.Error(t, err)

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Empty(t, snap.Links)
}

func TestApply_EmptyIsNoop(t *testing.T) {
	s := createTestStore(t)
	assert.True(t, ChangeSet{}.Empty())
	require.NoError(t, s.Apply(context.Background(), ChangeSet{}))
}

func TestLoad_EmptyStoreReturnsEmptySlices(t *testing.T) {
	s := createTestStore(t)

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Records)
	assert.NotNil(t, snap.Links)
	assert.Empty(t, snap.Records)
}

func TestSelectAndCounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, ChangeSet{Upserts: []Record{
		territory("t2", "01730", "Bedford"),
		territory("t1", "01581", "Westboro"),
		region("r1", "Eastern"),
	}}))

	ids, err := s.Select(ctx, `SELECT id FROM records WHERE entity = ? ORDER BY id COLLATE BINARY ASC`, string(schema.Territory))
	require.NoError(t, err)
	assert.Equal(t, []model.ID{"t1", "t2"}, ids)

	ids, err = s.Select(ctx, `SELECT id FROM records WHERE entity = ?`, "Nothing")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = s.Select(ctx, `SELECT nope FROM nowhere`)
	assert.Error(t, err)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[schema.EntityType]int{schema.Region: 1, schema.Territory: 2}, counts)
}

func TestMarshalPayload(t *testing.T) {
	got, err := marshalPayload(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", got)

	obj, err := unmarshalPayload("")
	require.NoError(t, err)
	assert.Equal(t, ir.Object{}, obj)

	_, err = unmarshalPayload("[1]")
	assert.Error(t, err)
	_, err = unmarshalPayload("{")
	assert.Error(t, err)
}

func TestSnapshotFingerprint(t *testing.T) {
	ctx := context.Background()
	a := createTestStore(t)
	b := createTestStore(t)

	require.NoError(t, a.Apply(ctx, ChangeSet{
		Upserts:  []Record{region("r1", "Eastern"), territory("t1", "01581", "Westboro")},
		Relinked: []model.ID{"r1", "t1"},
		Links:    []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}},
	}))
	require.NoError(t, b.Apply(ctx, ChangeSet{Upserts: []Record{territory("t1", "01581", "Westboro")}}))
	require.NoError(t, b.Apply(ctx, ChangeSet{
		Upserts:  []Record{region("r1", "Eastern")},
		Relinked: []model.ID{"r1", "t1"},
		Links:    []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}},
	}))

	fingerprint := func(s *Store) string {
		snap, err := s.Load(ctx)
		require.NoError(t, err)
		fp, err := snap.Fingerprint()
		require.NoError(t, err)
		return fp
	}

	fpA := fingerprint(a)
	assert.Len(t, fpA, 64)
	assert.Equal(t, fpA, fingerprint(b), "same content, different write order")

	require.NoError(t, b.Apply(ctx, ChangeSet{Relinked: []model.ID{"r1", "t1"}}))
	assert.NotEqual(t, fpA, fingerprint(b), "links are part of the content")
}
