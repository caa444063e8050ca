package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.store")

	s, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Version() != schema.CurrentVersion {
		t.Errorf("Version() = %s, want %s", s.Version(), schema.CurrentVersion)
	}
}

func TestOpen_StampsVersionAndFingerprint(t *testing.T) {
	s := createTestStore(t)

	meta, err := s.Metadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		MetaSchemaVersion:     schema.CurrentVersion.String(),
		MetaSchemaFingerprint: schema.Current().Fingerprint(),
	}, meta)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.store")
	ctx := context.Background()

	// Open multiple times
	for i := 0; i < 3; i++ {
		s, err := Open(ctx, path, Options{})
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(ctx, path, Options{})
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	// Verify schema is intact
	for _, table := range []string{"records", "links", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	// Try to open in non-existent directory
	path := "/nonexistent/dir/test.store"

	_, err := Open(context.Background(), path, Options{})
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_ReadOnlyMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.store")

	_, err := Open(context.Background(), path, Options{ReadOnly: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "read-only open must not create the file")
}

func TestOpen_RejectsNewerLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.store")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 7")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(context.Background(), path, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLayout))
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	err := s.Close()
	if err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.store")

	s, err := Open(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.store")

	s, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Select(ctx, `SELECT id FROM records`)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Counts(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Metadata(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Seal(ctx), ErrClosed)
	assert.ErrorIs(t, s.Apply(ctx, ChangeSet{Deletes: []model.ID{"r1"}}), ErrClosed)
}

func TestCompanionPaths(t *testing.T) {
	assert.Equal(t,
		[]string{"/data/default.store-wal", "/data/default.store-shm"},
		CompanionPaths("/data/default.store"),
	)
}

func TestReadOnlyDSN(t *testing.T) {
	assert.Equal(t,
		"file:/tmp/a%3fb%23c%25d.store?mode=ro&immutable=1&_query_only=1",
		readOnlyDSN("/tmp/a?b#c%d.store"),
	)
}

// Pragma tests

func TestPragma_JournalMode(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
}

func TestPragma_Synchronous(t *testing.T) {
	s := createTestStore(t)
	// NORMAL = 1
	if err := s.verifyPragma("synchronous", "1"); err != nil {
		t.Error(err)
	}
}

func TestPragma_BusyTimeout(t *testing.T) {
	s := createTestStore(t)
	if err := s.verifyPragma("busy_timeout", "5000"); err != nil {
		t.Error(err)
	}
}

func TestPragma_ForeignKeys(t *testing.T) {
	s := createTestStore(t)
	// ON = 1
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

// buildSealed writes a small store and seals it for read-only use.
func buildSealed(t *testing.T, version string) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "packaged.store")

	s, err := Open(ctx, path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, ChangeSet{
		Upserts: []Record{region("r1", "Eastern"), territory("t1", "01581", "Westboro")},
		Links:   []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}},
	}))
	if version != "" {
		_, err = s.DB().Exec(`UPDATE metadata SET value = ? WHERE key = ?`, version, MetaSchemaVersion)
		require.NoError(t, err)
	}
	require.NoError(t, s.Seal(ctx))
	require.NoError(t, s.verifyPragma("journal_mode", "delete"))
	require.NoError(t, s.Close())
	return path
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestReadOnly_NeverWritesFile(t *testing.T) {
	ctx := context.Background()
	path := buildSealed(t, "")
	before, err := os.ReadFile(path)
	require.NoError(t, err)
	filesBefore := dirEntries(t, filepath.Dir(path))

	s, err := Open(ctx, path, Options{ReadOnly: true})
	require.NoError(t, err)
	assert.True(t, s.ReadOnly())

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)
	assert.Equal(t, []graph.Row{{Source: "r1", Edge: "territories", Target: "t1"}}, snap.Links)

	err = s.Apply(ctx, ChangeSet{Deletes: []model.ID{"t1"}})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, s.Seal(ctx), ErrReadOnly)

	_, err = s.DB().Exec(`DELETE FROM records`)
	assert.Error(t, err, "the connection itself must refuse writes")

	require.NoError(t, s.Close())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(before, after), "packaged file changed")
	assert.Equal(t, filesBefore, dirEntries(t, filepath.Dir(path)))
}

func TestVersion_NewerStoreRefused(t *testing.T) {
	path := buildSealed(t, "2.0.0")

	// Read-only first: a refused writable open leaves the file in WAL mode.
	for _, readOnly := range []bool{true, false} {
		_, err := Open(context.Background(), path, Options{ReadOnly: readOnly})
		require.Error(t, err)
		assert.True(t, schema.IsVersionMismatch(err))

		var mismatch *schema.VersionMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, schema.Version{Major: 2}, mismatch.Found)
		assert.Equal(t, schema.CurrentVersion, mismatch.Expected)
	}
}

func TestVersion_PatchDifferenceIsCompatible(t *testing.T) {
	path := buildSealed(t, "1.0.7")

	s, err := Open(context.Background(), path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, schema.Version{Major: 1, Patch: 7}, s.Version())
}

func TestVersion_FingerprintDriftRefused(t *testing.T) {
	path := buildSealed(t, "")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE metadata SET value = 'drifted' WHERE key = ?`, MetaSchemaFingerprint)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	for _, readOnly := range []bool{true, false} {
		_, err := Open(context.Background(), path, Options{ReadOnly: readOnly})
		require.Error(t, err)

		var mismatch *schema.VersionMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, schema.CurrentVersion, mismatch.Found)
		assert.Equal(t, schema.CurrentVersion, mismatch.Expected)
		assert.Contains(t, mismatch.Reason, "layout")
	}

	db, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var fp string
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, MetaSchemaFingerprint).Scan(&fp))
	assert.Equal(t, "drifted", fp, "a refused open must not re-stamp the store")
}

func TestVersion_OlderStoreReadOnlyRefused(t *testing.T) {
	path := buildSealed(t, "0.9.0")

	_, err := Open(context.Background(), path, Options{ReadOnly: true, Migrations: renameMigration()})
	require.Error(t, err)
	assert.True(t, schema.IsVersionMismatch(err))
}

func TestVersion_OlderStoreWithoutMigrationRefused(t *testing.T) {
	path := buildSealed(t, "0.9.0")

	_, err := Open(context.Background(), path, Options{})
	require.Error(t, err)
	assert.True(t, schema.IsVersionMismatch(err))
}

// renameMigration upgrades 0.9 files, whose territories stored their name
// under "description", to the 1.0 layout.
func renameMigration() schema.Migrations {
	return schema.Migrations{{
		From:        schema.Version{Major: 0, Minor: 9},
		To:          schema.CurrentVersion,
		Description: "rename territory description to name",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
				UPDATE records
				SET payload = json_remove(json_set(payload, '$.name', json_extract(payload, '$.description')), '$.description')
				WHERE entity = 'Territory' AND json_extract(payload, '$.description') IS NOT NULL
			`)
			return err
		},
	}}
}

func TestVersion_OlderStoreMigrated(t *testing.T) {
	ctx := context.Background()
	path := buildSealed(t, "0.9.0")

	// Rewrite the territory into its 0.9 shape.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE records SET payload = '{"code":"01581","description":"Westboro"}' WHERE id = 't1'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(ctx, path, Options{Migrations: renameMigration()})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, schema.CurrentVersion, s.Version())

	meta, err := s.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", meta[MetaSchemaVersion])

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, territory("t1", "01581", "Westboro"), snap.Records[1])
}

func TestVersion_FailedMigrationLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	path := buildSealed(t, "0.9.0")

	failing := schema.Migrations{{
		From: schema.Version{Major: 0, Minor: 9},
		To:   schema.CurrentVersion,
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
				return err
			}
			return errors.New("halfway")
		},
	}}
	_, err := Open(ctx, path, Options{Migrations: failing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "halfway")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM records`).Scan(&n))
	assert.Equal(t, 2, n)
	var version string
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, MetaSchemaVersion).Scan(&version))
	assert.Equal(t, "0.9.0", version)
}
