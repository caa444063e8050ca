package provision

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
	"github.com/roach88/northwind/internal/store"
	"github.com/roach88/northwind/internal/testutil"
)

type observation struct {
	op      string
	success bool
}

type recorder struct {
	mu  sync.Mutex
	obs []observation
}

func (r *recorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, observation{op, success})
}

func (r *recorder) outcomes(op string) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bool
	for _, o := range r.obs {
		if o.op == op {
			out = append(out, o.success)
		}
	}
	return out
}

// packaged builds the sample store once per test and returns its path.
func packaged(t *testing.T) (string, *testutil.Fixture) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "northwind.store")
	f := testutil.BuildPackaged(t, path)
	return path, f
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func assertNoStaging(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.partial-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "staging files left behind")
}

func TestBootstrap_CopiesToDefaultLocation(t *testing.T) {
	src, _ := packaged(t)
	dir := t.TempDir()
	rec := &recorder{}
	p := New(Config{PackagedPath: src, DefaultDir: dir, Metrics: rec})

	loc, err := p.Bootstrap(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), loc.Path)
	assert.True(t, loc.Copied)
	assert.Equal(t, readFile(t, src), readFile(t, loc.Path))
	assertNoStaging(t, dir)
	assert.Equal(t, []bool{true}, rec.outcomes("provision.bootstrap"))
}

func TestBootstrap_CustomFileName(t *testing.T) {
	src, _ := packaged(t)
	dir := t.TempDir()
	p := New(Config{PackagedPath: src, DefaultDir: dir, FileName: "orders.store"})

	loc, err := p.Bootstrap(context.Background(), "", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orders.store"), loc.Path)
}

func TestBootstrap_OnlyIfMissingCopiesOnce(t *testing.T) {
	src, _ := packaged(t)
	dest := filepath.Join(t.TempDir(), "app.store")
	p := New(Config{PackagedPath: src})
	ctx := context.Background()

	first, err := p.Bootstrap(ctx, dest, true)
	require.NoError(t, err)
	require.True(t, first.Copied)

	// Change the copy so a second copy would be visible.
	h, err := p.OpenWritable(ctx, WritableOptions{Destination: dest})
	require.NoError(t, err)
	_, err = h.Insert(&model.Region{Name: "Central"})
	require.NoError(t, err)
	require.NoError(t, h.Save(ctx))
	require.NoError(t, h.Close())
	before := readFile(t, dest)
	require.NotEqual(t, readFile(t, src), before)

	second, err := p.Bootstrap(ctx, dest, true)
	require.NoError(t, err)
	assert.False(t, second.Copied)
	assert.Equal(t, dest, second.Path)
	assert.True(t, bytes.Equal(before, readFile(t, dest)))
}

func TestBootstrap_ReplacesFileAndCompanions(t *testing.T) {
	src, _ := packaged(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.store")
	for _, path := range append([]string{dest}, store.CompanionPaths(dest)...) {
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))
	}

	loc, err := New(Config{PackagedPath: src}).Bootstrap(context.Background(), dest, false)
	require.NoError(t, err)
	assert.True(t, loc.Copied)
	assert.Equal(t, readFile(t, src), readFile(t, dest))
	for _, path := range store.CompanionPaths(dest) {
		_, err := os.Stat(path)
		assert.ErrorIs(t, err, fs.ErrNotExist, path)
	}
	assertNoStaging(t, dir)
}

func TestBootstrap_CreatesParentDirectories(t *testing.T) {
	src, _ := packaged(t)
	dest := filepath.Join(t.TempDir(), "a", "b", "c", "app.store")

	_, err := New(Config{PackagedPath: src}).Bootstrap(context.Background(), dest, true)
	require.NoError(t, err)
	assert.FileExists(t, dest)
}

func TestBootstrap_DestinationUnresolvable(t *testing.T) {
	src, _ := packaged(t)
	rec := &recorder{}
	p := New(Config{PackagedPath: src, Metrics: rec})

	_, err := p.Bootstrap(context.Background(), "", true)
	assert.ErrorIs(t, err, ErrDestinationUnresolvable)
	assert.NotErrorIs(t, err, ErrFilesystem)
	assert.Equal(t, []bool{false}, rec.outcomes("provision.bootstrap"))

	_, err = p.OpenWritable(context.Background(), WritableOptions{})
	assert.ErrorIs(t, err, ErrDestinationUnresolvable)
}

func TestBootstrap_MissingPackagedFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.store")
	p := New(Config{PackagedPath: filepath.Join(dir, "missing.store")})

	_, err := p.Bootstrap(context.Background(), dest, true)
	require.ErrorIs(t, err, ErrFilesystem)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var fsErr *FilesystemError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, "open", fsErr.Op)
	assert.NoFileExists(t, dest)
	assertNoStaging(t, dir)
}

func TestBootstrap_FailedCopyKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.store")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))
	p := New(Config{PackagedPath: filepath.Join(dir, "missing.store")})

	_, err := p.Bootstrap(context.Background(), dest, false)
	require.ErrorIs(t, err, ErrFilesystem)
	assert.Equal(t, []byte("previous"), readFile(t, dest))
}

func TestBootstrap_UnwritableDestination(t *testing.T) {
	src, _ := packaged(t)
	dir := t.TempDir()
	// A regular file where a directory is needed.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := New(Config{PackagedPath: src}).Bootstrap(context.Background(), filepath.Join(blocker, "app.store"), true)
	require.ErrorIs(t, err, ErrFilesystem)
}

func TestOpenWritable_BootstrapsAndPersists(t *testing.T) {
	src, f := packaged(t)
	dir := t.TempDir()
	rec := &recorder{}
	p := New(Config{PackagedPath: src, DefaultDir: dir, Metrics: rec})
	ctx := context.Background()

	h, err := p.OpenWritable(ctx, WritableOptions{})
	require.NoError(t, err)
	assert.False(t, h.ReadOnly())
	assert.True(t, h.Location.Copied)
	assert.Equal(t, 36, h.Count(schema.Territory))

	_, err = h.Delete(f.Regions["Eastern"])
	require.NoError(t, err)
	require.NoError(t, h.Save(ctx))
	require.NoError(t, h.Close())

	// The second open keeps the edited copy.
	h, err = p.OpenWritable(ctx, WritableOptions{})
	require.NoError(t, err)
	assert.False(t, h.Location.Copied)
	assert.Equal(t, 3, h.Count(schema.Region))
	require.NoError(t, h.Close())

	// Replace starts over from the packaged file.
	h, err = p.OpenWritable(ctx, WritableOptions{Replace: true})
	require.NoError(t, err)
	assert.True(t, h.Location.Copied)
	assert.Equal(t, 4, h.Count(schema.Region))
	require.NoError(t, h.Close())

	assert.Equal(t, []bool{true, true, true}, rec.outcomes("provision.open_writable"))
}

func TestOpenWritable_SkipBootstrap(t *testing.T) {
	src, _ := packaged(t)
	dest := filepath.Join(t.TempDir(), "empty.store")
	p := New(Config{PackagedPath: src})

	h, err := p.OpenWritable(context.Background(), WritableOptions{Destination: dest, SkipBootstrap: true})
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.Location.Copied)
	assert.Empty(t, h.IDs())
}

func TestOpenReadOnly(t *testing.T) {
	src, f := packaged(t)
	before := readFile(t, src)
	entries, err := os.ReadDir(filepath.Dir(src))
	require.NoError(t, err)

	rec := &recorder{}
	p := New(Config{PackagedPath: src, Metrics: rec})
	ctx := context.Background()

	h, err := p.OpenReadOnly(ctx, container.Options{})
	require.NoError(t, err)
	assert.True(t, h.ReadOnly())
	assert.Equal(t, src, h.Location.Path)

	reports, err := h.RelatedIDs(f.Employees["Fuller"], "managedEmployees")
	require.NoError(t, err)
	assert.Len(t, reports, testutil.FullerReports)

	_, err = h.Insert(&model.Region{Name: "Central"})
	assert.ErrorIs(t, err, container.ErrReadOnly)
	_, err = h.Delete(f.Regions["Eastern"])
	assert.ErrorIs(t, err, container.ErrReadOnly)
	assert.ErrorIs(t, h.Save(ctx), container.ErrReadOnly)
	require.NoError(t, h.Close())

	assert.Equal(t, before, readFile(t, src))
	after, err := os.ReadDir(filepath.Dir(src))
	require.NoError(t, err)
	assert.Len(t, after, len(entries), "read-only open created files")
	assert.Equal(t, []bool{true}, rec.outcomes("provision.open_readonly"))
}

func TestOpenReadOnly_ConcurrentReaders(t *testing.T) {
	src, _ := packaged(t)
	p := New(Config{PackagedPath: src})
	ctx := context.Background()

	var wg sync.WaitGroup
	counts := make([]int, 4)
	errs := make([]error, 4)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.OpenReadOnly(ctx, container.Options{})
			if err != nil {
				errs[i] = err
				return
			}
			defer h.Close()
			counts[i] = h.Count(schema.Territory)
		}(i)
	}
	wg.Wait()

	for i := range counts {
		require.NoError(t, errs[i])
		assert.Equal(t, 36, counts[i])
	}
}

func TestOpenReadOnly_MissingPackagedFile(t *testing.T) {
	p := New(Config{PackagedPath: filepath.Join(t.TempDir(), "missing.store")})
	_, err := p.OpenReadOnly(context.Background(), container.Options{})
	assert.Error(t, err)
}
