package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/northwind/internal/container"
	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/schema"
	"github.com/roach88/northwind/internal/store"
)

// DefaultFileName is the file created in DefaultDir when Bootstrap is given
// no destination.
const DefaultFileName = "default.store"

// Config locates the packaged store and the default writable location.
type Config struct {
	// PackagedPath is the sealed store shipped with the application.
	PackagedPath string
	// DefaultDir receives the writable copy when no destination is given.
	DefaultDir string
	// FileName defaults to DefaultFileName.
	FileName   string
	Migrations schema.Migrations
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Provisioner bootstraps and opens Northwind stores.
type Provisioner struct {
	cfg     Config
	log     *slog.Logger
	metrics metrics.Recorder
}

// New returns a provisioner for cfg.
func New(cfg Config) *Provisioner {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Provisioner{cfg: cfg, log: log, metrics: metrics.OrNop(cfg.Metrics)}
}

// Location is the result of a bootstrap.
type Location struct {
	Path string
	// Copied is false when an existing file was kept.
	Copied bool
}

// Destination resolves dest, falling back to DefaultDir/FileName.
func (p *Provisioner) Destination(dest string) (string, error) {
	if dest != "" {
		return dest, nil
	}
	if p.cfg.DefaultDir == "" {
		return "", ErrDestinationUnresolvable
	}
	return filepath.Join(p.cfg.DefaultDir, p.cfg.FileName), nil
}

// Bootstrap copies the packaged store to dest, or to the default location
// when dest is empty.
//
// With onlyIfMissing set, an existing file at the destination is returned
// untouched. Otherwise the destination and its -wal and -shm companions are
// replaced by a fresh copy of the packaged file.
func (p *Provisioner) Bootstrap(ctx context.Context, dest string, onlyIfMissing bool) (loc Location, err error) {
	defer metrics.Since(ctx, p.metrics, "provision.bootstrap", time.Now(), &err)

	path, err := p.Destination(dest)
	if err != nil {
		return Location{}, err
	}
	if onlyIfMissing {
		_, err := os.Stat(path)
		if err == nil {
			p.log.Debug("bootstrap skipped, destination exists", "path", path)
			return Location{Path: path}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return Location{}, fsError("stat", path, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Location{}, fsError("mkdir", filepath.Dir(path), err)
	}
	staged, err := p.stage(path)
	if err != nil {
		return Location{}, err
	}
	if err := replace(staged, path); err != nil {
		os.Remove(staged)
		return Location{}, err
	}

	p.log.Info("store bootstrapped", "source", p.cfg.PackagedPath, "path", path)
	return Location{Path: path, Copied: true}, nil
}

// stage copies the packaged file to a uniquely named sibling of dest and
// flushes it to disk. The staging file is removed on failure.
func (p *Provisioner) stage(dest string) (staged string, err error) {
	src, err := os.Open(p.cfg.PackagedPath)
	if err != nil {
		return "", fsError("open", p.cfg.PackagedPath, err)
	}
	defer src.Close()

	staged = dest + ".partial-" + uuid.NewString()
	out, err := os.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fsError("create", staged, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(staged)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return "", fsError("copy", staged, err)
	}
	if err := out.Sync(); err != nil {
		return "", fsError("sync", staged, err)
	}
	if err := out.Close(); err != nil {
		return "", fsError("close", staged, err)
	}
	return staged, nil
}

// replace removes dest and its companions, then renames staged into place.
func replace(staged, dest string) error {
	for _, path := range append([]string{dest}, store.CompanionPaths(dest)...) {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fsError("remove", path, err)
		}
	}
	if err := os.Rename(staged, dest); err != nil {
		return fsError("rename", dest, err)
	}
	return syncDir(filepath.Dir(dest))
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fsError("open", dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fsError("sync", dir, err)
	}
	return nil
}

// Handle is an open container together with the store it owns.
type Handle struct {
	*container.Container
	Location Location
	store    *store.Store
}

// Close closes the underlying store. Unsaved changes are discarded.
func (h *Handle) Close() error {
	return h.store.Close()
}

// WritableOptions configures OpenWritable.
type WritableOptions struct {
	// Destination overrides the default location.
	Destination string
	// SkipBootstrap opens the destination as is. A missing file is created
	// empty.
	SkipBootstrap bool
	// Replace copies the packaged file even when the destination exists.
	Replace   bool
	Container container.Options
}

// OpenWritable bootstraps unless told not to, then opens a writable
// container over the destination.
func (p *Provisioner) OpenWritable(ctx context.Context, opts WritableOptions) (h *Handle, err error) {
	defer metrics.Since(ctx, p.metrics, "provision.open_writable", time.Now(), &err)

	var loc Location
	if opts.SkipBootstrap {
		path, err := p.Destination(opts.Destination)
		if err != nil {
			return nil, err
		}
		loc = Location{Path: path}
	} else {
		loc, err = p.Bootstrap(ctx, opts.Destination, !opts.Replace)
		if err != nil {
			return nil, fmt.Errorf("open writable: %w", err)
		}
	}

	copts := opts.Container
	copts.ReadOnly = false
	return p.open(ctx, loc, false, copts)
}

// OpenReadOnly opens the packaged file in place. The returned container
// rejects every mutation and the file is never written.
func (p *Provisioner) OpenReadOnly(ctx context.Context, opts container.Options) (h *Handle, err error) {
	defer metrics.Since(ctx, p.metrics, "provision.open_readonly", time.Now(), &err)

	opts.ReadOnly = true
	return p.open(ctx, Location{Path: p.cfg.PackagedPath}, true, opts)
}

func (p *Provisioner) open(ctx context.Context, loc Location, readOnly bool, opts container.Options) (*Handle, error) {
	if opts.Logger == nil {
		opts.Logger = p.log
	}
	if opts.Metrics == nil {
		opts.Metrics = p.cfg.Metrics
	}
	st, err := store.Open(ctx, loc.Path, store.Options{
		ReadOnly:   readOnly,
		Migrations: p.cfg.Migrations,
		Logger:     p.log,
		Metrics:    p.cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	c, err := container.Open(ctx, st, opts)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &Handle{Container: c, Location: loc, store: st}, nil
}
