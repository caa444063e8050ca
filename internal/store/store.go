package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// Table layout tracking (PRAGMA user_version):
// 0 - empty file
// 1 - records, links and metadata tables
const currentLayoutVersion = 1

// Metadata keys.
const (
	MetaSchemaVersion     = "schema_version"
	MetaSchemaFingerprint = "schema_fingerprint"
)

// Options configures Open.
type Options struct {
	// ReadOnly opens the file immutable. The file must already exist.
	ReadOnly bool
	// Model is the schema the caller expects. Defaults to schema.Current().
	Model *schema.Model
	// Migrations upgrade writable stores recorded at an older version.
	Migrations schema.Migrations
	Logger     *slog.Logger
	Metrics    metrics.Recorder
}

// Store is an open Northwind data file.
type Store struct {
	db       *sql.DB
	path     string
	readOnly bool
	closed   bool
	model    *schema.Model
	version  schema.Version
	log      *slog.Logger
	metrics  metrics.Recorder
}

// Open opens the SQLite file at path and checks its schema version against
// opts.Model.
//
// Writable stores get the pragmas below, have their tables created if
// missing, and are stamped with the model version when the file is new:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// A recorded version that is older than the model is upgraded through
// opts.Migrations on writable stores and refused on read-only ones. Either
// failure is a *schema.VersionMismatchError.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	s := &Store{
		path:     path,
		readOnly: opts.ReadOnly,
		model:    opts.Model,
		log:      opts.Logger,
		metrics:  metrics.OrNop(opts.Metrics),
	}
	if s.model == nil {
		s.model = schema.Current()
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	dsn := path
	if s.readOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open read-only store: %w", err)
		}
		dsn = readOnlyDSN(path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// Connection-scoped pragmas also rely on there being exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	s.db = db

	if err := s.init(ctx, opts.Migrations); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Debug("store opened",
		"path", path,
		"read_only", s.readOnly,
		"version", s.version.String(),
	)
	return s, nil
}

func (s *Store) init(ctx context.Context, ms schema.Migrations) error {
	if s.readOnly {
		if err := s.checkLayout(ctx); err != nil {
			return err
		}
		return s.checkVersion(ctx, nil)
	}
	if err := applyPragmas(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applyLayout(ctx, s.db); err != nil {
		return fmt.Errorf("failed to apply layout: %w", err)
	}
	return s.checkVersion(ctx, ms)
}

// readOnlyDSN builds a SQLite URI that never writes to path: no journal, no
// shared-memory file and no locks.
func readOnlyDSN(path string) string {
	r := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")
	return "file:" + r.Replace(path) + "?mode=ro&immutable=1&_query_only=1"
}

// CompanionPaths returns the write-ahead log and shared-memory files SQLite
// keeps next to path. They belong to the store and must be copied or removed
// together with it.
func CompanionPaths(path string) []string {
	return []string{path + "-wal", path + "-shm"}
}

// Path returns the file the store was opened from.
func (s *Store) Path() string {
	return s.path
}

// ReadOnly reports whether the store rejects writes.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Version returns the schema version recorded in the file, after any
// migrations applied by Open.
func (s *Store) Version() schema.Version {
	return s.version
}

// Model returns the schema the store was checked against.
func (s *Store) Model() *schema.Model {
	return s.model
}

// Close checkpoints the write-ahead log of a writable store, folding it into
// the main file, and closes the connection.
func (s *Store) Close() error {
	if s.db == nil || s.closed {
		return nil
	}
	s.closed = true
	var errs []error
	if !s.readOnly {
		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			errs = append(errs, fmt.Errorf("checkpoint: %w", err))
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Seal checkpoints the log and switches the file to rollback journaling, so
// the main file is complete on its own and can be shipped and opened
// read-only. Writable opens switch it back to WAL.
func (s *Store) Seal(ctx context.Context) error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	for _, pragma := range []string{
		"PRAGMA wal_checkpoint(TRUNCATE)",
		"PRAGMA journal_mode = DELETE",
	} {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("seal: %q: %w", pragma, err)
		}
	}
	return nil
}

// usable fails once the store is closed.
func (s *Store) usable() error {
	if s.db == nil || s.closed {
		return ErrClosed
	}
	return nil
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applyLayout creates tables if they don't exist and records the layout
// version. This function is idempotent.
func applyLayout(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentLayoutVersion {
		return fmt.Errorf("%w: layout %d is newer than %d", ErrLayout, version, currentLayoutVersion)
	}

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentLayoutVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// checkLayout verifies a read-only file was written with the current layout.
func (s *Store) checkLayout(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version != currentLayoutVersion {
		return fmt.Errorf("%w: layout %d, expected %d", ErrLayout, version, currentLayoutVersion)
	}
	return nil
}

// checkVersion compares the recorded schema version with the model and runs
// any migrations needed. New writable files are stamped. At an identical
// version the recorded fingerprint must match the model's.
func (s *Store) checkVersion(ctx context.Context, ms schema.Migrations) error {
	expected := s.model.Version
	recorded, ok, err := s.meta(ctx, MetaSchemaVersion)
	if err != nil {
		return err
	}
	if !ok {
		if s.readOnly {
			return &schema.VersionMismatchError{Expected: expected, Reason: "store has no recorded schema version"}
		}
		if err := s.stamp(ctx, nil, expected); err != nil {
			return err
		}
		s.version = expected
		return nil
	}

	found, err := schema.ParseVersion(recorded)
	if err != nil {
		return &schema.VersionMismatchError{Expected: expected, Reason: err.Error()}
	}
	plan, err := schema.Check(found, expected, ms, !s.readOnly)
	if err != nil {
		return err
	}
	s.version = found
	if len(plan) > 0 {
		return s.migrate(ctx, plan)
	}

	if found != expected {
		return nil
	}
	fp, ok, err := s.meta(ctx, MetaSchemaFingerprint)
	if err != nil {
		return err
	}
	if ok && fp != s.model.Fingerprint() {
		return &schema.VersionMismatchError{
			Found:    found,
			Expected: expected,
			Reason:   "field layout differs at the same version",
		}
	}
	return nil
}

// migrate applies plan in one transaction and records the final version.
func (s *Store) migrate(ctx context.Context, plan []schema.Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, m := range plan {
		if err := m.Apply(ctx, tx); err != nil {
			return fmt.Errorf("migrate %s -> %s: %w", m.From, m.To, err)
		}
		s.log.Info("store migrated",
			"path", s.path,
			"from", m.From.String(),
			"to", m.To.String(),
			"description", m.Description,
		)
	}
	to := plan[len(plan)-1].To
	if err := s.stamp(ctx, tx, to); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	s.version = to
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// stamp records v and the model fingerprint, inside tx when it is non-nil.
func (s *Store) stamp(ctx context.Context, tx *sql.Tx, v schema.Version) error {
	var ex execer = s.db
	if tx != nil {
		ex = tx
	}
	for key, value := range map[string]string{
		MetaSchemaVersion:     v.String(),
		MetaSchemaFingerprint: s.model.Fingerprint(),
	} {
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("record %s: %w", key, err)
		}
	}
	return nil
}

// meta reads one metadata value. A file without the metadata table reports
// the key as absent.
func (s *Store) meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil && strings.Contains(err.Error(), "no such table"):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("read metadata %s: %w", key, err)
	}
	return value, true, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
