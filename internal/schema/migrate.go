package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration upgrades a store from one model version to the next.
type Migration struct {
	From        Version
	To          Version
	Description string
	Apply       func(ctx context.Context, tx *sql.Tx) error
}

// Migrations is an ordered list of upgraders. Each entry's From should equal
// the previous entry's To.
type Migrations []Migration

// Plan returns the contiguous chain that upgrades a store at from to a version
// compatible with to. An empty plan means no upgrade is needed.
func (ms Migrations) Plan(from, to Version) ([]Migration, error) {
	var plan []Migration
	at := from
	for !at.Compatible(to) {
		if at.Compare(to) > 0 {
			return nil, fmt.Errorf("%w: %s is newer than %s", ErrNoMigrationPath, from, to)
		}
		next, ok := ms.from(at)
		if !ok {
			return nil, fmt.Errorf("%w: from %s to %s (stuck at %s)", ErrNoMigrationPath, from, to, at)
		}
		if next.To.Compare(at) <= 0 {
			return nil, fmt.Errorf("migration %s -> %s does not advance the version", next.From, next.To)
		}
		plan = append(plan, next)
		at = next.To
	}
	return plan, nil
}

// from finds the migration whose From is compatible with v.
func (ms Migrations) from(v Version) (Migration, bool) {
	for _, m := range ms {
		if m.From.Compatible(v) {
			return m, true
		}
	}
	return Migration{}, false
}

// Check decides what opening a store recorded at found requires. Compatible
// versions need nothing. Older versions are upgradable only when writable is
// set and ms covers the gap. Every other case is a VersionMismatchError.
func Check(found, expected Version, ms Migrations, writable bool) ([]Migration, error) {
	if found.Compatible(expected) {
		return nil, nil
	}
	mismatch := &VersionMismatchError{Found: found, Expected: expected}
	if found.Compare(expected) > 0 {
		mismatch.Reason = "store was written by a newer model"
		return nil, mismatch
	}
	if !writable {
		mismatch.Reason = "read-only stores cannot be migrated"
		return nil, mismatch
	}
	plan, err := ms.Plan(found, expected)
	if err != nil {
		mismatch.Reason = err.Error()
		return nil, mismatch
	}
	return plan, nil
}
