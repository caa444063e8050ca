package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/model"
)

// ChangeSet is everything one save writes.
type ChangeSet struct {
	// Upserts are inserted or replace the stored record with the same id.
	Upserts []Record
	// Deletes are removed together with all of their links.
	Deletes []model.ID
	// Relinked lists surviving nodes whose links changed. All of their stored
	// links are replaced by the rows in Links that touch them.
	Relinked []model.ID
	Links    []graph.Row
}

// Empty reports whether cs writes nothing.
func (cs ChangeSet) Empty() bool {
	return len(cs.Upserts) == 0 && len(cs.Deletes) == 0 && len(cs.Relinked) == 0 && len(cs.Links) == 0
}

// Apply writes cs in a single transaction. Either every change lands or none
// does.
func (s *Store) Apply(ctx context.Context, cs ChangeSet) (err error) {
	if err := s.usable(); err != nil {
		return err
	}
	if s.readOnly {
		return ErrReadOnly
	}
	if cs.Empty() {
		return nil
	}
	defer metrics.Since(ctx, s.metrics, "store.apply", time.Now(), &err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, id := range cs.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source_id = ? OR target_id = ?`, string(id), string(id)); err != nil {
			return fmt.Errorf("apply: unlink %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, string(id)); err != nil {
			return fmt.Errorf("apply: delete %s: %w", id, err)
		}
	}

	for _, r := range cs.Upserts {
		payload, err := marshalPayload(r.Payload)
		if err != nil {
			return fmt.Errorf("apply: record %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, entity, payload) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET entity = excluded.entity, payload = excluded.payload
		`, string(r.ID), string(r.Entity), payload); err != nil {
			return fmt.Errorf("apply: upsert %s: %w", r.ID, err)
		}
	}

	for _, id := range cs.Relinked {
		if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source_id = ? OR target_id = ?`, string(id), string(id)); err != nil {
			return fmt.Errorf("apply: relink %s: %w", id, err)
		}
	}
	for _, l := range cs.Links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO links (source_id, edge, target_id) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING
		`, string(l.Source), l.Edge, string(l.Target)); err != nil {
			return fmt.Errorf("apply: link %s.%s -> %s: %w", l.Source, l.Edge, l.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply: commit: %w", err)
	}
	s.log.Debug("store changes applied",
		"upserts", len(cs.Upserts),
		"deletes", len(cs.Deletes),
		"relinked", len(cs.Relinked),
	)
	return nil
}
