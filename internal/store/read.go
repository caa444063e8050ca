package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/northwind/internal/graph"
	"github.com/roach88/northwind/internal/ir"
	"github.com/roach88/northwind/internal/metrics"
	"github.com/roach88/northwind/internal/model"
	"github.com/roach88/northwind/internal/schema"
)

// Record is one stored entity. Payload is keyed by attribute column.
type Record struct {
	ID      model.ID
	Entity  schema.EntityType
	Payload ir.Object
}

// Snapshot is the complete content of a store.
type Snapshot struct {
	Version schema.Version
	Records []Record
	Links   []graph.Row
}

// Load reads every record and link.
// Results are ordered deterministically: records by id, links by source,
// edge and target, all COLLATE BINARY.
func (s *Store) Load(ctx context.Context) (snap *Snapshot, err error) {
	defer metrics.Since(ctx, s.metrics, "store.load", time.Now(), &err)
	if err := s.usable(); err != nil {
		return nil, err
	}

	records, err := s.readRecords(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.readLinks(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Debug("store loaded", "records", len(records), "links", len(links))
	return &Snapshot{Version: s.version, Records: records, Links: links}, nil
}

// Fingerprint identifies the content of the snapshot. Two stores holding the
// same records and links share a fingerprint whatever their file layout.
func (snap *Snapshot) Fingerprint() (string, error) {
	records := make(ir.List, len(snap.Records))
	for i, r := range snap.Records {
		records[i] = ir.Object{
			"id":      ir.String(string(r.ID)),
			"entity":  ir.String(string(r.Entity)),
			"payload": r.Payload,
		}
	}
	links := make(ir.List, len(snap.Links))
	for i, l := range snap.Links {
		links[i] = ir.List{ir.String(string(l.Source)), ir.String(l.Edge), ir.String(string(l.Target))}
	}
	return ir.Fingerprint(ir.DomainRecord, ir.Object{
		"version": ir.String(snap.Version.String()),
		"records": records,
		"links":   links,
	})
}

func (s *Store) readRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity, payload
		FROM records
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			id, entity, payload string
		)
		if err := rows.Scan(&id, &entity, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		obj, err := unmarshalPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, Record{ID: model.ID(id), Entity: schema.EntityType(entity), Payload: obj})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

func (s *Store) readLinks(ctx context.Context) ([]graph.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_id, edge, target_id
		FROM links
		ORDER BY source_id COLLATE BINARY ASC, edge COLLATE BINARY ASC, target_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []graph.Row{}
	for rows.Next() {
		var src, edge, dst string
		if err := rows.Scan(&src, &edge, &dst); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, graph.Row{Source: model.ID(src), Edge: edge, Target: model.ID(dst)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// Select runs a compiled id query, such as one produced by querysql, and
// returns the matching ids in result order.
func (s *Store) Select(ctx context.Context, query string, args ...any) (ids []model.ID, err error) {
	defer metrics.Since(ctx, s.metrics, "store.select", time.Now(), &err)
	if err := s.usable(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	ids = []model.ID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("select: scan: %w", err)
		}
		ids = append(ids, model.ID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select: iterate: %w", err)
	}
	return ids, nil
}

// Counts returns the number of stored records per entity type. Types with no
// records are omitted.
func (s *Store) Counts(ctx context.Context) (map[schema.EntityType]int, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, COUNT(*)
		FROM records
		GROUP BY entity
		ORDER BY entity COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[schema.EntityType]int)
	for rows.Next() {
		var entity string
		var n int
		if err := rows.Scan(&entity, &n); err != nil {
			return nil, fmt.Errorf("count records: scan: %w", err)
		}
		counts[schema.EntityType(entity)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count records: iterate: %w", err)
	}
	return counts, nil
}

// Metadata returns every metadata entry.
func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata ORDER BY key COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("read metadata: scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: iterate: %w", err)
	}
	return out, nil
}
