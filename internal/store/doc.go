// Package store provides SQLite-backed durable storage for Northwind entities.
//
// A store is a single SQLite file plus its -wal and -shm companions. It holds
// three tables:
//   - records: one row per entity, payload as canonical JSON
//   - links: one row per relationship pair, canonical direction only
//   - metadata: the schema version and model fingerprint
//
// # Database Configuration
//
// Writable stores use:
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: links never outlive their records
//
// Read-only stores are opened with mode=ro&immutable=1 so that the packaged
// file is never written, locked or given companion files.
//
// Every query orders by id COLLATE BINARY, so loads are deterministic.
package store
