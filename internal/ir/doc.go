// Package ir defines the typed literal values shared by the schema, the
// predicate registry and the store.
//
// ir imports nothing internal so that every other package can depend on it.
//
// Key constraints:
//   - No float kind: money and ratios are Decimal, counts are Int
//   - Times are always UTC
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for fingerprints and stored payloads
package ir
