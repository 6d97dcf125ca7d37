// Package cache provides Redis-backed memoization of normalization and
// annotation results.
//
// The cache is best-effort: it is not a source of truth and offers no
// consistency guarantee between a get and a concurrent set from another
// process (last write wins). When the underlying store is unreachable,
// New still succeeds and returns an inert client whose every read is a
// miss and every write a no-op, so callers never distinguish a failed
// cache from an absent one. A nil *Client behaves the same way.
//
// # Redis Key Schema
//
//   - <prefix>normalize-<variant-id> - JSON array of [id, name, [synonym...]]
//     candidate triples for one variant identifier
//   - <service-key>-<node-id> - JSON array of {edge, node} objects produced
//     by a downstream annotator
//
// The normalization decoder also accepts the deprecated single-triple
// value shape, so keys written by earlier releases stay readable.
//
// Batch operations are pipelined into a single round trip. Pipelines are
// atomic only from this client's perspective; concurrent writers to the
// same key may race.
package cache
