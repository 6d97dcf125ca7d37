// Package normalize implements the variant identity normalization engine.
//
// Given one or more variant identifiers, the normalizer produces for each
// a list of candidate normalizations: a preferred curie, a display name,
// and the full synonym set. Multi-allelic identifiers legitimately yield
// several candidates; an empty candidate list records "looked up, found
// nothing", which is a valid terminal state distinct from "never looked
// up".
//
// Resolution is cache-first. The whole input list is probed against the
// memoization cache in one round trip; misses are grouped by identifier
// prefix, batchable groups (CAID, HGVS, MYVARIANT_HG38) go through one
// registry batch call per prefix, and the rest resolve one at a time.
// Fresh results are written back to the cache. Cache failures never
// propagate - a broken cache just means every probe misses.
//
// The canonical id/name tie-break is deterministic and total: a CAID
// member wins the id, a DBSNP member always wins the display name, and
// when neither system is present the lexicographically smallest member
// serves as both, so cached and recomputed results always agree.
//
// The node layer (Normalize, BatchNormalize) mutates graph.Nodes in
// place, with graceful degradation: a node whose batchable identifier
// failed the batch path but that carries more than one synonym is retried
// through the single-item path, and a single-synonym node that still
// fails is accepted as its own canonical identifier rather than failing
// the pipeline.
package normalize
