// Package graph defines the simple graph components produced and consumed
// by the resolver: variant and gene nodes, relationship edges, and the
// normalization records that tie a variant's equivalent identifiers
// together.
//
// Nodes carry a synonym set of curies alongside their id; normalization
// overwrites a node's id and name in place and extends its synonym set.
// Edges connect a variant to a downstream entity (typically a gene) with a
// predicate, provenance, and a free-form property map. The JSON field
// names on Edge and Node match the wire format used by the external cache,
// so cached annotator results decode back into the same types.
package graph
