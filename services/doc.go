// Package services holds the downstream gene-relationship annotators.
//
// An annotator consumes a normalized variant identifier and its synonym
// set and produces relationship edges to gene nodes. Annotators are
// selected through a lookup registry by service name; implementations
// that support batched lookups additionally satisfy BatchAnnotator. The
// Services facade wires the registry to the shared result cache, keyed
// per service and node id.
package services
