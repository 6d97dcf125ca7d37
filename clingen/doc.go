// Package clingen provides a client for the ClinGen Allele Registry, the
// external service that resolves a sequence-variant identifier into its
// full equivalence class of synonymous identifiers.
//
// Identifier systems split into two resolution paths. CAID, HGVS, and
// MYVARIANT_HG38 ids are batchable: the registry accepts up to 2000 per
// request, and single-item lookups for these systems return ambiguous
// partial data, so ResolveOne refuses them with an INEFFICIENT_USAGE
// error. DBSNP and CLINVARVARIANT ids are resolved individually through
// parameter-matching queries; dbSNP ids may be multi-allelic and can
// carry an allele suffix ("rs123-G") used to filter the result set down
// to the matching allele. Everything else is UNSUPPORTED_PREFIX.
//
// Registry payload items parse into synonym sets seeded with the
// canonical CAID, plus HGVS strings, a synthesized ROBO_VARIANT
// positional identifier for GRCh38 alleles, and dbSNP / ClinVar /
// MyVariant cross-references. Items the registry reports as errors, and
// items missing the canonical identifier, become per-item error results
// rather than being dropped.
//
// Transport failures are retried up to a small fixed bound. A non-success
// status carrying a structured registry error is terminal, except
// not-found responses, which yield an empty result.
package clingen
