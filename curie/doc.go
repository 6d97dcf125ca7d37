// Package curie provides parsing and classification of compact URI (curie)
// identifiers of the form "PREFIX:local-id".
//
// Sequence variants are referred to across identifier systems: ClinGen
// canonical allele ids (CAID), HGVS nomenclature strings, dbSNP rsids,
// ClinVar variation ids, MyVariant hg19/hg38 ids, and synthesized
// positional identifiers (ROBO_VARIANT). The prefix determines the system;
// the local id is everything after the first colon, which allows colons
// inside local ids (HGVS genomic coordinates contain them).
//
// Prefix matching is case-insensitive, but curies are always stored and
// returned verbatim.
package curie
