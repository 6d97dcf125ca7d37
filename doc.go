// Package genetics resolves genomic sequence-variant identifiers into a
// canonical identity and annotates variants with downstream gene
// relationships.
//
// Given any one of several curie-style identifiers for a variant
// (ClinGen CAID, HGVS, dbSNP rsID, ClinVar variation id, MyVariant
// hg19/hg38 id), the library produces a preferred identifier, a display
// name, and the full set of known equivalent identifiers, backed by the
// ClinGen allele registry and an optional redis cache.
//
// The Genetics facade wires the pieces together:
//
//	g, err := genetics.New(genetics.WithConfigFile("genetics.yaml"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Close()
//
//	node := graph.NewNode("DBSNP:rs671", graph.TypeSequenceVariant)
//	if err := g.NormalizeVariant(ctx, node); err != nil {
//		log.Fatal(err)
//	}
//
// The subpackages are usable on their own: clingen talks to the allele
// registry, normalize implements the identity resolution and tie-break
// policy, cache wraps redis, and services holds the gene annotators.
package genetics
