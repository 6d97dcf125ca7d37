package normalize

import (
	"context"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/graph"
)

// Normalize resolves a node's identity in place: its id, name, and
// synonym set are overwritten by the first normalization candidate.
// Re-normalizing an already-canonical node is a no-op beyond a cache
// hit. An identifier the registry cannot resolve degrades to the node's
// own id as canonical; only contract violations (unsupported prefixes
// and the like) surface as errors.
func (n *Normalizer) Normalize(ctx context.Context, node *graph.Node) error {
	normalizations := n.cache.GetNormalization(ctx, node.ID)
	if normalizations == nil {
		result := n.SequenceVariantNormalization(ctx, node.ID)
		if result.Err != nil {
			return result.Err
		}
		normalizations = result.Candidates
		if len(normalizations) == 0 {
			normalizations = []graph.Normalization{identity(node.ID, node.Synonyms())}
		}
		n.cache.SetNormalization(ctx, node.ID, normalizations)
	}
	applyNormalization(node, normalizations)
	return nil
}

// BatchNormalize resolves a list of nodes in place. The cache is probed
// once for the whole list; uncached nodes carrying an HGVS synonym are
// resolved through one registry batch call, the rest one at a time.
//
// A node whose batch lookup came back empty is retried through the
// single-item path when it has accumulated more than one synonym; a
// single-synonym node that still fails is accepted as its own canonical
// identifier rather than failing the pipeline.
func (n *Normalizer) BatchNormalize(ctx context.Context, nodes []*graph.Node) {
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	cached := n.cache.GetBatchNormalization(ctx, ids)

	var (
		batchNodes []*graph.Node
		batchHGVS  []string
		hits       int
	)
	fresh := make(map[string][]graph.Normalization)

	for i, node := range nodes {
		if cached[i] != nil {
			hits++
			applyNormalization(node, cached[i])
			continue
		}
		if hgvs := node.SynonymsByPrefix(curie.PrefixHGVS); len(hgvs) > 0 {
			batchNodes = append(batchNodes, node)
			batchHGVS = append(batchHGVS, hgvs[0])
			continue
		}
		// No HGVS synonym, so this node can't ride the batch call.
		normalizations := n.resolveWithFallback(ctx, node)
		fresh[node.ID] = normalizations
		applyNormalization(node, normalizations)
		fresh[node.ID] = normalizations
	}
	n.logger.Info("batch normalizing", "cache_hits", hits, "total", len(nodes))

	if len(batchNodes) > 0 {
		regResults, err := n.registry.ResolveBatch(ctx, batchHGVS)
		for i, node := range batchNodes {
			var normalizations []graph.Normalization
			if err == nil && i < len(regResults) {
				if r := candidates(regResults[i : i+1]); r.OK() {
					normalizations = r.Candidates
				}
			}
			if len(normalizations) == 0 && node.SynonymCount() > 1 {
				// The HGVS id didn't resolve; the node's own id might.
				if r := n.SequenceVariantNormalization(ctx, node.ID); r.OK() {
					normalizations = r.Candidates
				}
			}
			if len(normalizations) == 0 {
				normalizations = []graph.Normalization{identity(node.ID, node.Synonyms())}
			}
			// Record the result under both the incoming and the applied
			// id: applying a normalization can change the node's id, and
			// both keys should hit the cache next time around.
			fresh[node.ID] = normalizations
			applyNormalization(node, normalizations)
			fresh[node.ID] = normalizations
		}
	}

	n.cache.SetBatchNormalization(ctx, fresh)
}

// applyNormalization overwrites a node's identity with the first
// candidate. Normalization is idempotent: applying a node's own
// canonical result changes nothing.
func applyNormalization(node *graph.Node, normalizations []graph.Normalization) {
	if len(normalizations) == 0 {
		return
	}
	first := normalizations[0]
	node.ID = first.ID
	node.Name = first.Name
	node.AddSynonyms(first.Synonyms...)
}

func (n *Normalizer) resolveWithFallback(ctx context.Context, node *graph.Node) []graph.Normalization {
	result := n.SequenceVariantNormalization(ctx, node.ID)
	if result.Err != nil {
		n.logger.Warn("normalization failed, accepting node as-is", "node_id", node.ID, "error", result.Err)
	}
	if len(result.Candidates) > 0 {
		return result.Candidates
	}
	return []graph.Normalization{identity(node.ID, node.Synonyms())}
}
