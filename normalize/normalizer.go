package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/RobokopU24/robokop-genetics/cache"
	"github.com/RobokopU24/robokop-genetics/clingen"
	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
	"github.com/RobokopU24/robokop-genetics/graph"
)

const instrumentationName = "github.com/RobokopU24/robokop-genetics/normalize"

// Options configures the normalizer.
type Options struct {
	// Registry is the allele-registry client. Required.
	Registry *clingen.Client

	// Cache is the memoization cache. Optional: nil and inert clients
	// both mean every lookup goes to the registry.
	Cache *cache.Client

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Normalizer resolves variant identifiers to their canonical identity.
type Normalizer struct {
	registry *clingen.Client
	cache    *cache.Client
	logger   *slog.Logger

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// New creates a normalizer.
func New(opts Options) *Normalizer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	meter := otel.Meter(instrumentationName)
	hits, err := meter.Int64Counter("normalize.cache.hits",
		metric.WithDescription("Normalization cache hits"))
	if err != nil {
		opts.Logger.Warn("failed to create cache hit counter", "error", err)
	}
	misses, err := meter.Int64Counter("normalize.cache.misses",
		metric.WithDescription("Normalization cache misses"))
	if err != nil {
		opts.Logger.Warn("failed to create cache miss counter", "error", err)
	}

	return &Normalizer{
		registry:    opts.Registry,
		cache:       opts.Cache,
		logger:      opts.Logger,
		cacheHits:   hits,
		cacheMisses: misses,
	}
}

// Result is the outcome of normalizing one input identifier. Exactly one
// of Candidates and Err is meaningful: a failed lookup carries its error
// in place, so one bad identifier never aborts its siblings.
type Result struct {
	Candidates []graph.Normalization
	Err        error
}

// OK reports whether the lookup itself succeeded. A successful lookup
// may still have zero candidates.
func (r Result) OK() bool {
	return r.Err == nil
}

// IDAndName applies the canonical id/name tie-break policy to a synonym
// set:
//
//  1. A CAID member becomes the id, its local id the name.
//  2. A DBSNP member becomes the id only if no CAID was found, but its
//     local id always overwrites the name: rsids make better display
//     names, CAIDs better identifiers.
//  3. Otherwise the lexicographically smallest member serves as both, so
//     the choice is deterministic across runs.
func IDAndName(synonyms []string) (string, string) {
	s := append([]string(nil), synonyms...)
	sort.Strings(s)

	var id, name string
	if caids := curie.FilterByPrefix(curie.PrefixCAID, s); len(caids) > 0 {
		id = caids[0]
		name = curie.LocalID(caids[0])
	}
	if rsids := curie.FilterByPrefix(curie.PrefixDBSNP, s); len(rsids) > 0 {
		name = curie.LocalID(rsids[0])
		if id == "" {
			id = rsids[0]
		}
	}
	if id == "" && len(s) > 0 {
		id = s[0]
		name = curie.LocalID(s[0])
	}
	return id, name
}

// fromSynonyms builds a normalization candidate from one registry
// synonym set.
func fromSynonyms(synonyms []string) graph.Normalization {
	s := append([]string(nil), synonyms...)
	sort.Strings(s)
	id, name := IDAndName(s)
	return graph.Normalization{ID: id, Name: name, Synonyms: s}
}

// identity is the degraded normalization for an identifier the registry
// could not resolve: the id is its own canonical form.
func identity(variantID string, synonyms []string) graph.Normalization {
	if len(synonyms) == 0 {
		synonyms = []string{variantID}
	}
	s := append([]string(nil), synonyms...)
	sort.Strings(s)
	return graph.Normalization{ID: variantID, Name: curie.LocalID(variantID), Synonyms: s}
}

// candidates collapses registry results into normalization candidates.
// Per-item registry errors are skipped when at least one sibling allele
// resolved; a lookup where every item failed surfaces the first error.
func candidates(results []clingen.Result) Result {
	out := make([]graph.Normalization, 0, len(results))
	var firstErr error
	for _, r := range results {
		if !r.OK() {
			if firstErr == nil {
				firstErr = r.Err
			}
			continue
		}
		if len(r.Synonyms) == 0 {
			continue
		}
		out = append(out, fromSynonyms(r.Synonyms))
	}
	if len(out) == 0 && firstErr != nil {
		return Result{Err: firstErr}
	}
	return Result{Candidates: out}
}

// SequenceVariantNormalization resolves one identifier through the
// registry, bypassing the cache. Batchable prefixes go through a
// single-element batch call; the rest through the single-item path.
func (n *Normalizer) SequenceVariantNormalization(ctx context.Context, variantID string) Result {
	var (
		results []clingen.Result
		err     error
	)
	if clingen.Batchable(curie.Prefix(variantID)) {
		results, err = n.registry.ResolveBatch(ctx, []string{variantID})
	} else {
		results, err = n.registry.ResolveOne(ctx, variantID)
	}
	if err != nil {
		return Result{Err: err}
	}
	return candidates(results)
}

// VariantNormalizations normalizes a heterogeneous list of identifiers.
// The cache is probed once for the whole list; misses are grouped by
// prefix, batchable groups resolve through one registry batch call per
// prefix, and the rest resolve one at a time. Fresh successes are
// written back to the cache in one round trip.
//
// The returned map holds one Result per distinct input identifier.
func (n *Normalizer) VariantNormalizations(ctx context.Context, variantIDs []string) map[string]Result {
	results := make(map[string]Result, len(variantIDs))

	unique := make([]string, 0, len(variantIDs))
	seen := make(map[string]struct{}, len(variantIDs))
	for _, id := range variantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	cached := n.cache.GetBatchNormalization(ctx, unique)

	var misses []string
	for i, id := range unique {
		if cached[i] != nil {
			results[id] = Result{Candidates: cached[i]}
			continue
		}
		misses = append(misses, id)
	}
	n.count(ctx, n.cacheHits, len(unique)-len(misses))
	n.count(ctx, n.cacheMisses, len(misses))
	n.logger.Debug("variant normalization cache probe",
		"total", len(unique), "hits", len(unique)-len(misses))

	// Group the misses: one registry batch call per batchable prefix,
	// everything else resolved one at a time.
	batchGroups := make(map[string][]string)
	var singles []string
	for _, id := range misses {
		prefix := strings.ToUpper(curie.Prefix(id))
		if clingen.Batchable(prefix) {
			batchGroups[prefix] = append(batchGroups[prefix], id)
			continue
		}
		singles = append(singles, id)
	}

	fresh := make(map[string][]graph.Normalization)

	for prefix, group := range batchGroups {
		regResults, err := n.registry.ResolveBatch(ctx, group)
		if err != nil {
			for _, id := range group {
				results[id] = Result{Err: err}
			}
			continue
		}
		if len(regResults) != len(group) {
			err := generr.New("normalize", "VariantNormalizations", generr.CodeParse,
				fmt.Sprintf("registry returned %d results for %d identifiers", len(regResults), len(group)))
			for _, id := range group {
				results[id] = Result{Err: err}
			}
			continue
		}
		for i, id := range group {
			r := candidates(regResults[i : i+1])
			results[id] = r
			if r.OK() {
				fresh[id] = r.Candidates
			}
		}
		n.logger.Debug("registry batch resolved", "prefix", prefix, "count", len(group))
	}

	for _, id := range singles {
		regResults, err := n.registry.ResolveOne(ctx, id)
		if err != nil {
			results[id] = Result{Err: err}
			continue
		}
		r := candidates(regResults)
		results[id] = r
		if r.OK() {
			fresh[id] = r.Candidates
		}
	}

	n.cache.SetBatchNormalization(ctx, fresh)
	return results
}

func (n *Normalizer) count(ctx context.Context, counter metric.Int64Counter, v int) {
	if counter == nil || v == 0 {
		return
	}
	counter.Add(ctx, int64(v))
}
