package services

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/RobokopU24/robokop-genetics/cache"
	"github.com/RobokopU24/robokop-genetics/graph"
)

// Service names accepted by Services.VariantToGene.
const (
	MyVariantName = "MyVariant"
	EnsemblName   = "Ensembl"
)

// AllVariantToGeneServices lists every registered variant-to-gene
// service name in the default registry.
func AllVariantToGeneServices() []string {
	return []string{MyVariantName, EnsemblName}
}

// ServiceKey derives the cache key prefix for one service's
// variant-to-gene results.
func ServiceKey(service string) string {
	return service + "_sequence_variant_to_gene"
}

// Annotator looks up gene relationships for one variant at a time.
type Annotator interface {
	Name() string
	VariantToGene(ctx context.Context, variantID string, synonyms []string) ([]graph.Relation, error)
}

// BatchAnnotator is an Annotator that can resolve many variants in one
// call. The input maps a variant id to its synonym set; the result maps
// every input id to its relations, empty when nothing was found.
type BatchAnnotator interface {
	Annotator
	BatchVariantToGene(ctx context.Context, variants map[string][]string) (map[string][]graph.Relation, error)
}

// Registry is a lookup table of annotators by service name.
type Registry struct {
	annotators map[string]Annotator
}

func NewRegistry(annotators ...Annotator) *Registry {
	r := &Registry{annotators: make(map[string]Annotator, len(annotators))}
	for _, a := range annotators {
		r.annotators[a.Name()] = a
	}
	return r
}

func (r *Registry) Lookup(name string) (Annotator, bool) {
	a, ok := r.annotators[name]
	return a, ok
}

// Names returns the registered service names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.annotators))
	for name := range r.annotators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures the Services facade. A zero Cache field disables
// result caching; zero Registry builds the default annotator set.
type Options struct {
	Registry   *Registry
	Cache      *cache.Client
	HGNC       *HGNC
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Services fans variant-to-gene lookups out to the registered
// annotators, consulting the shared result cache first and writing
// fresh results back.
type Services struct {
	registry *Registry
	cache    *cache.Client
	hgnc     *HGNC
	logger   *slog.Logger
}

func New(opts Options) *Services {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hgnc := opts.HGNC
	if hgnc == nil {
		hgnc = NewHGNC(HGNCOptions{HTTPClient: opts.HTTPClient, Logger: logger})
	}

	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry(
			NewMyVariant(MyVariantOptions{HTTPClient: opts.HTTPClient, HGNC: hgnc, Logger: logger}),
			NewEnsembl(EnsemblOptions{HTTPClient: opts.HTTPClient, Logger: logger}),
		)
	}

	return &Services{
		registry: registry,
		cache:    opts.Cache,
		hgnc:     hgnc,
		logger:   logger,
	}
}

// VariantToGene annotates the given nodes with gene relationships from
// each named service. Results are merged per node id across services.
// Cached results are served without a service call; fresh results are
// written back under the service's cache key. A service that fails
// leaves its nodes unannotated for this call and uncached, so the next
// call retries them.
func (s *Services) VariantToGene(ctx context.Context, serviceNames []string, nodes []*graph.Node) map[string][]graph.Relation {
	all := make(map[string][]graph.Relation, len(nodes))
	for _, node := range nodes {
		all[node.ID] = []graph.Relation{}
	}

	for _, name := range serviceNames {
		annotator, ok := s.registry.Lookup(name)
		if !ok {
			s.logger.Warn("unknown variant-to-gene service", "service", name)
			continue
		}

		pending := nodes
		if s.cache.Enabled() {
			nodeIDs := make([]string, len(nodes))
			for i, node := range nodes {
				nodeIDs[i] = node.ID
			}
			cached := s.cache.GetServiceResults(ctx, ServiceKey(name), nodeIDs)
			misses := make([]*graph.Node, 0, len(nodes))
			for i, node := range nodes {
				if cached[i] != nil {
					all[node.ID] = append(all[node.ID], cached[i]...)
					continue
				}
				misses = append(misses, node)
			}
			pending = misses
		}
		if len(pending) == 0 {
			continue
		}

		fresh, err := s.annotate(ctx, annotator, pending)
		if err != nil {
			s.logger.Error("variant-to-gene lookup failed", "service", name, "nodes", len(pending), "error", err)
			continue
		}
		for nodeID, relations := range fresh {
			all[nodeID] = append(all[nodeID], relations...)
		}
		s.cache.SetServiceResults(ctx, ServiceKey(name), fresh)
	}
	return all
}

// annotate runs one service over the pending nodes, batched when the
// annotator supports it.
func (s *Services) annotate(ctx context.Context, annotator Annotator, nodes []*graph.Node) (map[string][]graph.Relation, error) {
	if batcher, ok := annotator.(BatchAnnotator); ok {
		variants := make(map[string][]string, len(nodes))
		for _, node := range nodes {
			variants[node.ID] = node.Synonyms()
		}
		return batcher.BatchVariantToGene(ctx, variants)
	}

	results := make(map[string][]graph.Relation, len(nodes))
	for _, node := range nodes {
		relations, err := annotator.VariantToGene(ctx, node.ID, node.Synonyms())
		if err != nil {
			return nil, err
		}
		if relations == nil {
			relations = []graph.Relation{}
		}
		results[node.ID] = relations
	}
	return results, nil
}

// GeneIDFromSymbol resolves a plain gene symbol to its HGNC curie,
// e.g. BRCA1 to HGNC:1100. An unknown symbol yields an empty id.
func (s *Services) GeneIDFromSymbol(ctx context.Context, symbol string) (string, error) {
	return s.hgnc.GeneIDFromSymbol(ctx, symbol)
}
