package genetics

import (
	"context"
	"log/slog"
	"os"

	"github.com/RobokopU24/robokop-genetics/cache"
	"github.com/RobokopU24/robokop-genetics/clingen"
	"github.com/RobokopU24/robokop-genetics/config"
	"github.com/RobokopU24/robokop-genetics/graph"
	"github.com/RobokopU24/robokop-genetics/normalize"
	"github.com/RobokopU24/robokop-genetics/services"
)

// Genetics bundles the variant normalizer, the allele registry client,
// the gene annotators, and the shared cache behind one facade.
type Genetics struct {
	cfg        *config.Config
	logger     *slog.Logger
	cache      *cache.Client
	registry   *clingen.Client
	normalizer *normalize.Normalizer
	services   *services.Services
}

// New builds a Genetics instance. Configuration comes from WithConfig,
// WithConfigFile, or the environment, in that order of precedence; a
// configuration without a cache host runs uncached.
func New(opts ...Option) (*Genetics, error) {
	s := settings{useCache: true}
	for _, opt := range opts {
		opt(&s)
	}

	logger := s.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	cfg := s.config
	if cfg == nil && s.configPath != "" {
		loaded, err := config.Load(s.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if cfg == nil {
		cfg = config.FromEnv()
	}

	cacheClient := s.cache
	if cacheClient == nil && s.useCache {
		if url := cfg.Cache.URL(); url != "" {
			cacheClient = cache.New(cache.Options{
				URL:            url,
				KeyPrefix:      cfg.Cache.GetKeyPrefix(),
				ConnectTimeout: cfg.Cache.GetConnectTimeout(),
			}, logger)
		} else {
			logger.Debug("no cache host configured, running uncached")
		}
	}

	registry := clingen.New(clingen.Options{
		BaseURL:           cfg.Registry.GetBaseURL(),
		Timeout:           cfg.Registry.GetTimeout(),
		MaxRetries:        cfg.Registry.GetMaxRetries(),
		RequestsPerSecond: cfg.Registry.GetRequestsPerSecond(),
		HTTPClient:        s.httpClient,
		Logger:            logger,
	})

	normalizer := normalize.New(normalize.Options{
		Registry: registry,
		Cache:    cacheClient,
		Logger:   logger,
	})

	hgnc := services.NewHGNC(services.HGNCOptions{
		BaseURL:    cfg.Services.GetHGNCBaseURL(),
		HTTPClient: s.httpClient,
		Logger:     logger,
	})
	annotators := services.New(services.Options{
		Registry: services.NewRegistry(
			services.NewMyVariant(services.MyVariantOptions{
				BaseURL:    cfg.Services.GetMyVariantBaseURL(),
				HTTPClient: s.httpClient,
				HGNC:       hgnc,
				Logger:     logger,
			}),
			services.NewEnsembl(services.EnsemblOptions{
				BaseURL:    cfg.Services.GetEnsemblBaseURL(),
				HTTPClient: s.httpClient,
				Logger:     logger,
			}),
		),
		Cache:  cacheClient,
		HGNC:   hgnc,
		Logger: logger,
	})

	return &Genetics{
		cfg:        cfg,
		logger:     logger,
		cache:      cacheClient,
		registry:   registry,
		normalizer: normalizer,
		services:   annotators,
	}, nil
}

// Close releases the cache connection. Safe to call when running
// uncached.
func (g *Genetics) Close() error {
	return g.cache.Close()
}

// NormalizeVariant resolves a node's identity in place.
func (g *Genetics) NormalizeVariant(ctx context.Context, node *graph.Node) error {
	return g.normalizer.Normalize(ctx, node)
}

// BatchNormalizeVariants resolves many nodes in place, batching
// registry calls where the identifiers allow it.
func (g *Genetics) BatchNormalizeVariants(ctx context.Context, nodes []*graph.Node) {
	g.normalizer.BatchNormalize(ctx, nodes)
}

// VariantNormalizations normalizes a heterogeneous list of variant
// identifiers, returning one result per distinct input.
func (g *Genetics) VariantNormalizations(ctx context.Context, variantIDs []string) map[string]normalize.Result {
	return g.normalizer.VariantNormalizations(ctx, variantIDs)
}

// VariantToGene annotates the given variant nodes with gene
// relationships from the named services.
func (g *Genetics) VariantToGene(ctx context.Context, serviceNames []string, nodes []*graph.Node) map[string][]graph.Relation {
	return g.services.VariantToGene(ctx, serviceNames, nodes)
}

// GeneIDFromSymbol resolves a plain gene symbol to its HGNC curie.
func (g *Genetics) GeneIDFromSymbol(ctx context.Context, symbol string) (string, error) {
	return g.services.GeneIDFromSymbol(ctx, symbol)
}

// Normalizer exposes the underlying normalization engine.
func (g *Genetics) Normalizer() *normalize.Normalizer {
	return g.normalizer
}

// Registry exposes the underlying allele registry client.
func (g *Genetics) Registry() *clingen.Client {
	return g.registry
}

// Services exposes the underlying annotator facade.
func (g *Genetics) Services() *services.Services {
	return g.services
}

// Cache exposes the underlying cache client, nil-safe and inert when
// running uncached.
func (g *Genetics) Cache() *cache.Client {
	return g.cache
}
