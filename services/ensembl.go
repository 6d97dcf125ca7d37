package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
	"github.com/RobokopU24/robokop-genetics/graph"
)

// DefaultEnsemblBaseURL is the public Ensembl REST endpoint.
const DefaultEnsemblBaseURL = "https://rest.ensembl.org"

const (
	ensemblServiceName = "ensembl"
	ensemblProvidedBy  = "ensembl.sequence_variant_to_gene"

	// Genes are fetched from a window extending this far on each side
	// of the variant position.
	ensemblFlankingSize = 500_000

	predicateOverlapsID    = "RO:0002525"
	predicateOverlapsLabel = "overlaps"
	predicateNearbyID      = "GAMMA:0000102"
	predicateNearbyLabel   = "nearby_variant_of"
)

// Ensembl annotates variants with genes in their genomic neighborhood.
// A variant's ROBO_VARIANT synonym supplies its hg38 coordinates; genes
// whose span covers the variant become "overlaps" edges, the rest of
// the flanking window becomes "nearby_variant_of" edges carrying the
// base-pair distance as an edge property.
type Ensembl struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type EnsemblOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewEnsembl(opts EnsemblOptions) *Ensembl {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultEnsemblBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ensembl{baseURL: baseURL, http: httpClient, logger: logger}
}

func (e *Ensembl) Name() string { return EnsemblName }

// VariantToGene annotates one variant from its ROBO_VARIANT synonyms.
// A variant without a positional synonym yields no relations.
func (e *Ensembl) VariantToGene(ctx context.Context, variantID string, synonyms []string) ([]graph.Relation, error) {
	roboCuries := curie.FilterByPrefix(curie.PrefixRoboVariant, synonyms)
	if len(roboCuries) == 0 {
		e.logger.Warn("no ROBO_VARIANT synonym, variant to gene skipped", "variant_id", variantID)
		return []graph.Relation{}, nil
	}

	relations := []graph.Relation{}
	for _, roboCurie := range roboCuries {
		pos, err := parseRoboVariant(roboCurie)
		if err != nil {
			e.logger.Warn("unparseable positional identifier", "curie", roboCurie, "error", err)
			continue
		}
		genes, err := e.overlapRegion(ctx, pos)
		if err != nil {
			return nil, err
		}
		for _, gene := range genes {
			relations = append(relations, relateGene(variantID, roboCurie, pos, gene))
		}
	}
	return relations, nil
}

// roboVariantPosition is the positional payload of a ROBO_VARIANT
// curie: HG38|chromosome|start|end|ref|alt.
type roboVariantPosition struct {
	Chromosome string
	Start      int
	End        int
}

func parseRoboVariant(roboCurie string) (roboVariantPosition, error) {
	var pos roboVariantPosition
	fields := strings.Split(curie.LocalID(roboCurie), "|")
	if len(fields) < 4 {
		return pos, fmt.Errorf("positional identifier has %d fields, want at least 4", len(fields))
	}
	if fields[0] != "HG38" {
		return pos, fmt.Errorf("unsupported genome build %q", fields[0])
	}
	start, err := strconv.Atoi(fields[2])
	if err != nil {
		return pos, fmt.Errorf("parsing start coordinate: %w", err)
	}
	end, err := strconv.Atoi(fields[3])
	if err != nil {
		return pos, fmt.Errorf("parsing end coordinate: %w", err)
	}
	pos.Chromosome = fields[1]
	pos.Start = start
	pos.End = end
	return pos, nil
}

type ensemblGene struct {
	ID           string `json:"id"`
	ExternalName string `json:"external_name"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
}

// overlapRegion fetches every gene in the flanking window around the
// variant.
func (e *Ensembl) overlapRegion(ctx context.Context, pos roboVariantPosition) ([]ensemblGene, error) {
	windowStart := pos.Start - ensemblFlankingSize
	if windowStart < 1 {
		windowStart = 1
	}
	windowEnd := pos.End + ensemblFlankingSize

	reqURL := fmt.Sprintf("%s/overlap/region/human/%s:%d-%d?feature=gene",
		e.baseURL, pos.Chromosome, windowStart, windowEnd)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, generr.Wrap(ensemblServiceName, "VariantToGene", generr.CodeTransport, "building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, generr.Wrap(ensemblServiceName, "VariantToGene", generr.CodeTransport, "region lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, generr.New(ensemblServiceName, "VariantToGene", generr.CodeTransport,
			fmt.Sprintf("region lookup returned status %d", resp.StatusCode)).
			WithDetail("region", fmt.Sprintf("%s:%d-%d", pos.Chromosome, windowStart, windowEnd))
	}

	var genes []ensemblGene
	if err := json.NewDecoder(resp.Body).Decode(&genes); err != nil {
		return nil, generr.Wrap(ensemblServiceName, "VariantToGene", generr.CodeParse, "decoding region genes", err)
	}
	return genes, nil
}

// relateGene builds the edge for one gene in the window: overlapping
// genes relate as "overlaps", the rest as "nearby_variant_of" with the
// base-pair distance between variant and gene span.
func relateGene(variantID, inputCurie string, pos roboVariantPosition, gene ensemblGene) graph.Relation {
	geneNode := graph.NewNode("ENSEMBL:"+gene.ID, graph.TypeGene)
	geneNode.Name = gene.ExternalName

	predicateID := predicateOverlapsID
	predicateLabel := predicateOverlapsLabel
	var distance int
	switch {
	case gene.Start <= pos.End && pos.Start <= gene.End:
		// overlapping, distance stays zero
	case gene.Start > pos.End:
		predicateID, predicateLabel = predicateNearbyID, predicateNearbyLabel
		distance = gene.Start - pos.End
	default:
		predicateID, predicateLabel = predicateNearbyID, predicateNearbyLabel
		distance = pos.Start - gene.End
	}

	edge := graph.NewEdge(variantID, geneNode.ID, ensemblProvidedBy, inputCurie,
		predicateID, predicateLabel, time.Now().Unix())
	if predicateID == predicateNearbyID {
		edge.Properties["distance"] = distance
	}
	return graph.Relation{Edge: edge, Node: geneNode}
}
