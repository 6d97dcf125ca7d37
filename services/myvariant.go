package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
	"github.com/RobokopU24/robokop-genetics/graph"
)

// DefaultMyVariantBaseURL is the public myvariant.info endpoint.
const DefaultMyVariantBaseURL = "http://myvariant.info/v1"

const (
	myVariantServiceName = "myvariant"
	myVariantProvidedBy  = "myvariant.sequence_variant_to_gene"
	myVariantAssembly    = "hg38"
	myVariantFields      = "snpeff.ann.effect,snpeff.ann.feature_type,snpeff.ann.genename"
	myVariantMaxBatch    = 1000
)

// snpeff effects that never indicate a meaningful variant-gene
// relationship.
var ignoredEffects = map[string]struct{}{
	"intergenic_region": {},
	"sequence_feature":  {},
}

// MyVariant annotates variants with per-transcript snpeff effects from
// myvariant.info, turning each effect into a SNPEFF:<effect> edge to
// the affected gene. Lookups run against the hg38 assembly and use a
// variant's MYVARIANT_HG38 synonyms as query ids; gene symbols in the
// annotations resolve to HGNC curies through the HGNC client, and
// symbols with no known id are skipped.
type MyVariant struct {
	baseURL string
	http    *http.Client
	hgnc    *HGNC
	logger  *slog.Logger
}

type MyVariantOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	HGNC       *HGNC
	Logger     *slog.Logger
}

func NewMyVariant(opts MyVariantOptions) *MyVariant {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultMyVariantBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hgnc := opts.HGNC
	if hgnc == nil {
		hgnc = NewHGNC(HGNCOptions{HTTPClient: opts.HTTPClient, Logger: logger})
	}
	return &MyVariant{baseURL: baseURL, http: httpClient, hgnc: hgnc, logger: logger}
}

func (m *MyVariant) Name() string { return MyVariantName }

// VariantToGene annotates one variant through per-id GET lookups, one
// for each MYVARIANT_HG38 synonym. A variant without such a synonym
// yields no relations.
func (m *MyVariant) VariantToGene(ctx context.Context, variantID string, synonyms []string) ([]graph.Relation, error) {
	myvariantCuries := curie.FilterByPrefix(curie.PrefixMyVariantHG38, synonyms)
	if len(myvariantCuries) == 0 {
		m.logger.Warn("no MYVARIANT_HG38 synonym, variant to gene skipped", "variant_id", variantID)
		return []graph.Relation{}, nil
	}

	relations := []graph.Relation{}
	for _, myvariantCurie := range myvariantCuries {
		reqURL := fmt.Sprintf("%s/variant/%s?assembly=%s&fields=snpeff",
			m.baseURL, url.PathEscape(curie.LocalID(myvariantCurie)), myVariantAssembly)
		var annotation myVariantAnnotation
		if err := m.getJSON(ctx, reqURL, &annotation); err != nil {
			return nil, err
		}
		fresh, err := m.processAnnotation(ctx, variantID, annotation, myvariantCurie)
		if err != nil {
			return nil, err
		}
		relations = append(relations, fresh...)
	}
	return relations, nil
}

// BatchVariantToGene annotates up to 1000 variants in one POST. Every
// input variant id gets a result entry; variants without a
// MYVARIANT_HG38 synonym, and ids the service does not know, come back
// empty.
func (m *MyVariant) BatchVariantToGene(ctx context.Context, variants map[string][]string) (map[string][]graph.Relation, error) {
	if len(variants) > myVariantMaxBatch {
		return nil, generr.New(myVariantServiceName, "BatchVariantToGene", generr.CodeContract,
			fmt.Sprintf("batch of %d exceeds the %d variant limit", len(variants), myVariantMaxBatch))
	}

	results := make(map[string][]graph.Relation, len(variants))
	var queryIDs []string
	variantForQueryID := make(map[string]string)
	for variantID, synonyms := range variants {
		results[variantID] = []graph.Relation{}
		myvariantCuries := curie.FilterByPrefix(curie.PrefixMyVariantHG38, synonyms)
		if len(myvariantCuries) == 0 {
			m.logger.Info("no MYVARIANT_HG38 synonym found", "variant_id", variantID)
			continue
		}
		for _, myvariantCurie := range myvariantCuries {
			queryID := curie.LocalID(myvariantCurie)
			queryIDs = append(queryIDs, queryID)
			variantForQueryID[queryID] = variantID
		}
	}
	if len(queryIDs) == 0 {
		m.logger.Warn("batch variant to gene called with no resolvable MyVariant ids")
		return results, nil
	}

	form := url.Values{
		"fields":   {myVariantFields},
		"assembly": {myVariantAssembly},
		"ids":      {strings.Join(queryIDs, ",")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/variant", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, generr.Wrap(myVariantServiceName, "BatchVariantToGene", generr.CodeTransport, "building request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, generr.Wrap(myVariantServiceName, "BatchVariantToGene", generr.CodeTransport, "batch lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, generr.New(myVariantServiceName, "BatchVariantToGene", generr.CodeTransport,
			fmt.Sprintf("batch lookup returned status %d", resp.StatusCode)).
			WithDetail("body", string(body))
	}

	var annotations []myVariantAnnotation
	if err := json.NewDecoder(resp.Body).Decode(&annotations); err != nil {
		return nil, generr.Wrap(myVariantServiceName, "BatchVariantToGene", generr.CodeParse, "decoding batch response", err)
	}

	for _, annotation := range annotations {
		if annotation.ID == "" {
			m.logger.Warn("batch annotation with no id", "query", annotation.Query)
			continue
		}
		variantID, ok := variantForQueryID[annotation.ID]
		if !ok {
			m.logger.Warn("batch annotation for an id that was not queried", "id", annotation.ID)
			continue
		}
		relations, err := m.processAnnotation(ctx, variantID, annotation, curie.PrefixMyVariantHG38+":"+annotation.ID)
		if err != nil {
			return nil, err
		}
		results[variantID] = append(results[variantID], relations...)
	}
	return results, nil
}

func (m *MyVariant) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return generr.Wrap(myVariantServiceName, "VariantToGene", generr.CodeTransport, "building request", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return generr.Wrap(myVariantServiceName, "VariantToGene", generr.CodeTransport, "variant lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return generr.New(myVariantServiceName, "VariantToGene", generr.CodeTransport,
			fmt.Sprintf("variant lookup returned status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return generr.Wrap(myVariantServiceName, "VariantToGene", generr.CodeParse, "decoding variant annotation", err)
	}
	return nil
}

// processAnnotation turns one snpeff annotation payload into relations.
// Only transcript feature annotations count, and only effects outside
// the ignore list produce edges.
func (m *MyVariant) processAnnotation(ctx context.Context, variantID string, annotation myVariantAnnotation, inputCurie string) ([]graph.Relation, error) {
	if annotation.SNPEff == nil {
		m.logger.Debug("no snpeff annotation for variant", "variant_id", variantID)
		return nil, nil
	}

	var relations []graph.Relation
	for _, ann := range annotation.SNPEff.Ann {
		if ann.FeatureType != "transcript" {
			continue
		}

		// The payload carries gene symbols, not ids; resolve the real
		// id and skip symbols HGNC does not know.
		geneID, err := m.hgnc.GeneIDFromSymbol(ctx, ann.GeneName)
		if err != nil {
			return nil, err
		}
		if geneID == "" {
			m.logger.Info("no gene id for snpeff symbol, skipping", "symbol", ann.GeneName)
			continue
		}

		geneNode := graph.NewNode(geneID, graph.TypeGene)
		geneNode.Name = ann.GeneName

		for _, effect := range strings.Split(ann.Effect, "&") {
			if _, ignored := ignoredEffects[effect]; ignored {
				continue
			}
			edge := graph.NewEdge(variantID, geneID, myVariantProvidedBy, inputCurie,
				"SNPEFF:"+effect, effect, time.Now().Unix())
			relations = append(relations, graph.Relation{Edge: edge, Node: geneNode})
		}
	}
	return relations, nil
}

type myVariantAnnotation struct {
	ID     string        `json:"_id"`
	Query  string        `json:"query"`
	SNPEff *snpeffRecord `json:"snpeff"`
}

type snpeffRecord struct {
	Ann snpeffAnnotations `json:"ann"`
}

type snpeffAnnotation struct {
	Effect      string `json:"effect"`
	FeatureType string `json:"feature_type"`
	GeneName    string `json:"genename"`
}

// snpeffAnnotations tolerates the service returning "ann" as either a
// single object or a list.
type snpeffAnnotations []snpeffAnnotation

func (a *snpeffAnnotations) UnmarshalJSON(data []byte) error {
	var list []snpeffAnnotation
	if err := json.Unmarshal(data, &list); err == nil {
		*a = list
		return nil
	}
	var single snpeffAnnotation
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*a = snpeffAnnotations{single}
	return nil
}
