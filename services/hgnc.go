package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/RobokopU24/robokop-genetics/generr"
)

// DefaultHGNCBaseURL is the public genenames.org REST endpoint.
const DefaultHGNCBaseURL = "http://rest.genenames.org"

const hgncServiceName = "hgnc"

// HGNC resolves plain gene symbols to HGNC curies. Lookups are memoized
// for the life of the client, negative results included, so repeated
// annotation runs over the same genes pay one request per symbol.
type HGNC struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	symbols map[string]string
}

type HGNCOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

func NewHGNC(opts HGNCOptions) *HGNC {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultHGNCBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &HGNC{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger,
		symbols: make(map[string]string),
	}
}

// GeneIDFromSymbol resolves a gene symbol to its HGNC curie, e.g.
// BRCA1 to HGNC:1100. An unknown symbol resolves to an empty id with
// no error; transport failures are returned and not memoized.
func (h *HGNC) GeneIDFromSymbol(ctx context.Context, symbol string) (string, error) {
	h.mu.Lock()
	id, ok := h.symbols[symbol]
	h.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := h.fetchSymbol(ctx, symbol)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.symbols[symbol] = id
	h.mu.Unlock()
	if id == "" {
		h.logger.Info("no HGNC id for gene symbol", "symbol", symbol)
	}
	return id, nil
}

func (h *HGNC) fetchSymbol(ctx context.Context, symbol string) (string, error) {
	reqURL := fmt.Sprintf("%s/fetch/symbol/%s", h.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", generr.Wrap(hgncServiceName, "GeneIDFromSymbol", generr.CodeTransport, "building request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return "", generr.Wrap(hgncServiceName, "GeneIDFromSymbol", generr.CodeTransport, "symbol lookup failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", generr.New(hgncServiceName, "GeneIDFromSymbol", generr.CodeTransport,
			fmt.Sprintf("symbol lookup returned status %d", resp.StatusCode)).
			WithDetail("symbol", symbol)
	}

	var payload struct {
		Response struct {
			Docs []struct {
				HGNCID string `json:"hgnc_id"`
			} `json:"docs"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", generr.Wrap(hgncServiceName, "GeneIDFromSymbol", generr.CodeParse, "decoding symbol lookup", err)
	}

	if len(payload.Response.Docs) == 0 {
		return "", nil
	}
	return payload.Response.Docs[0].HGNCID, nil
}
