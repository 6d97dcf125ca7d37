package clingen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
)

const (
	serviceName = "clingen"

	// DefaultBaseURL is the public ClinGen Allele Registry endpoint.
	DefaultBaseURL = "https://reg.genome.network"

	// maxBatchSize is the registry's per-request identifier cap.
	maxBatchSize = 2000

	// synonymFields selects the payload fields needed to build synonym
	// sets; everything else is suppressed with "none".
	synonymFields = "none+@id" +
		"+externalRecords.dbSNP" +
		"+externalRecords.ClinVarVariations" +
		"+externalRecords.MyVariantInfo_hg19" +
		"+externalRecords.MyVariantInfo_hg38" +
		"+genomicAlleles-genomicAlleles.referenceSequence"

	instrumentationName = "github.com/RobokopU24/robokop-genetics/clingen"
)

// batchParams maps each batchable curie prefix to the registry's file
// format parameter for bulk lookups.
var batchParams = map[string]string{
	curie.PrefixCAID:          "id",
	curie.PrefixHGVS:          "hgvs",
	curie.PrefixMyVariantHG38: "MyVariantInfo_hg38.id",
}

// Batchable reports whether the identifier system named by prefix
// supports bulk lookup. Batchable prefixes must go through ResolveBatch
// and never through ResolveOne.
func Batchable(prefix string) bool {
	_, ok := batchParams[strings.ToUpper(prefix)]
	return ok
}

// Result is the outcome of resolving one identifier: either its synonym
// set (sorted) or a structured error. A successful lookup that matched
// nothing has an empty non-nil synonym slice.
type Result struct {
	Synonyms []string
	Err      *generr.Error
}

// OK reports whether the result carries a synonym set rather than an
// error.
func (r Result) OK() bool {
	return r.Err == nil
}

// Options configures the registry client.
type Options struct {
	// BaseURL overrides the registry endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout is the per-request transport timeout. Defaults to 30s.
	Timeout time.Duration

	// MaxRetries bounds attempts for transport-level failures. Retries
	// are immediate, with no backoff. Defaults to 3.
	MaxRetries int

	// RequestsPerSecond paces outbound requests. Defaults to 10.
	RequestsPerSecond float64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Logger receives request diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client queries the ClinGen Allele Registry. It is safe for concurrent
// use by multiple goroutines.
type Client struct {
	baseURL    string
	hc         *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
	tracer     trace.Tracer
	requests   metric.Int64Counter
}

// New creates a registry client. Instrumentation goes through the global
// OpenTelemetry providers and stays a no-op until the host process
// installs an SDK.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 10
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	meter := otel.Meter(instrumentationName)
	requests, err := meter.Int64Counter("clingen.requests",
		metric.WithDescription("Allele registry requests by outcome"))
	if err != nil {
		opts.Logger.Warn("failed to create request counter", "error", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		hc:         hc,
		maxRetries: opts.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)+1),
		logger:     opts.Logger,
		tracer:     otel.Tracer(instrumentationName),
		requests:   requests,
	}
}

// registryError is the structured error payload the registry returns for
// non-success statuses and for failing items inside a batch response.
type registryError struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func (e registryError) String() string {
	s := e.ErrorType + ": " + e.Description
	if e.Message != "" {
		s += " " + e.Message
	}
	return s
}

// query issues one registry request, retrying transport failures up to
// the retry bound. A nil byte slice with a nil error means the registry
// had no match (terminal success).
func (c *Client) query(ctx context.Context, queryURL, body string) ([]byte, *generr.Error) {
	ctx, span := c.tracer.Start(ctx, "clingen.query",
		trace.WithAttributes(attribute.String("url.full", queryURL)))
	defer span.End()

	var lastErr *generr.Error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = generr.Wrap(serviceName, "query", generr.CodeTransport, "rate limiter wait interrupted", err)
			break
		}

		data, qerr := c.doRequest(ctx, queryURL, body)
		if qerr == nil {
			c.count(ctx, "success")
			return data, nil
		}
		if qerr.Code == generr.CodeNotFound {
			c.count(ctx, "not_found")
			return nil, nil
		}
		if !generr.Retryable(qerr.Code) {
			c.count(ctx, "error")
			span.SetStatus(codes.Error, qerr.Message)
			return nil, qerr
		}

		c.logger.Warn("registry request failed, retrying",
			"url", queryURL, "attempt", attempt, "error", qerr)
		lastErr = qerr
	}

	c.count(ctx, "transport_error")
	span.SetStatus(codes.Error, lastErr.Message)
	return nil, lastErr
}

func (c *Client) doRequest(ctx context.Context, queryURL, body string) ([]byte, *generr.Error) {
	method := http.MethodGet
	var reqBody io.Reader
	if body != "" {
		method = http.MethodPost
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, queryURL, reqBody)
	if err != nil {
		return nil, generr.Wrap(serviceName, "query", generr.CodeTransport, "building request", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, generr.Wrap(serviceName, "query", generr.CodeTransport, "request failed", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generr.Wrap(serviceName, "query", generr.CodeTransport, "reading response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		// No match is a terminal success, not an error.
		return nil, generr.New(serviceName, "query", generr.CodeNotFound, "no matching allele")
	default:
		var regErr registryError
		if jsonErr := json.Unmarshal(data, &regErr); jsonErr == nil && regErr.ErrorType != "" {
			return nil, generr.New(serviceName, "query", generr.CodeRegistry, regErr.String()).
				WithDetail("status", resp.StatusCode)
		}
		return nil, generr.New(serviceName, "query", generr.CodeRegistry,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

func (c *Client) count(ctx context.Context, outcome string) {
	if c.requests == nil {
		return
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
