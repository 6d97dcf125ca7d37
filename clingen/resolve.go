package clingen

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/RobokopU24/robokop-genetics/curie"
	"github.com/RobokopU24/robokop-genetics/generr"
)

// ResolveBatch resolves a list of curies sharing one batchable prefix
// (CAID, HGVS, or MYVARIANT_HG38) and returns one Result per input, in
// input order. The list is chunked into registry-sized pages internally;
// chunking never changes result order.
//
// Mixing prefixes in one call, or passing a non-batchable prefix, is a
// contract violation and fails fast. A registry failure for one chunk is
// captured in that chunk's result slots and does not abort the rest.
func (c *Client) ResolveBatch(ctx context.Context, curies []string) ([]Result, error) {
	if len(curies) == 0 {
		return nil, nil
	}

	prefix := strings.ToUpper(curie.Prefix(curies[0]))
	fileParam, ok := batchParams[prefix]
	if !ok {
		return nil, generr.New(serviceName, "ResolveBatch", generr.CodeContract,
			fmt.Sprintf("prefix %q is not batchable", curie.Prefix(curies[0])))
	}

	localIDs := make([]string, len(curies))
	for i, cur := range curies {
		if !curie.HasPrefix(cur, prefix) {
			return nil, generr.New(serviceName, "ResolveBatch", generr.CodeContract,
				fmt.Sprintf("mixed prefixes in one batch: %q does not match %q", cur, prefix))
		}
		localIDs[i] = curie.LocalID(cur)
	}

	queryURL := fmt.Sprintf("%s/alleles?file=%s&fields=%s", c.baseURL, fileParam, synonymFields)

	results := make([]Result, 0, len(curies))
	for start := 0; start < len(localIDs); start += maxBatchSize {
		end := min(start+maxBatchSize, len(localIDs))
		chunk := localIDs[start:end]

		data, qerr := c.query(ctx, queryURL, strings.Join(chunk, "\n"))
		if qerr != nil {
			// The whole chunk failed; every slot in it carries the error.
			for range chunk {
				results = append(results, Result{Err: qerr})
			}
			continue
		}
		if data == nil {
			for range chunk {
				results = append(results, Result{Synonyms: []string{}})
			}
			continue
		}

		items, perr := decodeAlleleArray(data)
		if perr != nil {
			for range chunk {
				results = append(results, Result{Err: perr})
			}
			continue
		}
		for _, item := range items {
			results = append(results, parseAllele(item))
		}
	}
	return results, nil
}

// ResolveOne resolves a single curie, dispatching by prefix. DBSNP and
// CLINVARVARIANT ids go through parameter-matching queries; a dbSNP id
// may carry an allele suffix ("rs123-G") selecting one allele of a
// multi-allelic variant. Batchable prefixes are refused with
// INEFFICIENT_USAGE and unknown prefixes with UNSUPPORTED_PREFIX.
//
// A multi-allelic lookup legitimately returns several results.
func (c *Client) ResolveOne(ctx context.Context, cur string) ([]Result, error) {
	prefix := strings.ToUpper(curie.Prefix(cur))
	localID := curie.LocalID(cur)

	switch prefix {
	case curie.PrefixDBSNP:
		rsID, allele, _ := strings.Cut(localID, "-")
		return c.ResolveByAllelePreference(ctx, rsID, allele)

	case curie.PrefixClinVar:
		return c.resolveByParameter(ctx, "ClinVar.variationId", localID, "")

	default:
		if Batchable(prefix) {
			return nil, generr.New(serviceName, "ResolveOne", generr.CodeInefficientUsage,
				fmt.Sprintf("%s ids must be batched and never fetched alone", prefix))
		}
		return nil, generr.New(serviceName, "ResolveOne", generr.CodeUnsupportedPrefix,
			fmt.Sprintf("unsupported prefix: %q", cur))
	}
}

// ResolveByAllelePreference resolves a bare dbSNP rsid. When
// allelePreference is non-empty, the otherwise multi-allelic result set
// is filtered down to entries whose positional identifier ends with that
// allele. Filtering that matches nothing falls back to the unfiltered
// set, so callers never lose data the registry did return.
func (c *Client) ResolveByAllelePreference(ctx context.Context, rsID, allelePreference string) ([]Result, error) {
	return c.resolveByParameter(ctx, "dbSNP.rs", strings.TrimPrefix(rsID, "rs"), allelePreference)
}

func (c *Client) resolveByParameter(ctx context.Context, param, value, allelePreference string) ([]Result, error) {
	queryURL := fmt.Sprintf("%s/alleles?%s=%s&fields=%s", c.baseURL, param, url.QueryEscape(value), synonymFields)

	data, qerr := c.query(ctx, queryURL, "")
	if qerr != nil {
		// Captured per item, not raised: sibling lookups proceed.
		return []Result{{Err: qerr}}, nil
	}
	if data == nil {
		return []Result{}, nil
	}

	items, perr := decodeAlleleArray(data)
	if perr != nil {
		return []Result{{Err: perr}}, nil
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		results = append(results, parseAllele(item))
	}

	if allelePreference == "" {
		return results, nil
	}

	var filtered []Result
	for _, r := range results {
		if !r.OK() {
			continue
		}
		for _, robo := range curie.FilterByPrefix(curie.PrefixRoboVariant, r.Synonyms) {
			parts := strings.Split(robo, "|")
			if parts[len(parts)-1] == allelePreference {
				filtered = append(filtered, r)
				break
			}
		}
	}
	if len(filtered) == 0 {
		// May mask a genuine "no such allele"; keep the data observable.
		c.logger.Warn("allele preference matched nothing, returning unfiltered results",
			"param_value", value, "allele", allelePreference, "results", len(results))
		return results, nil
	}
	return filtered, nil
}
