package clingen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobokopU24/robokop-genetics/generr"
)

// Payload fixtures mirror real registry records for rs671 and the
// tri-allelic rs369602258.
const (
	alleleCA128085 = `{
		"@id": "http://reg.genome.network/allele/CA128085",
		"genomicAlleles": [{
			"hgvs": ["NC_000012.12:g.111803962G>A", "CM000674.2:g.111803962G>A"],
			"referenceGenome": "GRCh38",
			"chromosome": "12",
			"coordinates": [{"allele": "A", "referenceAllele": "G", "start": 111803961, "end": 111803962}]
		}],
		"externalRecords": {
			"dbSNP": [{"rs": 671}],
			"ClinVarVariations": [{"variationId": 18390}],
			"MyVariantInfo_hg38": [{"id": "chr12:g.111803962G>A"}],
			"MyVariantInfo_hg19": [{"id": "chr12:g.112241766G>A"}]
		}
	}`

	alleleCA6146346 = `{
		"@id": "http://reg.genome.network/allele/CA6146346",
		"genomicAlleles": [{
			"hgvs": ["NC_000011.10:g.68032291C>G"],
			"referenceGenome": "GRCh38",
			"chromosome": "11",
			"coordinates": [{"allele": "G", "referenceAllele": "C", "start": 68032290, "end": 68032291}]
		}],
		"externalRecords": {
			"dbSNP": [{"rs": 369602258}],
			"MyVariantInfo_hg38": [{"id": "chr11:g.68032291C>G"}]
		}
	}`

	alleleCA321211 = `{
		"@id": "http://reg.genome.network/allele/CA321211",
		"genomicAlleles": [{
			"hgvs": ["NC_000011.10:g.68032291C>T"],
			"referenceGenome": "GRCh38",
			"chromosome": "11",
			"coordinates": [{"allele": "T", "referenceAllele": "C", "start": 68032290, "end": 68032291}]
		}],
		"externalRecords": {
			"dbSNP": [{"rs": 369602258}],
			"MyVariantInfo_hg38": [{"id": "chr11:g.68032291C>T"}]
		}
	}`

	alleleCA321212 = `{
		"@id": "http://reg.genome.network/allele/CA321212",
		"genomicAlleles": [{
			"hgvs": ["NC_000011.10:g.68032291C>A"],
			"referenceGenome": "GRCh38",
			"chromosome": "11",
			"coordinates": [{"allele": "A", "referenceAllele": "C", "start": 68032290, "end": 68032291}]
		}],
		"externalRecords": {
			"dbSNP": [{"rs": 369602258}]
		}
	}`

	registryErrorItem = `{
		"errorType": "HgvsParseError",
		"description": "Cannot parse HGVS expression.",
		"message": "not-an-hgvs"
	}`
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(Options{
		BaseURL:           srv.URL,
		HTTPClient:        srv.Client(),
		MaxRetries:        3,
		RequestsPerSecond: 1000,
	})
	return c, srv
}

func TestResolveBatch(t *testing.T) {
	var gotBody, gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(body)
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, "[%s,%s]", alleleCA128085, alleleCA6146346)
	}))

	results, err := c.ResolveBatch(context.Background(), []string{
		"HGVS:NC_000012.12:g.111803962G>A",
		"HGVS:NC_000011.10:g.68032291C>G",
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Contains(t, gotQuery, "file=hgvs")
	assert.Contains(t, gotQuery, "fields=none+@id")
	assert.Equal(t, "NC_000012.12:g.111803962G>A\nNC_000011.10:g.68032291C>G", gotBody,
		"local ids are newline-separated in the request body")

	require.True(t, results[0].OK())
	assert.Contains(t, results[0].Synonyms, "CAID:CA128085")
	assert.Contains(t, results[0].Synonyms, "HGVS:NC_000012.12:g.111803962G>A")
	assert.Contains(t, results[0].Synonyms, "DBSNP:rs671")
	assert.Contains(t, results[0].Synonyms, "CLINVARVARIANT:18390")
	assert.Contains(t, results[0].Synonyms, "MYVARIANT_HG38:chr12:g.111803962G>A")
	assert.Contains(t, results[0].Synonyms, "MYVARIANT_HG19:chr12:g.112241766G>A")
	assert.Contains(t, results[0].Synonyms, "ROBO_VARIANT:HG38|12|111803961|111803962|G|A")

	require.True(t, results[1].OK())
	assert.Contains(t, results[1].Synonyms, "CAID:CA6146346")
}

func TestResolveBatchPartialFailure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "[%s,%s,%s]", alleleCA128085, registryErrorItem, alleleCA6146346)
	}))

	inputs := []string{
		"HGVS:NC_000012.12:g.111803962G>A",
		"HGVS:not-an-hgvs",
		"HGVS:NC_000011.10:g.68032291C>G",
	}
	results, err := c.ResolveBatch(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, results, len(inputs), "one slot per input, failures included")

	assert.True(t, results[0].OK())
	require.False(t, results[1].OK(), "the malformed item's slot holds a failure marker")
	assert.Equal(t, generr.CodeRegistry, results[1].Err.Code)
	assert.Contains(t, results[1].Err.Message, "HgvsParseError")
	assert.True(t, results[2].OK(), "siblings of a failed item still succeed")
}

func TestResolveBatchContractViolations(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("contract violations must fail before any registry call")
	}))

	_, err := c.ResolveBatch(context.Background(), []string{"DBSNP:rs671"})
	require.Error(t, err)
	assert.True(t, generr.IsCode(err, generr.CodeContract), "non-batchable prefix is a contract violation")

	_, err = c.ResolveBatch(context.Background(), []string{"CAID:CA128085", "HGVS:NC_000012.12:g.111803962G>A"})
	require.Error(t, err)
	assert.True(t, generr.IsCode(err, generr.CodeContract), "mixed prefixes are a contract violation")

	results, err := c.ResolveBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// Chunk boundaries are a registry-limit concern and must never reorder
// results.
func TestResolveBatchChunking(t *testing.T) {
	var requests int
	var chunkSizes []int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		lines := strings.Split(string(body), "\n")
		chunkSizes = append(chunkSizes, len(lines))

		items := make([]string, len(lines))
		for i, line := range lines {
			items[i] = fmt.Sprintf(`{"@id": "http://reg.genome.network/allele/%s"}`, line)
		}
		fmt.Fprintf(w, "[%s]", strings.Join(items, ","))
	}))

	curies := make([]string, 2001)
	for i := range curies {
		curies[i] = fmt.Sprintf("CAID:CA%06d", i)
	}

	results, err := c.ResolveBatch(context.Background(), curies)
	require.NoError(t, err)
	require.Len(t, results, 2001)

	assert.Equal(t, 2, requests)
	assert.Equal(t, []int{2000, 1}, chunkSizes)

	for i, r := range results {
		require.True(t, r.OK())
		assert.Equal(t, []string{fmt.Sprintf("CAID:CA%06d", i)}, r.Synonyms, "chunking preserves input order")
	}
}

func TestResolveOneDispatch(t *testing.T) {
	var gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprintf(w, "[%s]", alleleCA128085)
	}))

	t.Run("dbsnp uses parameter matching", func(t *testing.T) {
		results, err := c.ResolveOne(context.Background(), "DBSNP:rs671")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Contains(t, gotQuery, "dbSNP.rs=671")
	})

	t.Run("clinvar uses parameter matching", func(t *testing.T) {
		results, err := c.ResolveOne(context.Background(), "CLINVARVARIANT:18390")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Contains(t, gotQuery, "ClinVar.variationId=18390")
	})

	t.Run("batchable prefixes are refused", func(t *testing.T) {
		for _, cur := range []string{"CAID:CA128085", "HGVS:NC_000012.12:g.111803962G>A", "MYVARIANT_HG38:chr12:g.111803962G>A"} {
			_, err := c.ResolveOne(context.Background(), cur)
			require.Error(t, err)
			assert.True(t, generr.IsCode(err, generr.CodeInefficientUsage), cur)
		}
	})

	t.Run("unknown prefixes are unsupported", func(t *testing.T) {
		_, err := c.ResolveOne(context.Background(), "ROBO_VARIANT:HG38|12|111803961|111803962|G|A")
		require.Error(t, err)
		assert.True(t, generr.IsCode(err, generr.CodeUnsupportedPrefix))
	})
}

func TestAllelePreference(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "dbSNP.rs=369602258")
		fmt.Fprintf(w, "[%s,%s,%s]", alleleCA6146346, alleleCA321211, alleleCA321212)
	}))

	t.Run("no preference returns every allele", func(t *testing.T) {
		results, err := c.ResolveOne(context.Background(), "DBSNP:rs369602258")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(results), 2, "a tri-allelic rsid resolves to several alleles")
	})

	t.Run("preference filters to the matching allele", func(t *testing.T) {
		results, err := c.ResolveOne(context.Background(), "DBSNP:rs369602258-G")
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Contains(t, results[0].Synonyms, "ROBO_VARIANT:HG38|11|68032290|68032291|C|G")
		assert.Contains(t, results[0].Synonyms, "CAID:CA6146346")
	})

	t.Run("unmatched preference falls back to the unfiltered set", func(t *testing.T) {
		results, err := c.ResolveOne(context.Background(), "DBSNP:rs369602258-Z")
		require.NoError(t, err)
		assert.Len(t, results, 3, "never silently empty when the registry had data")
	})
}

func TestNotFoundIsEmptySuccess(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorType": "NoMatch", "description": "no allele found"}`, http.StatusNotFound)
	}))

	results, err := c.ResolveOne(context.Background(), "DBSNP:rs999999999999")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRegistryApplicationErrorNotRetried(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.Error(w, `{"errorType": "InternalServerError", "description": "boom"}`, http.StatusInternalServerError)
	}))

	results, err := c.ResolveOne(context.Background(), "DBSNP:rs671")
	require.NoError(t, err, "per-item registry errors are captured, not raised")
	require.Len(t, results, 1)
	require.False(t, results[0].OK())
	assert.Equal(t, generr.CodeRegistry, results[0].Err.Code)
	assert.Contains(t, results[0].Err.Message, "InternalServerError")
	assert.Equal(t, 1, requests, "structured registry errors are terminal")
}

func TestTransportErrorsRetried(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests < 3 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		fmt.Fprintf(w, "[%s]", alleleCA128085)
	}))

	results, err := c.ResolveOne(context.Background(), "DBSNP:rs671")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].OK(), "third attempt succeeds within the retry budget")
	assert.Equal(t, 3, requests)
}

func TestTransportErrorsExhaustRetryBudget(t *testing.T) {
	var requests int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))

	results, err := c.ResolveOne(context.Background(), "DBSNP:rs671")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].OK())
	assert.Equal(t, generr.CodeTransport, results[0].Err.Code)
	assert.Equal(t, 3, requests, "retry count is capped")
}

func TestParseSingleObjectResponse(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, alleleCA128085)
	}))

	results, err := c.ResolveOne(context.Background(), "CLINVARVARIANT:18390")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Synonyms, "CAID:CA128085")
}

func TestParseUnparseableItem(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"neither": "id", "nor": "error"}]`)
	}))

	results, err := c.ResolveOne(context.Background(), "DBSNP:rs671")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.False(t, results[0].OK(), "items missing the canonical identifier are never silently dropped")
	assert.Equal(t, generr.CodeParse, results[0].Err.Code)
}

func TestBatchable(t *testing.T) {
	assert.True(t, Batchable("CAID"))
	assert.True(t, Batchable("hgvs"))
	assert.True(t, Batchable("MYVARIANT_HG38"))
	assert.False(t, Batchable("DBSNP"))
	assert.False(t, Batchable("CLINVARVARIANT"))
	assert.False(t, Batchable("MYVARIANT_HG19"))
	assert.False(t, Batchable(""))
}
