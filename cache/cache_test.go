package cache

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobokopU24/robokop-genetics/graph"
)

func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := New(Options{
		URL:            fmt.Sprintf("redis://%s", mr.Addr()),
		KeyPrefix:      "robokop-genetics-testing-key-",
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
	}, slog.Default())
	require.True(t, c.Enabled())

	t.Cleanup(func() {
		_ = c.Close()
	})

	return c, mr
}

func mockNormalizations() map[string][]graph.Normalization {
	return map[string][]graph.Normalization{
		"TESTINGCURIE:10": {{
			ID:       "TESTINGCURIE:10",
			Name:     "TESTING NAME 1",
			Synonyms: []string{"TESTINGCURIE:10", "TESTINGCURIE:11", "TESTINGCURIE:12"},
		}},
		"TESTINGCURIE:20": {{
			ID:       "TESTINGCURIE:21",
			Name:     "TESTING NAME 2",
			Synonyms: []string{"TESTINGCURIE:20", "TESTINGCURIE:21", "TESTINGCURIE:22"},
		}},
		"TESTINGCURIE:30": {
			{
				ID:       "TESTINGCURIE:33",
				Name:     "TESTING NAME 3",
				Synonyms: []string{"TESTINGCURIE:30", "TESTINGCURIE:31", "TESTINGCURIE:33"},
			},
			{
				ID:       "TESTINGCURIE:34",
				Name:     "TESTING NAME 3B",
				Synonyms: []string{"TESTINGCURIE:30", "TESTINGCURIE:34"},
			},
		},
	}
}

func TestNormalizationRoundTrip(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	assert.Nil(t, c.GetNormalization(ctx, "TESTINGCURIE:10"), "unwritten key is a miss")

	expected := mockNormalizations()["TESTINGCURIE:10"]
	c.SetNormalization(ctx, "TESTINGCURIE:10", expected)
	assert.Equal(t, expected, c.GetNormalization(ctx, "TESTINGCURIE:10"))
}

func TestNormalizationKeyLayout(t *testing.T) {
	c, mr := setupTestClient(t)
	ctx := context.Background()

	c.SetNormalization(ctx, "TESTINGCURIE:10", mockNormalizations()["TESTINGCURIE:10"])

	data, err := mr.Get("robokop-genetics-testing-key-normalize-TESTINGCURIE:10")
	require.NoError(t, err)
	assert.JSONEq(t, `[["TESTINGCURIE:10","TESTING NAME 1",["TESTINGCURIE:10","TESTINGCURIE:11","TESTINGCURIE:12"]]]`, data)
}

// Values written by earlier releases hold a single bare triple.
func TestNormalizationLegacyValueShape(t *testing.T) {
	c, mr := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(
		"robokop-genetics-testing-key-normalize-CAID:CA128085",
		`["CAID:CA128085","rs671",["CAID:CA128085","DBSNP:rs671"]]`,
	))

	got := c.GetNormalization(ctx, "CAID:CA128085")
	require.Len(t, got, 1)
	assert.Equal(t, "CAID:CA128085", got[0].ID)
	assert.Equal(t, "rs671", got[0].Name)
	assert.Equal(t, []string{"CAID:CA128085", "DBSNP:rs671"}, got[0].Synonyms)
}

// An empty candidate list is a valid result, distinct from a miss.
func TestNormalizationEmptyResult(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	c.SetNormalization(ctx, "HGVS:bogus", []graph.Normalization{})
	got := c.GetNormalization(ctx, "HGVS:bogus")
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBatchNormalization(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	batch := mockNormalizations()
	c.SetBatchNormalization(ctx, batch)

	ids := []string{"TESTINGCURIE:10", "TESTINGCURIE:99", "TESTINGCURIE:30", "TESTINGCURIE:20"}
	results := c.GetBatchNormalization(ctx, ids)
	require.Len(t, results, len(ids), "one slot per input id")

	assert.Equal(t, batch["TESTINGCURIE:10"], results[0])
	assert.Nil(t, results[1], "unknown id is a nil slot")
	assert.Equal(t, batch["TESTINGCURIE:30"], results[2], "multi-allelic candidate lists survive the round trip")
	assert.Equal(t, batch["TESTINGCURIE:20"], results[3])

	for id, expected := range batch {
		assert.Equal(t, expected, c.GetNormalization(ctx, id))
	}
}

func TestServiceResultsRoundTrip(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	const serviceKey = "Ensembl_sequence_variant_to_gene"
	nodeID := "CAID:CA279509"

	edge := graph.NewEdge(nodeID, "ENSEMBL:ENSG00000108384", "ensembl.sequence_variant_to_gene",
		"ROBO_VARIANT:HG38|17|58206171|58206172|G|A", "GAMMA:0000102", "nearby_variant_of", time.Now().Unix())
	edge.Properties["distance"] = 486402
	gene := &graph.Node{ID: "ENSEMBL:ENSG00000108384", Type: graph.TypeGene, Name: "RAD51C"}

	c.SetServiceResults(ctx, serviceKey, map[string][]graph.Relation{
		nodeID: {{Edge: edge, Node: gene}},
	})

	results := c.GetServiceResults(ctx, serviceKey, []string{nodeID, "CAID:CA999999"})
	require.Len(t, results, 2)
	assert.Nil(t, results[1])

	require.Len(t, results[0], 1)
	got := results[0][0]
	assert.Equal(t, "ENSEMBL:ENSG00000108384", got.Node.ID)
	assert.Equal(t, "RAD51C", got.Node.Name)
	assert.Equal(t, graph.TypeGene, got.Node.Type)
	assert.Equal(t, nodeID, got.Edge.SourceID)
	assert.Equal(t, "nearby_variant_of", got.Edge.PredicateLabel)
	assert.Equal(t, 486402, got.Edge.Properties["distance"], "distance decodes back to an int")
}

func TestServiceResultsCachedEmpty(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	c.SetServiceResults(ctx, "MyVariant_sequence_variant_to_gene", map[string][]graph.Relation{
		"CAID:CA1": nil,
	})

	results := c.GetServiceResults(ctx, "MyVariant_sequence_variant_to_gene", []string{"CAID:CA1"})
	require.Len(t, results, 1)
	require.NotNil(t, results[0], "a cached empty result is not a miss")
	assert.Empty(t, results[0])
}

func TestPurgePrefix(t *testing.T) {
	c, mr := setupTestClient(t)
	ctx := context.Background()

	c.SetBatchNormalization(ctx, mockNormalizations())
	require.NoError(t, mr.Set("unrelated-key", "keep me"))

	c.PurgePrefix(ctx, "robokop-genetics-testing-key-")

	for id := range mockNormalizations() {
		assert.Nil(t, c.GetNormalization(ctx, id))
	}
	kept, err := mr.Get("unrelated-key")
	require.NoError(t, err)
	assert.Equal(t, "keep me", kept)
}

// An unreachable store yields an inert client, not a construction error.
func TestInertClient(t *testing.T) {
	c := New(Options{
		URL:            "redis://localhost:1",
		ConnectTimeout: 100 * time.Millisecond,
	}, slog.Default())
	require.NotNil(t, c)
	assert.False(t, c.Enabled())

	ctx := context.Background()
	c.SetNormalization(ctx, "CAID:CA1", mockNormalizations()["TESTINGCURIE:10"])
	assert.Nil(t, c.GetNormalization(ctx, "CAID:CA1"))

	results := c.GetBatchNormalization(ctx, []string{"CAID:CA1", "CAID:CA2"})
	require.Len(t, results, 2)
	assert.Nil(t, results[0])
	assert.Nil(t, results[1])

	assert.NoError(t, c.Close())
}

func TestInvalidURLYieldsInertClient(t *testing.T) {
	c := New(Options{URL: "invalid://url"}, slog.Default())
	require.NotNil(t, c)
	assert.False(t, c.Enabled())
}

// A nil client is the same code path as an inert one.
func TestNilClient(t *testing.T) {
	var c *Client
	ctx := context.Background()

	assert.False(t, c.Enabled())
	assert.Nil(t, c.GetNormalization(ctx, "CAID:CA1"))
	c.SetNormalization(ctx, "CAID:CA1", nil)
	assert.Len(t, c.GetBatchNormalization(ctx, []string{"a", "b"}), 2)
	c.PurgePrefix(ctx, "x")
	assert.NoError(t, c.Close())
}
