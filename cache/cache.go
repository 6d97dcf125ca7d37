package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RobokopU24/robokop-genetics/graph"
)

const normalizationKeyInfix = "normalize-"

// Options configures the cache connection.
type Options struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379/0").
	URL string

	// KeyPrefix is prepended to every normalization key. Used to isolate
	// test runs sharing one store.
	KeyPrefix string

	// ConnectTimeout is the maximum time to wait for connection establishment.
	ConnectTimeout time.Duration

	// ReadTimeout is the maximum time to wait for read operations.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait for write operations.
	WriteTimeout time.Duration
}

// Client memoizes normalization and annotator results in Redis.
type Client struct {
	rdb       *redis.Client
	keyPrefix string
	logger    *slog.Logger
}

// New creates a cache client. It never fails: when the URL cannot be
// parsed or the store cannot be reached, the returned client is inert and
// every operation degrades to a miss. The normalizer works uncached
// either way, just slower.
func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{keyPrefix: opts.KeyPrefix, logger: logger}

	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		logger.Error("cache disabled: invalid redis URL", "url", opts.URL, "error", err)
		return c
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	rdb := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("cache disabled: redis unreachable", "url", opts.URL, "error", err)
		_ = rdb.Close()
		return c
	}

	c.rdb = rdb
	logger.Info("cache connected", "url", opts.URL, "key_prefix", opts.KeyPrefix)
	return c
}

// Enabled reports whether the client has a live store behind it.
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Close releases the underlying connection. Safe on inert and nil clients.
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) normalizationKey(variantID string) string {
	return c.keyPrefix + normalizationKeyInfix + variantID
}

// GetNormalization returns the cached candidate list for a variant id, or
// nil on a miss. An empty non-nil list is a valid cached "looked up,
// found nothing" result.
func (c *Client) GetNormalization(ctx context.Context, variantID string) []graph.Normalization {
	if !c.Enabled() {
		return nil
	}
	data, err := c.rdb.Get(ctx, c.normalizationKey(variantID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", "variant_id", variantID, "error", err)
		}
		return nil
	}
	normalizations, err := decodeNormalizations(data)
	if err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss", "variant_id", variantID, "error", err)
		return nil
	}
	return normalizations
}

// SetNormalization stores the candidate list for a variant id. Write
// failures are logged and absorbed.
func (c *Client) SetNormalization(ctx context.Context, variantID string, normalizations []graph.Normalization) {
	if !c.Enabled() {
		return
	}
	data, err := encodeNormalizations(normalizations)
	if err != nil {
		c.logger.Warn("cache encode failed", "variant_id", variantID, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.normalizationKey(variantID), data, 0).Err(); err != nil {
		c.logger.Warn("cache write failed", "variant_id", variantID, "error", err)
	}
}

// GetBatchNormalization fetches candidate lists for the given ids in one
// pipelined round trip. The result is order-preserving with one slot per
// input; misses are nil slots.
func (c *Client) GetBatchNormalization(ctx context.Context, variantIDs []string) [][]graph.Normalization {
	results := make([][]graph.Normalization, len(variantIDs))
	if !c.Enabled() || len(variantIDs) == 0 {
		return results
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(variantIDs))
	for i, id := range variantIDs {
		cmds[i] = pipe.Get(ctx, c.normalizationKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		c.logger.Warn("cache batch read failed", "count", len(variantIDs), "error", err)
		return results
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		normalizations, err := decodeNormalizations(data)
		if err != nil {
			c.logger.Warn("cache entry undecodable, treating as miss", "variant_id", variantIDs[i], "error", err)
			continue
		}
		results[i] = normalizations
	}
	return results
}

// SetBatchNormalization stores candidate lists for several variant ids in
// one pipelined round trip.
func (c *Client) SetBatchNormalization(ctx context.Context, batch map[string][]graph.Normalization) {
	if !c.Enabled() || len(batch) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for id, normalizations := range batch {
		data, err := encodeNormalizations(normalizations)
		if err != nil {
			c.logger.Warn("cache encode failed", "variant_id", id, "error", err)
			continue
		}
		pipe.Set(ctx, c.normalizationKey(id), data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache batch write failed", "count", len(batch), "error", err)
	}
}

// GetServiceResults fetches cached annotator output for the given node
// ids in one pipelined round trip, keyed <serviceKey>-<nodeID>. Misses
// are nil slots; a cached empty result decodes to an empty non-nil slice.
func (c *Client) GetServiceResults(ctx context.Context, serviceKey string, nodeIDs []string) [][]graph.Relation {
	results := make([][]graph.Relation, len(nodeIDs))
	if !c.Enabled() || len(nodeIDs) == 0 {
		return results
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(nodeIDs))
	for i, id := range nodeIDs {
		cmds[i] = pipe.Get(ctx, serviceKey+"-"+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		c.logger.Warn("cache batch read failed", "service_key", serviceKey, "count", len(nodeIDs), "error", err)
		return results
	}

	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		relations, err := decodeRelations(data)
		if err != nil {
			c.logger.Warn("cache entry undecodable, treating as miss", "node_id", nodeIDs[i], "error", err)
			continue
		}
		results[i] = relations
	}
	return results
}

// SetServiceResults stores annotator output per node id in one pipelined
// round trip.
func (c *Client) SetServiceResults(ctx context.Context, serviceKey string, results map[string][]graph.Relation) {
	if !c.Enabled() || len(results) == 0 {
		return
	}

	pipe := c.rdb.Pipeline()
	for id, relations := range results {
		data, err := encodeRelations(relations)
		if err != nil {
			c.logger.Warn("cache encode failed", "node_id", id, "error", err)
			continue
		}
		pipe.Set(ctx, serviceKey+"-"+id, data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("cache batch write failed", "service_key", serviceKey, "count", len(results), "error", err)
	}
}

// PurgePrefix deletes every stored key beginning with prefix. Intended
// for test isolation only.
func (c *Client) PurgePrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	keys, err := c.rdb.Keys(ctx, prefix+"*").Result()
	if err != nil {
		c.logger.Warn("cache purge scan failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache purge failed", "prefix", prefix, "error", err)
	}
}
