package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "labourcompliance:rules"

// RedisRulesCache stores rule lookups in Redis so that several provider
// replicas share one cache. Invalidation bumps a generation counter instead
// of scanning keys; stale generations expire through the TTL.
type RedisRulesCache struct {
	client *redis.Client
	config CacheConfig
	prefix string
	logger *slog.Logger
}

// NewRedisRulesCache creates a Redis-backed cache. A nil logger uses slog.Default().
func NewRedisRulesCache(client *redis.Client, config CacheConfig, logger *slog.Logger) *RedisRulesCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRulesCache{
		client: client,
		config: config,
		prefix: defaultRedisPrefix,
		logger: logger,
	}
}

func (c *RedisRulesCache) generationKey() string {
	return c.prefix + ":generation"
}

func (c *RedisRulesCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisRulesCache) dataKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

// Get retrieves cached rules. Redis errors are logged and reported as a miss.
func (c *RedisRulesCache) Get(ctx context.Context, key string) ([]*Rule, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "rules cache generation lookup failed", "error", err)
		return nil, false
	}

	payload, err := c.client.Get(ctx, c.dataKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "rules cache read failed", "key", key, "error", err)
		return nil, false
	}

	var rules []*Rule
	if err := json.Unmarshal(payload, &rules); err != nil {
		c.logger.WarnContext(ctx, "rules cache entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return rules, true
}

// Set stores rules under the current generation.
func (c *RedisRulesCache) Set(ctx context.Context, key string, rules []*Rule) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "rules cache generation lookup failed", "error", err)
		return
	}

	payload, err := json.Marshal(rules)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode rules for cache", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, c.dataKey(gen, key), payload, c.config.TTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "rules cache write failed", "key", key, "error", err)
	}
}

// Invalidate moves the cache to a new generation.
func (c *RedisRulesCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.ErrorContext(ctx, "rules cache invalidation failed", "error", err)
	}
}
