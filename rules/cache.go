package rules

import (
	"context"
	"time"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// RulesCache provides an abstraction for caching rule lookups.
// This allows swapping between in-memory, Redis, or other caching implementations.
// A cache failure is never fatal: implementations report it as a miss.
type RulesCache interface {
	// Get retrieves cached rules for key, ok is false on a miss or expiry
	Get(ctx context.Context, key string) (rules []*Rule, ok bool)

	// Set stores rules under key
	Set(ctx context.Context, key string, rules []*Rule)

	// Invalidate drops every cached lookup, forcing a refresh on next Get
	Invalidate(ctx context.Context)
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Set to 0 for no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns sensible defaults for rule caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL: 0, // No TTL - only invalidate on mutations
	}
}

// LookupKey is the cache key of a (jurisdiction, category) lookup.
func LookupKey(j jurisdiction.Jurisdiction, category string) string {
	return string(j) + ":" + category
}
