package rules

import (
	"context"
	"sync"
	"time"
)

type cacheEntry struct {
	rules    []*Rule
	cachedAt time.Time
}

// InMemoryRulesCache is a simple in-memory implementation of RulesCache
// Thread-safe for concurrent access
type InMemoryRulesCache struct {
	entries map[string]cacheEntry
	config  CacheConfig
	mu      sync.RWMutex
	now     func() time.Time
}

// NewInMemoryRulesCache creates a new in-memory rules cache
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		entries: make(map[string]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

// Get retrieves cached rules.
// Returns ok=false if the key is missing or expired.
func (c *InMemoryRulesCache) Get(_ context.Context, key string) ([]*Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.config.TTL > 0 && c.now().Sub(entry.cachedAt) > c.config.TTL {
		return nil, false
	}

	// Return copy to prevent external modifications
	return cloneAll(entry.rules), true
}

// Set stores rules in cache
func (c *InMemoryRulesCache) Set(_ context.Context, key string, rules []*Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{rules: cloneAll(rules), cachedAt: c.now()}
}

// Invalidate clears the cache
func (c *InMemoryRulesCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached lookups, expired ones included.
func (c *InMemoryRulesCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
