package rules

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// TestInMemoryRulesCacheGetSet verifies basic hit/miss behaviour
func TestInMemoryRulesCacheGetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryRulesCache(DefaultCacheConfig())
	key := LookupKey(jurisdiction.Ontario, CategoryCertification)

	if _, ok := cache.Get(ctx, key); ok {
		t.Fatal("empty cache should miss")
	}

	cache.Set(ctx, key, []*Rule{testRule("on-cert", jurisdiction.Ontario, CategoryCertification, day2020)})

	got, ok := cache.Get(ctx, key)
	if !ok || len(got) != 1 || got[0].ID != "on-cert" {
		t.Fatalf("Get() = %v, %v; want the cached rule", got, ok)
	}

	// Returned rules are copies.
	got[0].RuleName = "mutated"
	again, _ := cache.Get(ctx, key)
	if again[0].RuleName == "mutated" {
		t.Error("cache returned shared state")
	}
}

// An empty lookup result is cached too, distinct from a miss.
func TestInMemoryRulesCacheEmptyResult(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	cache.Set(ctx, "QC:certification", nil)
	got, ok := cache.Get(ctx, "QC:certification")
	if !ok || len(got) != 0 {
		t.Errorf("Get() = %v, %v; want empty hit", got, ok)
	}
}

// TestInMemoryRulesCacheTTL verifies expiry with an injected clock
func TestInMemoryRulesCacheTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryRulesCache(CacheConfig{TTL: time.Minute})

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "k", []*Rule{testRule("r", jurisdiction.Federal, CategoryCertification, day2020)})

	now = now.Add(59 * time.Second)
	if _, ok := cache.Get(ctx, "k"); !ok {
		t.Error("entry expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("entry should have expired")
	}
}

// TestInMemoryRulesCacheInvalidate verifies Invalidate drops all keys
func TestInMemoryRulesCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	cache.Set(ctx, "a", nil)
	cache.Set(ctx, "b", nil)
	cache.Invalidate(ctx)

	if cache.Len() != 0 {
		t.Errorf("Len() = %d after Invalidate, want 0", cache.Len())
	}
}

// An unreachable Redis degrades to cache misses instead of failing lookups.
func TestRedisRulesCacheUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewRedisRulesCache(client, DefaultCacheConfig(), nil)
	ctx := context.Background()

	cache.Set(ctx, "ON:certification", []*Rule{testRule("r", jurisdiction.Ontario, CategoryCertification, day2020)})
	if _, ok := cache.Get(ctx, "ON:certification"); ok {
		t.Error("Get() should miss when Redis is unreachable")
	}
	cache.Invalidate(ctx)
}

func TestRulesCacheImplementations(t *testing.T) {
	var _ RulesCache = (*InMemoryRulesCache)(nil)
	var _ RulesCache = (*RedisRulesCache)(nil)
}
