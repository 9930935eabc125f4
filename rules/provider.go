package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// ErrInvalidRule wraps validation failures of added or updated rules.
var ErrInvalidRule = errors.New("rule validation failed")

// Provider serves rule lookups from a store through a cache and manages rule
// mutations. Every mutation invalidates the cache.
type Provider struct {
	store  RuleStore
	cache  RulesCache
	logger *slog.Logger
}

// NewProvider creates a provider. A nil cache uses an in-memory cache with the
// default config; a nil logger uses slog.Default().
func NewProvider(store RuleStore, cache RulesCache, logger *slog.Logger) *Provider {
	if cache == nil {
		cache = NewInMemoryRulesCache(DefaultCacheConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Rules implements Source. Lookups are served from the cache when possible.
func (p *Provider) Rules(ctx context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	key := LookupKey(j, category)
	if cached, ok := p.cache.Get(ctx, key); ok {
		return cached, nil
	}

	found, err := p.store.ListFor(ctx, []jurisdiction.Jurisdiction{j}, category)
	if err != nil {
		return nil, fmt.Errorf("failed to look up rules for %s/%s: %w", j, category, err)
	}

	p.cache.Set(ctx, key, found)
	return found, nil
}

// Compare returns the rules of a category for each requested jurisdiction.
// Every requested jurisdiction is present in the result, possibly empty.
func (p *Provider) Compare(ctx context.Context, js []jurisdiction.Jurisdiction, category string) (map[jurisdiction.Jurisdiction][]*Rule, error) {
	out := make(map[jurisdiction.Jurisdiction][]*Rule, len(js))
	for _, j := range js {
		rs, err := p.Rules(ctx, j, category)
		if err != nil {
			return nil, err
		}
		if rs == nil {
			rs = []*Rule{}
		}
		out[j] = rs
	}
	return out, nil
}

// Get returns a rule by ID.
func (p *Provider) Get(ctx context.Context, id string) (*Rule, error) {
	return p.store.Get(ctx, id)
}

// List returns every active rule.
func (p *Provider) List(ctx context.Context) ([]*Rule, error) {
	return p.store.ListActive(ctx)
}

// AddRule validates and stores a new rule. An empty ID is assigned a random one.
func (p *Provider) AddRule(ctx context.Context, r *Rule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := p.store.Add(ctx, r); err != nil {
		return err
	}

	p.cache.Invalidate(ctx)
	p.logger.InfoContext(ctx, "rule added", "rule_id", r.ID, "jurisdiction", r.Jurisdiction, "category", r.Category)
	return nil
}

// UpdateRule validates and replaces an existing rule.
func (p *Provider) UpdateRule(ctx context.Context, r *Rule) error {
	if err := ValidateRule(r); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := p.store.Update(ctx, r); err != nil {
		return err
	}

	p.cache.Invalidate(ctx)
	p.logger.InfoContext(ctx, "rule updated", "rule_id", r.ID)
	return nil
}

// DeleteRule removes a rule.
func (p *Provider) DeleteRule(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, id); err != nil {
		return err
	}

	p.cache.Invalidate(ctx)
	p.logger.InfoContext(ctx, "rule deleted", "rule_id", id)
	return nil
}

// Load upserts a batch of rules, typically a parsed catalog. All rules are
// validated before any is written.
func (p *Provider) Load(ctx context.Context, rs []*Rule) error {
	for _, r := range rs {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("%w: rule %s: %w", ErrInvalidRule, r.ID, err)
		}
	}

	for _, r := range rs {
		_, err := p.store.Get(ctx, r.ID)
		switch {
		case err == nil:
			err = p.store.Update(ctx, r.Clone())
		case isNotFound(err):
			err = p.store.Add(ctx, r.Clone())
		}
		if err != nil {
			return fmt.Errorf("failed to load rule %s: %w", r.ID, err)
		}
	}

	p.cache.Invalidate(ctx)
	p.logger.InfoContext(ctx, "rules loaded", "count", len(rs))
	return nil
}
