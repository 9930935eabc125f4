package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

var (
	// ErrNotFound is returned when a rule ID does not exist.
	ErrNotFound = errors.New("rule not found")

	// ErrAlreadyExists is returned when adding a rule whose ID is taken.
	ErrAlreadyExists = errors.New("rule already exists")
)

// RuleStore manages rule persistence and retrieval.
type RuleStore interface {
	// Add a new rule
	Add(ctx context.Context, rule *Rule) error

	// Get a rule by ID
	Get(ctx context.Context, id string) (*Rule, error)

	// ListActive returns every active rule
	ListActive(ctx context.Context) ([]*Rule, error)

	// ListFor returns the active rules of the given jurisdictions and
	// category, most recent effective date first. An empty jurisdiction list
	// or category matches everything.
	ListFor(ctx context.Context, js []jurisdiction.Jurisdiction, category string) ([]*Rule, error)

	// Update an existing rule
	Update(ctx context.Context, rule *Rule) error

	// Delete a rule
	Delete(ctx context.Context, id string) error
}

// InMemoryRuleStore implements RuleStore using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryRuleStore struct {
	rules map[string]*Rule
	mu    sync.RWMutex
}

// NewInMemoryRuleStore creates a new in-memory rule store
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

// Add adds a new rule to the store and sets its timestamps.
func (s *InMemoryRuleStore) Add(_ context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, rule.ID)
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Get retrieves a rule by ID
func (s *InMemoryRuleStore) Get(_ context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rule.Clone(), nil
}

// ListActive returns all active rules in ListFor order.
func (s *InMemoryRuleStore) ListActive(ctx context.Context) ([]*Rule, error) {
	return s.ListFor(ctx, nil, "")
}

// ListFor returns matching active rules.
func (s *InMemoryRuleStore) ListFor(_ context.Context, js []jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[jurisdiction.Jurisdiction]bool, len(js))
	for _, j := range js {
		wanted[j] = true
	}

	var active []*Rule
	for _, rule := range s.rules {
		if !rule.Active {
			continue
		}
		if len(wanted) > 0 && !wanted[rule.Jurisdiction] {
			continue
		}
		if category != "" && rule.Category != category {
			continue
		}
		active = append(active, rule.Clone())
	}
	SortByEffectiveDate(active)
	return active, nil
}

// Update replaces an existing rule, preserving CreatedAt.
func (s *InMemoryRuleStore) Update(_ context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()
	s.rules[rule.ID] = rule.Clone()
	return nil
}

// Delete removes a rule from the store
func (s *InMemoryRuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(s.rules, id)
	return nil
}

// SortByEffectiveDate orders rules most recent effective date first. Ties are
// broken by ID so that the "first rule" of a lookup is stable.
func SortByEffectiveDate(rs []*Rule) {
	sort.SliceStable(rs, func(i, k int) bool {
		if rs[i].EffectiveDate != rs[k].EffectiveDate {
			return rs[i].EffectiveDate.After(rs[k].EffectiveDate)
		}
		return rs[i].ID < rs[k].ID
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
