package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

func testRule(id string, j jurisdiction.Jurisdiction, category string, effective civil.Date) *Rule {
	return &Rule{
		ID:             id,
		Jurisdiction:   j,
		RuleType:       TypeThreshold,
		RuleName:       "Certification Card Threshold",
		Category:       category,
		LegalReference: "s. 8",
		Parameters:     map[string]any{ParamVoteThreshold: 40.0, ParamAutomaticThreshold: 55.0},
		EffectiveDate:  effective,
		Active:         true,
	}
}

var (
	day2020 = civil.Date{Year: 2020, Month: time.January, Day: 1}
	day2023 = civil.Date{Year: 2023, Month: time.June, Day: 1}
)

// TestRuleStoreInterfaceExists checks at compile time that both stores implement RuleStore
func TestRuleStoreInterfaceExists(t *testing.T) {
	var _ RuleStore = (*InMemoryRuleStore)(nil)
	var _ RuleStore = (*PostgresRuleStore)(nil)
}

// TestInMemoryRuleStoreAdd verifies basic Add functionality
func TestInMemoryRuleStoreAdd(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	rule := testRule("on-cert", jurisdiction.Ontario, CategoryCertification, day2020)
	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	retrieved, err := store.Get(ctx, "on-cert")
	if err != nil {
		t.Fatalf("Get() failed after Add(): %v", err)
	}
	if retrieved.RuleName != rule.RuleName {
		t.Errorf("Retrieved rule RuleName = %s, want %s", retrieved.RuleName, rule.RuleName)
	}
	if retrieved.CreatedAt.IsZero() || !retrieved.CreatedAt.Equal(retrieved.UpdatedAt) {
		t.Errorf("Add() should set CreatedAt == UpdatedAt, got %v / %v", retrieved.CreatedAt, retrieved.UpdatedAt)
	}
}

// TestInMemoryRuleStoreAddDuplicate verifies duplicate IDs return ErrAlreadyExists
func TestInMemoryRuleStoreAddDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	first := testRule("dup", jurisdiction.Ontario, CategoryCertification, day2020)
	second := testRule("dup", jurisdiction.Ontario, CategoryCertification, day2020)
	second.RuleName = "Second Rule"

	if err := store.Add(ctx, first); err != nil {
		t.Fatalf("First Add() should succeed: %v", err)
	}
	err := store.Add(ctx, second)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("Add() with duplicate ID = %v, want ErrAlreadyExists", err)
	}

	retrieved, _ := store.Get(ctx, "dup")
	if retrieved.RuleName != first.RuleName {
		t.Errorf("Rule should not have been overwritten, RuleName = %s", retrieved.RuleName)
	}
}

// TestInMemoryRuleStoreGetNotFound verifies missing IDs return ErrNotFound
func TestInMemoryRuleStoreGetNotFound(t *testing.T) {
	_, err := NewInMemoryRuleStore().Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() = %v, want ErrNotFound", err)
	}
}

// Stored rules must not change when the caller mutates its copy.
func TestInMemoryRuleStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	rule := testRule("iso", jurisdiction.Federal, CategoryCertification, day2020)
	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	rule.Parameters[ParamVoteThreshold] = 99.0

	got, _ := store.Get(ctx, "iso")
	if got.Parameters[ParamVoteThreshold] != 40.0 {
		t.Errorf("stored parameter changed to %v", got.Parameters[ParamVoteThreshold])
	}

	got.Parameters[ParamVoteThreshold] = 12.0
	again, _ := store.Get(ctx, "iso")
	if again.Parameters[ParamVoteThreshold] != 40.0 {
		t.Errorf("Get() returned shared state: %v", again.Parameters[ParamVoteThreshold])
	}
}

// TestInMemoryRuleStoreUpdate verifies Update preserves CreatedAt
func TestInMemoryRuleStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	rule := testRule("upd", jurisdiction.Ontario, CategoryCertification, day2020)
	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	created := rule.CreatedAt

	time.Sleep(5 * time.Millisecond)

	changed := testRule("upd", jurisdiction.Ontario, CategoryCertification, day2023)
	changed.RuleName = "Updated"
	if err := store.Update(ctx, changed); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, _ := store.Get(ctx, "upd")
	if got.RuleName != "Updated" {
		t.Errorf("RuleName = %s, want Updated", got.RuleName)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed from %v to %v", created, got.CreatedAt)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt %v should be after %v", got.UpdatedAt, created)
	}

	missing := testRule("nope", jurisdiction.Ontario, CategoryCertification, day2020)
	if err := store.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() of missing rule = %v, want ErrNotFound", err)
	}
}

// TestInMemoryRuleStoreListFor verifies filtering and ordering
func TestInMemoryRuleStoreListFor(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	inactive := testRule("on-cert-inactive", jurisdiction.Ontario, CategoryCertification, day2023)
	inactive.Active = false

	for _, r := range []*Rule{
		testRule("on-cert-old", jurisdiction.Ontario, CategoryCertification, day2020),
		testRule("on-cert-new", jurisdiction.Ontario, CategoryCertification, day2023),
		testRule("bc-cert", jurisdiction.BritishColumbia, CategoryCertification, day2020),
		testRule("on-vote", jurisdiction.Ontario, CategoryStrikeVote, day2020),
		inactive,
	} {
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add(%s) failed: %v", r.ID, err)
		}
	}

	testCases := []struct {
		name     string
		js       []jurisdiction.Jurisdiction
		category string
		want     []string
	}{
		{"one jurisdiction", []jurisdiction.Jurisdiction{jurisdiction.Ontario}, CategoryCertification, []string{"on-cert-new", "on-cert-old"}},
		{"two jurisdictions", []jurisdiction.Jurisdiction{jurisdiction.Ontario, jurisdiction.BritishColumbia}, CategoryCertification, []string{"on-cert-new", "bc-cert", "on-cert-old"}},
		{"no match", []jurisdiction.Jurisdiction{jurisdiction.Quebec}, CategoryCertification, nil},
		{"all", nil, "", []string{"on-cert-new", "bc-cert", "on-cert-old", "on-vote"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.ListFor(ctx, tc.js, tc.category)
			if err != nil {
				t.Fatalf("ListFor() failed: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("ListFor() returned %d rules, want %d", len(got), len(tc.want))
			}
			for i, r := range got {
				if r.ID != tc.want[i] {
					t.Errorf("rule[%d] = %s, want %s", i, r.ID, tc.want[i])
				}
			}
		})
	}
}

// TestInMemoryRuleStoreDelete verifies Delete and its not-found error
func TestInMemoryRuleStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	if err := store.Add(ctx, testRule("del", jurisdiction.Ontario, CategoryCertification, day2020)); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := store.Delete(ctx, "del"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get(ctx, "del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete() = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

// TestInMemoryRuleStoreConcurrency exercises concurrent readers and writers
func TestInMemoryRuleStoreConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r := testRule(string(rune('a'+i%26))+string(rune('a'+i/26)), jurisdiction.Ontario, CategoryCertification, day2020)
			_ = store.Add(ctx, r)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.ListFor(ctx, []jurisdiction.Jurisdiction{jurisdiction.Ontario}, CategoryCertification)
		}()
	}
	wg.Wait()

	all, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() failed: %v", err)
	}
	if len(all) != 50 {
		t.Errorf("ListActive() returned %d rules, want 50", len(all))
	}
}
