package rules

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// Source supplies the rules of one (jurisdiction, category) pair, most
// recent effective date first. The first rule already in effect is the
// governing one.
type Source interface {
	Rules(ctx context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error)

// Rules implements Source.
func (f SourceFunc) Rules(ctx context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	return f(ctx, j, category)
}

// StaticSource serves a fixed rule set. It is what the operator CLI uses
// with a local catalog, and what tests use to pin rules.
type StaticSource []*Rule

// Rules implements Source.
func (s StaticSource) Rules(_ context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	var out []*Rule
	for _, r := range s {
		if r.Jurisdiction == j && r.Category == category {
			out = append(out, r.Clone())
		}
	}
	SortByEffectiveDate(out)
	return out, nil
}

// Governing returns the first rule of a lookup already in effect today, or
// nil.
func Governing(rs []*Rule) *Rule {
	return GoverningOn(rs, dates.Of(time.Now()))
}

// GoverningOn returns the first rule of a lookup whose effective date is on
// or before day. Amendments recorded ahead of time are skipped until then.
func GoverningOn(rs []*Rule, day civil.Date) *Rule {
	for _, r := range rs {
		if r != nil && !r.EffectiveDate.After(day) {
			return r
		}
	}
	return nil
}
