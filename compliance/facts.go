package compliance

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/rules"
)

// Fact names.
const (
	FactArbitrationDate = "arbitrationDate"
	FactGrievanceDate   = "grievanceDate"
	FactTotalMembers    = "totalMembers"
	FactVotesCase       = "votesCase"
	FactSignedCards     = "signedCards"
	FactBargainingUnit  = "bargainingUnit"

	// FactVotesCast is accepted in place of votesCase.
	FactVotesCast = "votesCast"
)

var requiredFacts = map[string][]string{
	rules.CategoryArbitration:   {FactArbitrationDate, FactGrievanceDate},
	rules.CategoryStrikeVote:    {FactTotalMembers, FactVotesCase},
	rules.CategoryCertification: {FactSignedCards, FactBargainingUnit},
}

// Categories returns the categories the evaluator knows how to check.
func Categories() []string {
	return []string{rules.CategoryArbitration, rules.CategoryStrikeVote, rules.CategoryCertification}
}

// Supported reports whether category has a predicate.
func Supported(category string) bool {
	_, ok := requiredFacts[category]
	return ok
}

// Facts is the open map of case facts supplied by the caller.
type Facts map[string]any

func (f Facts) value(key string) (any, bool) {
	if v, ok := f[key]; ok && v != nil {
		return v, true
	}
	if key == FactVotesCase {
		if v, ok := f[FactVotesCast]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether key is present with a non-nil value.
func (f Facts) Has(key string) bool {
	_, ok := f.value(key)
	return ok
}

// Sufficient reports whether every fact the category needs is present.
func (f Facts) Sufficient(category string) bool {
	for _, key := range requiredFacts[category] {
		if !f.Has(key) {
			return false
		}
	}
	return true
}

// Date reads a date fact, normalized to its UTC calendar day.
func (f Facts) Date(key string) (civil.Date, error) {
	v, ok := f.value(key)
	if !ok {
		return civil.Date{}, fmt.Errorf("fact %s is missing", key)
	}
	switch d := v.(type) {
	case string:
		parsed, err := dates.Parse(d)
		if err != nil {
			return civil.Date{}, fmt.Errorf("fact %s: %w", key, err)
		}
		return parsed, nil
	case time.Time:
		return dates.Of(d), nil
	case civil.Date:
		return d, nil
	default:
		return civil.Date{}, fmt.Errorf("fact %s: unsupported date type %T", key, v)
	}
}

// Number reads a numeric fact.
func (f Facts) Number(key string) (decimal.Decimal, error) {
	v, ok := f.value(key)
	if !ok {
		return decimal.Zero, fmt.Errorf("fact %s is missing", key)
	}
	n, err := rules.ToDecimal(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fact %s: %w", key, err)
	}
	return n, nil
}
