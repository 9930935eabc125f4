package rules

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// TableEffectiveDate is the date the built-in threshold table was last
// reviewed against the statutes.
var TableEffectiveDate = civil.Date{Year: 2024, Month: time.January, Day: 1}

// TableSource synthesizes rules from the threshold table. It never fails and
// returns nothing for unknown jurisdictions or categories.
type TableSource struct {
	Table jurisdiction.Table
}

// NewTableSource returns a source over the built-in table.
func NewTableSource() TableSource {
	return TableSource{Table: jurisdiction.DefaultTable()}
}

// Rules implements Source.
func (t TableSource) Rules(_ context.Context, j jurisdiction.Jurisdiction, category string) ([]*Rule, error) {
	th, ok := t.Table.Lookup(j)
	if !ok {
		return nil, nil
	}
	r := t.rule(j, th, category)
	if r == nil {
		return nil, nil
	}
	return []*Rule{r}, nil
}

func (t TableSource) rule(j jurisdiction.Jurisdiction, th jurisdiction.Thresholds, category string) *Rule {
	r := &Rule{
		ID:             "table-" + strings.ToLower(string(j)) + "-" + category,
		Jurisdiction:   j,
		Category:       category,
		LegalReference: th.Reference(category),
		EffectiveDate:  TableEffectiveDate,
		Active:         true,
		Parameters:     map[string]any{},
	}

	switch category {
	case CategoryCertification:
		r.RuleType = TypeThreshold
		r.RuleName = "Certification Card Threshold"
		r.Description = "Share of the bargaining unit that must sign membership cards"
		r.Parameters[ParamVoteThreshold] = th.Certification.VotePct
		if th.Certification.HasAutomatic {
			r.Parameters[ParamAutomaticThreshold] = th.Certification.AutomaticPct
		}
		return r

	case CategoryStrikeVote:
		r.RuleType = TypeThreshold
		r.RuleName = "Strike Vote Quorum"
		r.Description = "Minimum turnout for a valid strike vote"
		r.Parameters[ParamQuorumThreshold] = th.QuorumPct
		return r
	}

	d, ok := th.Deadline(category)
	if !ok {
		return nil
	}
	r.RuleType = TypeDeadline
	r.RuleName = d.RuleName
	r.Description = d.RuleName + " deadline"
	r.Parameters[ParamDeadlineDays] = d.Days
	r.Parameters[ParamDeadlineType] = d.Type
	r.Parameters[ParamCanExtend] = d.CanExtend
	r.Parameters[ParamMaxExtensions] = d.MaxExtensions
	return r
}
