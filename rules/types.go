package rules

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// Rule categories known to the evaluator and the deadline calculator.
const (
	CategoryArbitration   = "arbitration"
	CategoryStrikeVote    = "strike_vote"
	CategoryCertification = "certification"
	CategoryGrievance     = "grievance"
	CategoryStrikeNotice  = "strike_notice"
)

// Rule types.
const (
	TypeThreshold = "threshold"
	TypeDeadline  = "deadline"
)

// Parameter keys.
const (
	ParamDeadlineDays       = "deadline_days"
	ParamDeadlineType       = "deadline_type"
	ParamCanExtend          = "can_extend"
	ParamMaxExtensions      = "max_extensions"
	ParamVoteThreshold      = "vote_threshold_pct"
	ParamAutomaticThreshold = "automatic_threshold_pct"
	ParamQuorumThreshold    = "quorum_threshold_pct"
)

// Rule is a jurisdiction-specific statutory rule. Parameters are
// category-specific; use DecodeParams or DecodeDeadline to get a typed view.
type Rule struct {
	ID             string                    `json:"id"`
	Jurisdiction   jurisdiction.Jurisdiction `json:"jurisdiction"`
	RuleType       string                    `json:"ruleType"`
	RuleName       string                    `json:"ruleName"`
	Description    string                    `json:"description"`
	Category       string                    `json:"category"`
	LegalReference string                    `json:"legalReference"`
	Parameters     map[string]any            `json:"parameters"`
	EffectiveDate  civil.Date                `json:"effectiveDate"`
	Active         bool                      `json:"active"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
}

type plainRule Rule

// MarshalJSON writes the effective date as a UTC-midnight date-time.
func (r Rule) MarshalJSON() ([]byte, error) {
	w := struct {
		plainRule
		EffectiveDate string `json:"effectiveDate"`
	}{plainRule: plainRule(r)}
	if r.EffectiveDate.IsValid() {
		w.EffectiveDate = dates.Format(r.EffectiveDate)
	}
	return json.Marshal(w)
}

// UnmarshalJSON accepts a date-time or a plain date as the effective date.
func (r *Rule) UnmarshalJSON(data []byte) error {
	w := struct {
		*plainRule
		EffectiveDate string `json:"effectiveDate"`
	}{plainRule: (*plainRule)(r)}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.EffectiveDate = civil.Date{}
	if w.EffectiveDate != "" {
		d, err := dates.Parse(w.EffectiveDate)
		if err != nil {
			return fmt.Errorf("effectiveDate: %w", err)
		}
		r.EffectiveDate = d
	}
	return nil
}

// Clone returns a deep copy of r so callers can never mutate stored rules.
func (r *Rule) Clone() *Rule {
	if r == nil {
		return nil
	}
	c := *r
	c.Parameters = cloneValue(r.Parameters).(map[string]any)
	return &c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return map[string]any(nil)
		}
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// cloneAll copies a slice of rules.
func cloneAll(in []*Rule) []*Rule {
	out := make([]*Rule, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}
