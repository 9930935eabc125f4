package compliance

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// checkNamespace seeds the name-based check IDs.
var checkNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("labourcompliance.compliance-check"))

var (
	errInvalidFacts = errors.New("invalid facts")
	hundred         = decimal.NewFromInt(100)
)

// verdict is the outcome of classifying a measurement.
type verdict string

const (
	verdictCompliant verdict = "compliant"
	verdictWarning   verdict = "warning"
	verdictViolation verdict = "violation"
)

// measurement is what a predicate compares. Values are converted to float64
// exactly once here, so both classifiers see identical inputs.
type measurement struct {
	category     string
	value        float64
	limit        float64
	vote         float64
	automatic    float64
	hasAutomatic bool

	// printed forms for messages
	valueText     string
	limitText     string
	voteText      string
	automaticText string
}

// measure derives the measurement of a category from its params and facts.
// Facts that are present but unusable yield errInvalidFacts.
func measure(params rules.Params, facts Facts) (measurement, error) {
	switch p := params.(type) {
	case rules.ArbitrationParams:
		grievance, err := facts.Date(FactGrievanceDate)
		if err != nil {
			return measurement{}, fmt.Errorf("%w: %v", errInvalidFacts, err)
		}
		arbitration, err := facts.Date(FactArbitrationDate)
		if err != nil {
			return measurement{}, fmt.Errorf("%w: %v", errInvalidFacts, err)
		}
		days := arbitration.DaysSince(grievance)
		if days < 0 {
			return measurement{}, fmt.Errorf("%w: arbitration date precedes grievance date", errInvalidFacts)
		}
		return measurement{
			category:  p.Category(),
			value:     float64(days),
			limit:     float64(p.DeadlineDays),
			valueText: strconv.Itoa(days),
			limitText: strconv.Itoa(p.DeadlineDays),
		}, nil

	case rules.StrikeVoteParams:
		turnout, err := percentage(facts, FactVotesCase, FactTotalMembers)
		if err != nil {
			return measurement{}, err
		}
		return measurement{
			category:  p.Category(),
			value:     turnout.InexactFloat64(),
			limit:     p.QuorumPct.InexactFloat64(),
			valueText: pctText(turnout),
			limitText: pctText(p.QuorumPct),
		}, nil

	case rules.CertificationParams:
		pct, err := percentage(facts, FactSignedCards, FactBargainingUnit)
		if err != nil {
			return measurement{}, err
		}
		m := measurement{
			category:     p.Category(),
			value:        pct.InexactFloat64(),
			vote:         p.VotePct.InexactFloat64(),
			hasAutomatic: p.HasAutomatic,
			valueText:    pctText(pct),
			voteText:     pctText(p.VotePct),
		}
		if p.HasAutomatic {
			m.automatic = p.AutomaticPct.InexactFloat64()
			m.automaticText = pctText(p.AutomaticPct)
		}
		return m, nil

	default:
		return measurement{}, fmt.Errorf("no measure for category %q", params.Category())
	}
}

// percentage computes numerator/denominator*100 exactly before rounding to
// the decimal package's division precision.
func percentage(facts Facts, numeratorKey, denominatorKey string) (decimal.Decimal, error) {
	num, err := facts.Number(numeratorKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errInvalidFacts, err)
	}
	den, err := facts.Number(denominatorKey)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", errInvalidFacts, err)
	}
	if !den.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", errInvalidFacts, denominatorKey)
	}
	if num.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", errInvalidFacts, numeratorKey)
	}
	return num.Mul(hundred).Div(den), nil
}

func pctText(d decimal.Decimal) string {
	return d.Round(2).String()
}

// classifyNative is the Go rendering of the three predicates.
func classifyNative(m measurement) (verdict, error) {
	switch m.category {
	case rules.CategoryArbitration:
		if m.value <= m.limit {
			return verdictCompliant, nil
		}
		return verdictViolation, nil
	case rules.CategoryStrikeVote:
		if m.value >= m.limit {
			return verdictCompliant, nil
		}
		return verdictViolation, nil
	case rules.CategoryCertification:
		if m.hasAutomatic && m.value >= m.automatic {
			return verdictCompliant, nil
		}
		if m.value >= m.vote {
			return verdictWarning, nil
		}
		return verdictViolation, nil
	default:
		return "", fmt.Errorf("no predicate for category %q", m.category)
	}
}

// checkID is stable for a given organisation, jurisdiction, category and rule.
func checkID(req Request, rule *rules.Rule) string {
	name := req.OrganizationID + "|" + string(rule.Jurisdiction) + "|" + rule.Category + "|" + rule.ID
	return uuid.NewSHA1(checkNamespace, []byte(name)).String()
}

// render turns a verdict into a check.
func render(req Request, rule *rules.Rule, m measurement, v verdict) (Check, error) {
	c := Check{
		ID:             checkID(req, rule),
		RuleName:       rule.RuleName,
		RuleCategory:   rule.Category,
		LegalReference: rule.LegalReference,
	}

	switch m.category {
	case rules.CategoryArbitration:
		switch v {
		case verdictCompliant:
			c.Status, c.Severity = StatusCompliant, SeverityLow
			c.Message = fmt.Sprintf("Referral to arbitration %s days after the grievance is within the %s-day limit",
				m.valueText, m.limitText)
		case verdictViolation:
			c.Status, c.Severity = StatusViolation, SeverityCritical
			c.Message = fmt.Sprintf("Referral to arbitration %s days after the grievance exceeds the %s-day limit",
				m.valueText, m.limitText)
			c.Recommendation = "Seek an extension of time from the other party or the board, or apply for expedited arbitration"
		default:
			return Check{}, fmt.Errorf("unexpected verdict %q for %s", v, m.category)
		}

	case rules.CategoryStrikeVote:
		switch v {
		case verdictCompliant:
			c.Status, c.Severity = StatusCompliant, SeverityLow
			c.Message = fmt.Sprintf("Strike vote turnout of %s%% meets the %s%% quorum", m.valueText, m.limitText)
		case verdictViolation:
			c.Status, c.Severity = StatusViolation, SeverityCritical
			c.Message = fmt.Sprintf("Strike vote turnout of %s%% is below the %s%% quorum", m.valueText, m.limitText)
			c.Recommendation = "Extend the voting period and increase member outreach before relying on the result"
		default:
			return Check{}, fmt.Errorf("unexpected verdict %q for %s", v, m.category)
		}

	case rules.CategoryCertification:
		switch v {
		case verdictCompliant:
			c.Status, c.Severity = StatusCompliant, SeverityLow
			c.Message = fmt.Sprintf("%s%% of the bargaining unit signed cards, meeting the %s%% threshold for automatic certification",
				m.valueText, m.automaticText)
		case verdictWarning:
			c.Status, c.Severity = StatusWarning, SeverityMedium
			if m.hasAutomatic {
				c.Message = fmt.Sprintf("%s%% of the bargaining unit signed cards, meeting the %s%% vote threshold but below the %s%% automatic threshold",
					m.valueText, m.voteText, m.automaticText)
			} else {
				c.Message = fmt.Sprintf("%s%% of the bargaining unit signed cards, meeting the %s%% threshold for a representation vote",
					m.valueText, m.voteText)
			}
			c.Recommendation = "Apply for certification and prepare for a representation vote"
		case verdictViolation:
			c.Status, c.Severity = StatusViolation, SeverityHigh
			c.Message = fmt.Sprintf("%s%% of the bargaining unit signed cards, below the %s%% required for a representation vote",
				m.valueText, m.voteText)
			c.Recommendation = "Continue the card campaign before applying for certification"
		default:
			return Check{}, fmt.Errorf("unexpected verdict %q for %s", v, m.category)
		}

	default:
		return Check{}, fmt.Errorf("no renderer for category %q", m.category)
	}
	return c, nil
}

// classifier maps a measurement to a verdict.
type classifier func(measurement) (verdict, error)

// evaluate is shared by the Evaluator and the Fallback. rulesFor returns the
// provider-ordered rules of a category for the request's jurisdiction.
func evaluate(req Request, rulesFor func(category string) []*rules.Rule, classify classifier, source Source) Report {
	rep := Report{Checks: []Check{}, Source: source}
	seen := make(map[string]bool, len(req.Checks))

	for _, category := range req.Checks {
		if seen[category] {
			continue
		}
		seen[category] = true

		if !Supported(category) {
			rep.Skipped = append(rep.Skipped, Skip{Category: category, Reason: SkipUnrecognizedCategory})
			continue
		}
		if !req.Facts.Sufficient(category) {
			rep.Skipped = append(rep.Skipped, Skip{Category: category, Reason: SkipInsufficientFacts})
			continue
		}

		rule := rules.Governing(rulesFor(category))
		if rule == nil {
			rep.Skipped = append(rep.Skipped, Skip{Category: category, Reason: SkipNoRule})
			continue
		}

		params, err := rules.DecodeParams(rule)
		if err != nil {
			rep.Skipped = append(rep.Skipped, Skip{Category: category, Reason: SkipInvalidRule})
			continue
		}

		m, err := measure(params, req.Facts)
		if errors.Is(err, errInvalidFacts) {
			rep.Skipped = append(rep.Skipped, Skip{Category: category, Reason: SkipInvalidFacts})
			continue
		}
		if err != nil {
			return failedReport(source, fmt.Errorf("%w: %v", ErrComputation, err))
		}

		v, err := classify(m)
		if err != nil {
			return failedReport(source, fmt.Errorf("%w: %v", ErrComputation, err))
		}

		check, err := render(req, rule, m, v)
		if err != nil {
			return failedReport(source, fmt.Errorf("%w: %v", ErrComputation, err))
		}
		rep.Checks = append(rep.Checks, check)
	}
	return rep
}

// normalizeJurisdiction accepts aliases such as "fed"; unknown codes are kept
// as given and simply match no rule.
func normalizeJurisdiction(code string) jurisdiction.Jurisdiction {
	if j, err := jurisdiction.Parse(code); err == nil {
		return j
	}
	return jurisdiction.Jurisdiction(code)
}
