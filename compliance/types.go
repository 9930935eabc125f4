// Package compliance evaluates case facts against jurisdiction rules.
//
// The Evaluator classifies with CEL programs and is what the rule service
// runs; the Fallback classifies natively and runs locally when the service is
// unreachable. Both share fact parsing, measures and message rendering, so for
// the same facts and rules they produce identical checks.
package compliance

import (
	"errors"
)

// Status of a compliance check.
type Status string

const (
	StatusCompliant Status = "compliant"
	StatusWarning   Status = "warning"
	StatusViolation Status = "violation"
	StatusInfo      Status = "info"
)

// Severity of a compliance check.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Check is one evaluated rule outcome.
type Check struct {
	ID             string   `json:"id"`
	RuleName       string   `json:"ruleName"`
	RuleCategory   string   `json:"ruleCategory"`
	Status         Status   `json:"status"`
	Message        string   `json:"message"`
	LegalReference string   `json:"legalReference,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	Severity       Severity `json:"severity"`
}

// Request asks for a set of categories to be checked against case facts.
type Request struct {
	OrganizationID string   `json:"organizationId"`
	Jurisdiction   string   `json:"jurisdiction"`
	Checks         []string `json:"checksToPerform"`
	Facts          Facts    `json:"data"`
}

// SkipReason explains why a requested category produced no check.
type SkipReason string

const (
	SkipInsufficientFacts    SkipReason = "insufficient_facts"
	SkipInvalidFacts         SkipReason = "invalid_facts"
	SkipNoRule               SkipReason = "no_rule"
	SkipInvalidRule          SkipReason = "invalid_rule"
	SkipUnrecognizedCategory SkipReason = "unrecognized_category"
)

// Skip records a requested category that produced no check.
type Skip struct {
	Category string     `json:"category"`
	Reason   SkipReason `json:"reason"`
}

// Source identifies where the rules behind a report came from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceTable    Source = "table"
)

// ErrComputation marks a report whose evaluation failed internally.
var ErrComputation = errors.New("compliance computation failed")

// Report is the result of one evaluation. Checks follow the requested
// category order. Failure is set only when evaluation itself failed; Checks
// is then empty.
type Report struct {
	Checks  []Check `json:"checks"`
	Skipped []Skip  `json:"skipped,omitempty"`
	Source  Source  `json:"source"`
	Failure error   `json:"-"`
}

// Failed reports whether evaluation failed.
func (r Report) Failed() bool {
	return r.Failure != nil
}

func failedReport(source Source, err error) Report {
	return Report{Checks: []Check{}, Source: source, Failure: err}
}
