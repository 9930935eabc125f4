package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

var effective = civil.Date{Year: 2020, Month: time.January, Day: 1}

func arbitrationRule(j jurisdiction.Jurisdiction, days int) *rules.Rule {
	return &rules.Rule{
		ID:             string(j) + "-arbitration",
		Jurisdiction:   j,
		RuleType:       rules.TypeDeadline,
		RuleName:       "Referral to Arbitration",
		Category:       rules.CategoryArbitration,
		LegalReference: "s. 48",
		Parameters:     map[string]any{rules.ParamDeadlineDays: days},
		EffectiveDate:  effective,
		Active:         true,
	}
}

func quorumRule(j jurisdiction.Jurisdiction) *rules.Rule {
	return &rules.Rule{
		ID:            string(j) + "-strike-vote",
		Jurisdiction:  j,
		RuleType:      rules.TypeThreshold,
		RuleName:      "Strike Vote Quorum",
		Category:      rules.CategoryStrikeVote,
		Parameters:    map[string]any{rules.ParamQuorumThreshold: 50},
		EffectiveDate: effective,
		Active:        true,
	}
}

func certificationRule(j jurisdiction.Jurisdiction, vote float64, automatic *float64) *rules.Rule {
	params := map[string]any{rules.ParamVoteThreshold: vote}
	if automatic != nil {
		params[rules.ParamAutomaticThreshold] = *automatic
	}
	return &rules.Rule{
		ID:             string(j) + "-certification",
		Jurisdiction:   j,
		RuleType:       rules.TypeThreshold,
		RuleName:       "Certification Card Threshold",
		Category:       rules.CategoryCertification,
		LegalReference: "s. 8",
		Parameters:     params,
		EffectiveDate:  effective,
		Active:         true,
	}
}

func pct(v float64) *float64 { return &v }

func ontarioRules() []*rules.Rule {
	return []*rules.Rule{
		arbitrationRule(jurisdiction.Ontario, 30),
		quorumRule(jurisdiction.Ontario),
		certificationRule(jurisdiction.Ontario, 40, pct(55)),
	}
}

func newEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	ev, err := NewEvaluator()
	if err != nil {
		t.Fatalf("NewEvaluator() failed: %v", err)
	}
	return ev
}

func single(t *testing.T, rep Report) Check {
	t.Helper()
	if rep.Failed() {
		t.Fatalf("evaluation failed: %v", rep.Failure)
	}
	if len(rep.Checks) != 1 {
		t.Fatalf("got %d checks (skipped %v), want 1", len(rep.Checks), rep.Skipped)
	}
	return rep.Checks[0]
}

// The arbitration limit is inclusive on the compliant side.
func TestArbitrationBoundary(t *testing.T) {
	ev := newEvaluator(t)

	testCases := []struct {
		name        string
		arbitration string
		status      Status
		severity    Severity
	}{
		{"29 days", "2024-01-30", StatusCompliant, SeverityLow},
		{"exactly 30 days", "2024-01-31", StatusCompliant, SeverityLow},
		{"31 days", "2024-02-01", StatusViolation, SeverityCritical},
		{"time of day ignored", "2024-01-31T23:59:59Z", StatusCompliant, SeverityLow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := Request{
				OrganizationID: "org-1",
				Jurisdiction:   "ON",
				Checks:         []string{rules.CategoryArbitration},
				Facts: Facts{
					FactGrievanceDate:   "2024-01-01T00:00:00Z",
					FactArbitrationDate: tc.arbitration,
				},
			}
			c := single(t, ev.Evaluate(req, ontarioRules()))
			if c.Status != tc.status || c.Severity != tc.severity {
				t.Errorf("got %s/%s, want %s/%s", c.Status, c.Severity, tc.status, tc.severity)
			}
			if tc.status == StatusViolation && c.Recommendation == "" {
				t.Error("violation should carry a recommendation")
			}
		})
	}
}

// Day differences are taken over UTC calendar days, so a DST change in
// between cannot shift the count.
func TestArbitrationAcrossDST(t *testing.T) {
	ev := newEvaluator(t)
	req := Request{
		Jurisdiction: "ON",
		Checks:       []string{rules.CategoryArbitration},
		Facts: Facts{
			FactGrievanceDate:   "2024-02-10T09:00:00-05:00",
			FactArbitrationDate: "2024-03-11T09:00:00-04:00",
		},
	}
	c := single(t, ev.Evaluate(req, ontarioRules()))
	if c.Status != StatusCompliant {
		t.Errorf("30 days across DST reported %s: %s", c.Status, c.Message)
	}
}

func TestStrikeVoteQuorum(t *testing.T) {
	ev := newEvaluator(t)

	testCases := []struct {
		name    string
		members any
		votes   any
		status  Status
	}{
		{"exactly 50", 1000, 500, StatusCompliant},
		{"49.999", 100000, 49999, StatusViolation},
		{"numeric strings", "200", "150", StatusCompliant},
		{"everyone voted", 10.0, 10.0, StatusCompliant},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := Request{
				Jurisdiction: "ON",
				Checks:       []string{rules.CategoryStrikeVote},
				Facts:        Facts{FactTotalMembers: tc.members, FactVotesCase: tc.votes},
			}
			c := single(t, ev.Evaluate(req, ontarioRules()))
			if c.Status != tc.status {
				t.Errorf("status = %s, want %s (%s)", c.Status, tc.status, c.Message)
			}
			if c.Status == StatusViolation && c.Severity != SeverityCritical {
				t.Errorf("quorum violation severity = %s, want critical", c.Severity)
			}
		})
	}
}

func TestVotesCastAlias(t *testing.T) {
	ev := newEvaluator(t)
	req := Request{
		Jurisdiction: "ON",
		Checks:       []string{rules.CategoryStrikeVote},
		Facts:        Facts{FactTotalMembers: 100, FactVotesCast: 75},
	}
	c := single(t, ev.Evaluate(req, ontarioRules()))
	if c.Status != StatusCompliant {
		t.Errorf("status = %s, want compliant", c.Status)
	}
}

// Ontario: vote 40 / automatic 55.
func TestCertificationTiers(t *testing.T) {
	ev := newEvaluator(t)

	testCases := []struct {
		signed   int
		status   Status
		severity Severity
	}{
		{549, StatusWarning, SeverityMedium},
		{550, StatusCompliant, SeverityLow},
		{399, StatusViolation, SeverityHigh},
		{400, StatusWarning, SeverityMedium},
		{1000, StatusCompliant, SeverityLow},
	}

	for _, tc := range testCases {
		req := Request{
			Jurisdiction: "ON",
			Checks:       []string{rules.CategoryCertification},
			Facts:        Facts{FactSignedCards: tc.signed, FactBargainingUnit: 1000},
		}
		c := single(t, ev.Evaluate(req, ontarioRules()))
		if c.Status != tc.status || c.Severity != tc.severity {
			t.Errorf("%d/1000 signed: got %s/%s, want %s/%s", tc.signed, c.Status, c.Severity, tc.status, tc.severity)
		}
	}
}

// Without an automatic tier the best outcome is a representation vote.
func TestCertificationVoteOnlyTier(t *testing.T) {
	ev := newEvaluator(t)
	rs := []*rules.Rule{certificationRule(jurisdiction.NovaScotia, 35, nil)}

	for signed, want := range map[int]Status{34: StatusViolation, 35: StatusWarning, 100: StatusWarning} {
		req := Request{
			Jurisdiction: "NS",
			Checks:       []string{rules.CategoryCertification},
			Facts:        Facts{FactSignedCards: signed, FactBargainingUnit: 100},
		}
		c := single(t, ev.Evaluate(req, rs))
		if c.Status != want {
			t.Errorf("%d%% signed: status = %s, want %s", signed, c.Status, want)
		}
	}
}

func TestEvaluatePreservesOrderAndSkips(t *testing.T) {
	ev := newEvaluator(t)
	req := Request{
		OrganizationID: "org-1",
		Jurisdiction:   "ON",
		Checks: []string{
			rules.CategoryCertification,
			"picket_line",
			rules.CategoryArbitration,
			rules.CategoryStrikeVote,
			rules.CategoryCertification,
		},
		Facts: Facts{
			FactSignedCards:     600,
			FactBargainingUnit:  1000,
			FactGrievanceDate:   "2024-01-01",
			FactArbitrationDate: "2024-01-15",
			FactTotalMembers:    100,
		},
	}

	rep := ev.Evaluate(req, ontarioRules())
	if rep.Failed() {
		t.Fatalf("evaluation failed: %v", rep.Failure)
	}

	wantOrder := []string{rules.CategoryCertification, rules.CategoryArbitration}
	if len(rep.Checks) != len(wantOrder) {
		t.Fatalf("got %d checks, want %d", len(rep.Checks), len(wantOrder))
	}
	for i, c := range rep.Checks {
		if c.RuleCategory != wantOrder[i] {
			t.Errorf("check[%d] = %s, want %s", i, c.RuleCategory, wantOrder[i])
		}
	}

	wantSkips := []Skip{
		{Category: "picket_line", Reason: SkipUnrecognizedCategory},
		{Category: rules.CategoryStrikeVote, Reason: SkipInsufficientFacts},
	}
	if len(rep.Skipped) != len(wantSkips) {
		t.Fatalf("skipped = %v, want %v", rep.Skipped, wantSkips)
	}
	for i := range wantSkips {
		if rep.Skipped[i] != wantSkips[i] {
			t.Errorf("skip[%d] = %v, want %v", i, rep.Skipped[i], wantSkips[i])
		}
	}
}

func TestEvaluateSkipReasons(t *testing.T) {
	ev := newEvaluator(t)

	badRule := certificationRule(jurisdiction.Ontario, 40, pct(55))
	badRule.Parameters[rules.ParamVoteThreshold] = "forty"

	testCases := []struct {
		name string
		req  Request
		rs   []*rules.Rule
		skip SkipReason
	}{
		{
			name: "nil fact counts as absent",
			req:  Request{Jurisdiction: "ON", Checks: []string{rules.CategoryCertification}, Facts: Facts{FactSignedCards: 10, FactBargainingUnit: nil}},
			rs:   ontarioRules(),
			skip: SkipInsufficientFacts,
		},
		{
			name: "zero bargaining unit",
			req:  Request{Jurisdiction: "ON", Checks: []string{rules.CategoryCertification}, Facts: Facts{FactSignedCards: 10, FactBargainingUnit: 0}},
			rs:   ontarioRules(),
			skip: SkipInvalidFacts,
		},
		{
			name: "unparsable date",
			req:  Request{Jurisdiction: "ON", Checks: []string{rules.CategoryArbitration}, Facts: Facts{FactGrievanceDate: "last week", FactArbitrationDate: "2024-01-01"}},
			rs:   ontarioRules(),
			skip: SkipInvalidFacts,
		},
		{
			name: "arbitration before grievance",
			req:  Request{Jurisdiction: "ON", Checks: []string{rules.CategoryArbitration}, Facts: Facts{FactGrievanceDate: "2024-02-01", FactArbitrationDate: "2024-01-01"}},
			rs:   ontarioRules(),
			skip: SkipInvalidFacts,
		},
		{
			name: "no rule for jurisdiction",
			req:  Request{Jurisdiction: "QC", Checks: []string{rules.CategoryCertification}, Facts: Facts{FactSignedCards: 10, FactBargainingUnit: 20}},
			rs:   ontarioRules(),
			skip: SkipNoRule,
		},
		{
			name: "unknown jurisdiction",
			req:  Request{Jurisdiction: "Atlantis", Checks: []string{rules.CategoryCertification}, Facts: Facts{FactSignedCards: 10, FactBargainingUnit: 20}},
			rs:   ontarioRules(),
			skip: SkipNoRule,
		},
		{
			name: "undecodable rule",
			req:  Request{Jurisdiction: "ON", Checks: []string{rules.CategoryCertification}, Facts: Facts{FactSignedCards: 10, FactBargainingUnit: 20}},
			rs:   []*rules.Rule{badRule},
			skip: SkipInvalidRule,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rep := ev.Evaluate(tc.req, tc.rs)
			if rep.Failed() {
				t.Fatalf("evaluation failed: %v", rep.Failure)
			}
			if len(rep.Checks) != 0 {
				t.Errorf("got %d checks, want none", len(rep.Checks))
			}
			if len(rep.Skipped) != 1 || rep.Skipped[0].Reason != tc.skip {
				t.Errorf("skipped = %v, want %s", rep.Skipped, tc.skip)
			}
		})
	}
}

// The first rule returned by the provider governs.
func TestEvaluateUsesFirstRule(t *testing.T) {
	ev := newEvaluator(t)
	strict := arbitrationRule(jurisdiction.Ontario, 14)
	strict.ID = "on-arbitration-2023"
	rs := []*rules.Rule{strict, arbitrationRule(jurisdiction.Ontario, 30)}

	req := Request{
		Jurisdiction: "on",
		Checks:       []string{rules.CategoryArbitration},
		Facts:        Facts{FactGrievanceDate: "2024-01-01", FactArbitrationDate: "2024-01-21"},
	}
	c := single(t, ev.Evaluate(req, rs))
	if c.Status != StatusViolation {
		t.Errorf("20 days against the 14-day rule should be a violation, got %s", c.Status)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	ev := newEvaluator(t)
	req := Request{
		OrganizationID: "org-7",
		Jurisdiction:   "ON",
		Checks:         Categories(),
		Facts: Facts{
			FactGrievanceDate: "2024-01-01", FactArbitrationDate: "2024-03-01",
			FactTotalMembers: 300, FactVotesCase: 120,
			FactSignedCards: 45, FactBargainingUnit: 100,
		},
	}

	first, _ := json.Marshal(ev.Evaluate(req, ontarioRules()).Checks)
	second, _ := json.Marshal(ev.Evaluate(req, ontarioRules()).Checks)
	if string(first) != string(second) {
		t.Errorf("evaluations differ:\n%s\n%s", first, second)
	}
}

func TestCheckIDs(t *testing.T) {
	ev := newEvaluator(t)
	req := Request{
		OrganizationID: "org-a",
		Jurisdiction:   "ON",
		Checks:         []string{rules.CategoryCertification},
		Facts:          Facts{FactSignedCards: 45, FactBargainingUnit: 100},
	}
	a := single(t, ev.Evaluate(req, ontarioRules()))

	req.OrganizationID = "org-b"
	b := single(t, ev.Evaluate(req, ontarioRules()))

	if a.ID == b.ID {
		t.Error("check IDs should differ between organisations")
	}
	if len(a.ID) != 36 {
		t.Errorf("check ID %q is not a UUID", a.ID)
	}
}

func TestFallbackParity(t *testing.T) {
	ev := newEvaluator(t)
	fb := NewFallback(rules.StaticSource(ontarioRules()), nil)

	facts := []Facts{
		{FactGrievanceDate: "2024-01-01", FactArbitrationDate: "2024-01-31"},
		{FactGrievanceDate: "2024-01-01", FactArbitrationDate: "2024-02-01"},
		{FactTotalMembers: 100000, FactVotesCase: 49999},
		{FactTotalMembers: 1000, FactVotesCase: 500},
		{FactSignedCards: 549, FactBargainingUnit: 1000},
		{FactSignedCards: 550, FactBargainingUnit: 1000},
		{FactSignedCards: 399, FactBargainingUnit: 1000},
	}

	for _, f := range facts {
		req := Request{OrganizationID: "org-1", Jurisdiction: "ON", Checks: Categories(), Facts: f}
		remote := ev.Evaluate(req, ontarioRules())
		local := fb.Evaluate(context.Background(), req)

		if local.Source != SourceFallback {
			t.Errorf("fallback source = %s", local.Source)
		}
		a, _ := json.Marshal(remote.Checks)
		b, _ := json.Marshal(local.Checks)
		if string(a) != string(b) {
			t.Errorf("parity broken for %v:\nremote   %s\nfallback %s", f, a, b)
		}
	}
}

func TestFallbackUsesTableWhenSourceFails(t *testing.T) {
	failing := rules.SourceFunc(func(context.Context, jurisdiction.Jurisdiction, string) ([]*rules.Rule, error) {
		return nil, errors.New("connection refused")
	})
	fb := NewFallback(failing, nil)

	req := Request{
		Jurisdiction: "ON",
		Checks:       []string{rules.CategoryCertification},
		Facts:        Facts{FactSignedCards: 549, FactBargainingUnit: 1000},
	}
	rep := fb.Evaluate(context.Background(), req)
	if rep.Source != SourceTable {
		t.Errorf("source = %s, want table", rep.Source)
	}
	c := single(t, rep)
	if c.Status != StatusWarning {
		t.Errorf("54.9%% in Ontario = %s, want warning", c.Status)
	}
	if c.LegalReference == "" {
		t.Error("table rules carry the statutory citation")
	}
}

func TestFallbackWithoutSource(t *testing.T) {
	rep := NewFallback(nil, nil).Evaluate(context.Background(), Request{
		Jurisdiction: "federal",
		Checks:       []string{rules.CategoryCertification},
		Facts:        Facts{FactSignedCards: 50, FactBargainingUnit: 100},
	})
	if rep.Source != SourceTable {
		t.Errorf("source = %s, want table", rep.Source)
	}
	if c := single(t, rep); c.Status != StatusCompliant {
		t.Errorf("50%% federally = %s, want compliant", c.Status)
	}
}

// A fault inside the fallback yields an empty failed report, not a panic.
func TestFallbackRecoversFromPanic(t *testing.T) {
	panicking := rules.SourceFunc(func(context.Context, jurisdiction.Jurisdiction, string) ([]*rules.Rule, error) {
		panic("corrupt rule cache")
	})

	rep := NewFallback(panicking, nil).Evaluate(context.Background(), Request{
		Jurisdiction: "ON",
		Checks:       []string{rules.CategoryCertification},
		Facts:        Facts{FactSignedCards: 50, FactBargainingUnit: 100},
	})
	if !errors.Is(rep.Failure, ErrComputation) {
		t.Fatalf("Failure = %v, want ErrComputation", rep.Failure)
	}
	if rep.Checks == nil || len(rep.Checks) != 0 {
		t.Errorf("checks = %v, want empty", rep.Checks)
	}
}

type stubRemote struct {
	checks  []Check
	skipped []Skip
	err     error
	calls   int
}

func (s *stubRemote) Evaluate(context.Context, Request) (Report, error) {
	s.calls++
	if s.err != nil {
		return Report{}, s.err
	}
	return Report{Checks: s.checks, Skipped: s.skipped}, nil
}

func TestServiceUsesRemote(t *testing.T) {
	remote := &stubRemote{
		checks:  []Check{{ID: "x", RuleCategory: rules.CategoryCertification, Status: StatusCompliant}},
		skipped: []Skip{{Category: "picketing", Reason: SkipUnrecognizedCategory}},
	}
	svc := NewService(remote, NewFallback(nil, nil), nil, nil)

	rep := svc.Evaluate(context.Background(), Request{Jurisdiction: "ON"})
	if rep.Source != SourceRemote || len(rep.Checks) != 1 {
		t.Errorf("report = %+v, want the remote checks", rep)
	}
	if len(rep.Skipped) != 1 || rep.Skipped[0].Reason != SkipUnrecognizedCategory {
		t.Errorf("skipped = %v, want the remote skips", rep.Skipped)
	}
}

func TestServiceRemoteEmptyChecks(t *testing.T) {
	svc := NewService(&stubRemote{}, NewFallback(nil, nil), nil, nil)

	rep := svc.Evaluate(context.Background(), Request{Jurisdiction: "ON"})
	if rep.Source != SourceRemote || rep.Checks == nil {
		t.Errorf("report = %+v, want an empty remote report", rep)
	}
}

// A failed remote call routes to the fallback exactly once, without retry.
func TestServiceFallsBackOnce(t *testing.T) {
	remote := &stubRemote{err: errors.New("503 Service Unavailable")}
	svc := NewService(remote, NewFallback(rules.StaticSource(ontarioRules()), nil), nil, nil)

	rep := svc.Evaluate(context.Background(), Request{
		Jurisdiction: "ON",
		Checks:       []string{rules.CategoryStrikeVote},
		Facts:        Facts{FactTotalMembers: 1000, FactVotesCase: 500},
	})
	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1", remote.calls)
	}
	if rep.Source != SourceFallback {
		t.Errorf("source = %s, want fallback", rep.Source)
	}
	if c := single(t, rep); c.Status != StatusCompliant {
		t.Errorf("status = %s, want compliant", c.Status)
	}
}

func TestFactsDate(t *testing.T) {
	f := Facts{
		"s": "2024-03-15T22:30:00-05:00",
		"t": time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		"c": civil.Date{Year: 2024, Month: time.March, Day: 15},
		"n": 42,
	}
	want := civil.Date{Year: 2024, Month: time.March, Day: 16}
	if got, _ := f.Date("s"); got != want {
		t.Errorf("Date(s) = %s, want %s", got, want)
	}
	if got, _ := f.Date("t"); got.Day != 15 {
		t.Errorf("Date(t) = %s", got)
	}
	if got, _ := f.Date("c"); got.Day != 15 {
		t.Errorf("Date(c) = %s", got)
	}
	if _, err := f.Date("n"); err == nil {
		t.Error("Date(n) should fail for a number")
	}
	if _, err := f.Date("missing"); err == nil {
		t.Error("Date(missing) should fail")
	}
}
