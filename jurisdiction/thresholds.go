package jurisdiction

// CertificationTiers holds the card-signature percentages that govern union
// certification. VotePct is the level at which a representation vote may be
// ordered; AutomaticPct (only meaningful when HasAutomatic is set) is the level
// at which certification is granted without a vote. VotePct <= AutomaticPct.
type CertificationTiers struct {
	VotePct      float64
	AutomaticPct float64
	HasAutomatic bool
}

// DeadlineDefaults describes a statutory deadline used when no rule can be
// fetched for a category.
type DeadlineDefaults struct {
	RuleName      string
	Days          int
	Type          string // "calendar" or "business"
	CanExtend     bool
	MaxExtensions int
}

// Thresholds is the per-jurisdiction parameter row of the table.
type Thresholds struct {
	Certification   CertificationTiers
	QuorumPct       float64
	ArbitrationDays int

	// LegalReferences maps a rule category to its statutory citation.
	LegalReferences map[string]string

	// Deadlines maps a rule category to its default deadline terms.
	Deadlines map[string]DeadlineDefaults
}

// Table maps jurisdictions to their thresholds. The remote rule path and the
// fallback path both read from the same table.
type Table map[Jurisdiction]Thresholds

// Lookup returns the thresholds for j.
func (t Table) Lookup(j Jurisdiction) (Thresholds, bool) {
	th, ok := t[j]
	return th, ok
}

// Reference returns the legal citation for a category, or "".
func (th Thresholds) Reference(category string) string {
	return th.LegalReferences[category]
}

// Deadline returns the default deadline terms for a category.
func (th Thresholds) Deadline(category string) (DeadlineDefaults, bool) {
	d, ok := th.Deadlines[category]
	return d, ok
}

const (
	defaultQuorumPct       = 50
	defaultArbitrationDays = 30
)

func standardDeadlines(arbitrationDays int) map[string]DeadlineDefaults {
	return map[string]DeadlineDefaults{
		"arbitration": {
			RuleName:      "Referral to Arbitration",
			Days:          arbitrationDays,
			Type:          "calendar",
			CanExtend:     true,
			MaxExtensions: 1,
		},
		"grievance": {
			RuleName:      "Grievance Filing",
			Days:          20,
			Type:          "business",
			CanExtend:     true,
			MaxExtensions: 2,
		},
		"strike_notice": {
			RuleName: "Strike Notice",
			Days:     3,
			Type:     "calendar",
		},
	}
}

// DefaultTable returns a fresh copy of the built-in threshold table.
func DefaultTable() Table {
	return Table{
		Federal: {
			Certification:   CertificationTiers{VotePct: 35, AutomaticPct: 50, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Canada Labour Code, R.S.C. 1985, c. L-2, s. 28",
				"strike_vote":   "Canada Labour Code, R.S.C. 1985, c. L-2, s. 87.3",
				"arbitration":   "Canada Labour Code, R.S.C. 1985, c. L-2, s. 57",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		Ontario: {
			Certification:   CertificationTiers{VotePct: 40, AutomaticPct: 55, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Labour Relations Act, 1995, S.O. 1995, c. 1, Sched. A, s. 8",
				"strike_vote":   "Labour Relations Act, 1995, S.O. 1995, c. 1, Sched. A, s. 79",
				"arbitration":   "Labour Relations Act, 1995, S.O. 1995, c. 1, Sched. A, s. 48",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		BritishColumbia: {
			Certification:   CertificationTiers{VotePct: 45, AutomaticPct: 55, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Labour Relations Code, R.S.B.C. 1996, c. 244, s. 23",
				"strike_vote":   "Labour Relations Code, R.S.B.C. 1996, c. 244, s. 60",
				"arbitration":   "Labour Relations Code, R.S.B.C. 1996, c. 244, s. 84",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		Quebec: {
			Certification:   CertificationTiers{VotePct: 35, AutomaticPct: 50, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Labour Code, CQLR c. C-27, s. 28",
				"strike_vote":   "Labour Code, CQLR c. C-27, s. 20.2",
				"arbitration":   "Labour Code, CQLR c. C-27, s. 100",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		Alberta: {
			Certification:   CertificationTiers{VotePct: 40, AutomaticPct: 65, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Labour Relations Code, R.S.A. 2000, c. L-1, s. 33",
				"strike_vote":   "Labour Relations Code, R.S.A. 2000, c. L-1, s. 73",
				"arbitration":   "Labour Relations Code, R.S.A. 2000, c. L-1, s. 135",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		Manitoba: {
			Certification:   CertificationTiers{VotePct: 40, AutomaticPct: 65, HasAutomatic: true},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "The Labour Relations Act, C.C.S.M. c. L10, s. 40",
				"strike_vote":   "The Labour Relations Act, C.C.S.M. c. L10, s. 92.1",
				"arbitration":   "The Labour Relations Act, C.C.S.M. c. L10, s. 78",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		Saskatchewan: {
			Certification:   CertificationTiers{VotePct: 45},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "The Saskatchewan Employment Act, S.S. 2013, c. S-15.1, s. 6-9",
				"strike_vote":   "The Saskatchewan Employment Act, S.S. 2013, c. S-15.1, s. 6-30",
				"arbitration":   "The Saskatchewan Employment Act, S.S. 2013, c. S-15.1, s. 6-45",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
		NovaScotia: {
			Certification:   CertificationTiers{VotePct: 35},
			QuorumPct:       defaultQuorumPct,
			ArbitrationDays: defaultArbitrationDays,
			LegalReferences: map[string]string{
				"certification": "Trade Union Act, R.S.N.S. 1989, c. 475, s. 25",
				"strike_vote":   "Trade Union Act, R.S.N.S. 1989, c. 475, s. 47",
				"arbitration":   "Trade Union Act, R.S.N.S. 1989, c. 475, s. 42",
			},
			Deadlines: standardDeadlines(defaultArbitrationDays),
		},
	}
}
