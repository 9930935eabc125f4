package compliance

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// predicates are the classification programs, one per category. Each yields
// the verdict name.
var predicates = map[string]string{
	rules.CategoryArbitration: `measure <= limit ? "compliant" : "violation"`,
	rules.CategoryStrikeVote:  `measure >= limit ? "compliant" : "violation"`,
	rules.CategoryCertification: `hasAutomatic && measure >= automatic ? "compliant" :
		measure >= vote ? "warning" : "violation"`,
}

// costLimit bounds a single program evaluation.
const costLimit = 10000

// Evaluator applies rules to case facts with compiled CEL programs. It holds
// no mutable state after construction and is safe for concurrent use.
type Evaluator struct {
	env      *cel.Env
	programs map[string]cel.Program // category -> compiled predicate
}

// NewEvaluator compiles the category predicates.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("measure", cel.DoubleType),
		cel.Variable("limit", cel.DoubleType),
		cel.Variable("vote", cel.DoubleType),
		cel.Variable("automatic", cel.DoubleType),
		cel.Variable("hasAutomatic", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ev := &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program, len(predicates)),
	}
	for category, expr := range predicates {
		prog, err := ev.compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s predicate: %w", category, err)
		}
		ev.programs[category] = prog
	}
	return ev, nil
}

func (ev *Evaluator) compile(expr string) (cel.Program, error) {
	ast, issues := ev.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.StringType) {
		return nil, fmt.Errorf("predicate must yield a string, got %s", ast.OutputType())
	}

	prog, err := ev.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Evaluate checks the requested categories against the governing rule of
// each. rs is the provider's answer for the request, most recent effective
// date first; rules of other jurisdictions are ignored.
func (ev *Evaluator) Evaluate(req Request, rs []*rules.Rule) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			rep = failedReport(SourceRemote, fmt.Errorf("%w: %v", ErrComputation, r))
		}
	}()

	j := normalizeJurisdiction(req.Jurisdiction)
	rulesFor := func(category string) []*rules.Rule {
		return filterRules(rs, j, category)
	}
	return evaluate(req, rulesFor, ev.classify, SourceRemote)
}

func (ev *Evaluator) classify(m measurement) (verdict, error) {
	prog, ok := ev.programs[m.category]
	if !ok {
		return "", fmt.Errorf("no predicate for category %q", m.category)
	}

	out, _, err := prog.Eval(map[string]any{
		"measure":      m.value,
		"limit":        m.limit,
		"vote":         m.vote,
		"automatic":    m.automatic,
		"hasAutomatic": m.hasAutomatic,
	})
	if err != nil {
		return "", fmt.Errorf("evaluation error: %w", err)
	}

	name, ok := out.Value().(string)
	if !ok {
		return "", fmt.Errorf("predicate returned %T", out.Value())
	}
	switch v := verdict(name); v {
	case verdictCompliant, verdictWarning, verdictViolation:
		return v, nil
	default:
		return "", fmt.Errorf("predicate returned unknown verdict %q", name)
	}
}

// filterRules keeps the rules of one (jurisdiction, category) pair in their
// given order.
func filterRules(rs []*rules.Rule, j jurisdiction.Jurisdiction, category string) []*rules.Rule {
	var out []*rules.Rule
	for _, r := range rs {
		if r.Jurisdiction == j && r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
