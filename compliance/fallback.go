package compliance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/liamcoop/labourcompliance/rules"
)

// Fallback evaluates locally when the rule service cannot. Rules come from
// its source; if that fails too, they are synthesized from the threshold
// table. Internal faults become a failed report, never a panic.
type Fallback struct {
	source rules.Source
	table  rules.Source
	logger *slog.Logger
}

// NewFallback creates a fallback evaluator. A nil source goes straight to the
// threshold table; a nil logger uses slog.Default().
func NewFallback(source rules.Source, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		source: source,
		table:  rules.NewTableSource(),
		logger: logger,
	}
}

// Evaluate checks the requested categories with native predicates.
func (f *Fallback) Evaluate(ctx context.Context, req Request) (rep Report) {
	source := SourceFallback
	defer func() {
		if r := recover(); r != nil {
			f.logger.ErrorContext(ctx, "fallback evaluation panicked", "panic", r)
			rep = failedReport(source, fmt.Errorf("%w: %v", ErrComputation, r))
		}
	}()

	j := normalizeJurisdiction(req.Jurisdiction)
	fetched := make(map[string][]*rules.Rule, len(req.Checks))

	if f.source == nil {
		source = SourceTable
	} else {
		for _, category := range req.Checks {
			if !Supported(category) {
				continue
			}
			rs, err := f.source.Rules(ctx, j, category)
			if err != nil {
				f.logger.WarnContext(ctx, "rule fetch failed, using threshold table",
					"jurisdiction", j, "category", category, "error", err)
				source = SourceTable
				break
			}
			fetched[category] = rs
		}
	}

	rulesFor := func(category string) []*rules.Rule {
		if source == SourceTable {
			rs, _ := f.table.Rules(ctx, j, category)
			return rs
		}
		return fetched[category]
	}
	return evaluate(req, rulesFor, classifyNative, source)
}
