package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

type rulesOptions struct {
	*options

	jurisdiction string
	category     string
}

func newRulesCmd(o *options) *cobra.Command {
	r := &rulesOptions{options: o}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rules of a jurisdiction and category",
		Long: `List the rules of a jurisdiction and category, most recent effective date
first. The first rule listed is the one that governs.

Example:
  compliancectl rules -j ON --category certification`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&r.jurisdiction, "jurisdiction", "j", "", "jurisdiction code")
	cmd.Flags().StringVar(&r.category, "category", "", "rule category")
	return cmd
}

func (r *rulesOptions) run(cmd *cobra.Command) error {
	j, err := parseJurisdiction(r.jurisdiction)
	if err != nil {
		return err
	}
	if j == "" || r.category == "" {
		return fmt.Errorf("--jurisdiction and --category are required")
	}

	found, source := r.lookup(cmd.Context(), j)

	if r.output == "json" {
		return r.printJSON(map[string]any{"rules": found, "source": source})
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEFFECTIVE\tNAME\tREFERENCE\tPARAMETERS")
	for _, rule := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", rule.ID, rule.EffectiveDate, rule.RuleName, rule.LegalReference, rule.Parameters)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "source: %s\n", source)
	return nil
}

// lookup tries the rule service, the local catalog and the threshold table
// in turn.
func (r *rulesOptions) lookup(ctx context.Context, j jurisdiction.Jurisdiction) ([]*rules.Rule, string) {
	if c := r.client(); c != nil {
		found, err := c.Rules(ctx, j, r.category)
		if err == nil {
			return found, "remote"
		}
		r.logger.Warn("remote rule lookup failed, using local rules", "error", err)
	}

	found, err := r.localRules().Rules(ctx, j, r.category)
	if err == nil {
		return found, "local"
	}

	r.logger.Warn("local rule lookup failed, using threshold table", "error", err)
	found, _ = rules.NewTableSource().Rules(ctx, j, r.category)
	return found, "table"
}
