package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/labourcompliance/compliance"
)

type evaluateOptions struct {
	*options

	organization string
	jurisdiction string
	checks       []string
	facts        []string
	factsFile    string
}

func newEvaluateCmd(o *options) *cobra.Command {
	e := &evaluateOptions{options: o}

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Check case facts against the governing rules",
		Long: `Evaluate case facts against the governing rule of each requested category.

Facts are given as key=value pairs or read from a YAML or JSON file; pairs
override the file. Recognised facts:
  arbitration    grievanceDate, arbitrationDate
  strike_vote    totalMembers, votesCase (or votesCast)
  certification  signedCards, bargainingUnit

Examples:
  compliancectl evaluate -j ON --checks certification --fact signedCards=549 --fact bargainingUnit=1000
  compliancectl evaluate -j federal --checks arbitration,strike_vote --facts-file case.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return e.run(cmd)
		},
	}

	cmd.Flags().StringVar(&e.organization, "org", "", "organization ID")
	cmd.Flags().StringVarP(&e.jurisdiction, "jurisdiction", "j", "", "jurisdiction code, e.g. ON or federal")
	cmd.Flags().StringSliceVar(&e.checks, "checks", compliance.Categories(), "categories to check")
	cmd.Flags().StringArrayVar(&e.facts, "fact", nil, "case fact as key=value (repeatable)")
	cmd.Flags().StringVar(&e.factsFile, "facts-file", "", "YAML or JSON file of case facts")
	return cmd
}

func (e *evaluateOptions) run(cmd *cobra.Command) error {
	j, err := parseJurisdiction(e.jurisdiction)
	if err != nil {
		return err
	}
	if j == "" {
		return fmt.Errorf("--jurisdiction is required")
	}

	facts, err := e.loadFacts()
	if err != nil {
		return err
	}

	var remote compliance.Remote
	if c := e.client(); c != nil {
		remote = c
	}
	svc := compliance.NewService(remote, compliance.NewFallback(e.localRules(), e.logger), e.logger, nil)

	rep := svc.Evaluate(cmd.Context(), compliance.Request{
		OrganizationID: e.organization,
		Jurisdiction:   string(j),
		Checks:         e.checks,
		Facts:          facts,
	})
	if rep.Failed() {
		return rep.Failure
	}

	if e.output == "json" {
		return e.printJSON(rep)
	}

	w := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSTATUS\tSEVERITY\tRULE\tMESSAGE")
	for _, c := range rep.Checks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.RuleCategory, c.Status, c.Severity, c.RuleName, c.Message)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, c := range rep.Checks {
		if c.Recommendation != "" {
			fmt.Fprintf(e.out, "%s: %s\n", c.RuleCategory, c.Recommendation)
		}
	}
	for _, sk := range rep.Skipped {
		fmt.Fprintf(e.out, "skipped %s: %s\n", sk.Category, sk.Reason)
	}
	fmt.Fprintf(e.out, "source: %s\n", rep.Source)
	return nil
}

// loadFacts merges the facts file with the key=value pairs.
func (e *evaluateOptions) loadFacts() (compliance.Facts, error) {
	facts := compliance.Facts{}

	if e.factsFile != "" {
		data, err := os.ReadFile(e.factsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read facts: %w", err)
		}
		if err := yaml.Unmarshal(data, &facts); err != nil {
			return nil, fmt.Errorf("failed to parse facts %s: %w", e.factsFile, err)
		}
	}

	for _, pair := range e.facts {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid fact %q (want key=value)", pair)
		}
		facts[key] = strings.TrimSpace(value)
	}
	return facts, nil
}
