package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/liamcoop/labourcompliance/compare"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

type compareOptions struct {
	*options

	category string
}

func newCompareCmd(o *options) *cobra.Command {
	c := &compareOptions{options: o}

	cmd := &cobra.Command{
		Use:   "compare JURISDICTION...",
		Short: "Compare one rule category across jurisdictions",
		Long: `Compare the governing rule of a category across jurisdictions.

Rows whose values differ between jurisdictions are marked with '*'. A
jurisdiction without a rule, or a rule without the parameter, shows N/A.

Example:
  compliancectl compare --category certification federal ON BC QC`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}

	cmd.Flags().StringVar(&c.category, "category", "", "rule category to compare")
	return cmd
}

func (c *compareOptions) run(cmd *cobra.Command, args []string) error {
	if c.category == "" {
		return fmt.Errorf("--category is required")
	}

	js := make([]jurisdiction.Jurisdiction, 0, len(args))
	for _, arg := range args {
		j, err := jurisdiction.Parse(arg)
		if err != nil {
			return err
		}
		js = append(js, j)
	}

	var remote compare.Remote
	if cl := c.client(); cl != nil {
		remote = cl
	}
	svc := compare.NewService(remote, c.localRules(), c.logger, nil)

	m, err := svc.Compare(cmd.Context(), js, c.category)
	if err != nil {
		return err
	}

	if c.output == "json" {
		return c.printJSON(m)
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	header := make([]string, 0, len(m.Jurisdictions)+2)
	header = append(header, "", "ATTRIBUTE")
	for _, j := range m.Jurisdictions {
		header = append(header, string(j))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range m.Rows {
		mark := ""
		if row.Different {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mark, row.Attribute, strings.Join(row.Values, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "source: %s\n", m.Source)
	return nil
}
