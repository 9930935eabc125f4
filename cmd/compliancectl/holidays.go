package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/labourcompliance/holidays"
	"github.com/liamcoop/labourcompliance/internal/dates"
)

type holidaysOptions struct {
	*options

	jurisdiction string
	year         int
}

func newHolidaysCmd(o *options) *cobra.Command {
	h := &holidaysOptions{options: o}

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "List the statutory holidays of a jurisdiction",
		Long: `List the statutory holidays used for business-day deadlines, including the
weekday a holiday is observed on when it falls on a weekend.

Example:
  compliancectl holidays -j BC --year 2025`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return h.run()
		},
	}

	cmd.Flags().StringVarP(&h.jurisdiction, "jurisdiction", "j", "", "jurisdiction code")
	cmd.Flags().IntVar(&h.year, "year", time.Now().Year(), "calendar year")
	return cmd
}

func (h *holidaysOptions) run() error {
	j, err := parseJurisdiction(h.jurisdiction)
	if err != nil {
		return err
	}
	if j == "" {
		return fmt.Errorf("--jurisdiction is required")
	}

	list := holidays.ForYear(j, h.year)
	sort.Slice(list, func(a, b int) bool {
		return list[a].Date.Before(list[b].Date)
	})

	if h.output == "json" {
		return h.printJSON(list)
	}

	w := tabwriter.NewWriter(h.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDAY\tHOLIDAY")
	for _, hol := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\n", hol.Date, dates.Weekday(hol.Date), hol.Name)
	}
	return w.Flush()
}
