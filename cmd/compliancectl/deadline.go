package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/labourcompliance/deadline"
	"github.com/liamcoop/labourcompliance/internal/dates"
)

type deadlineOptions struct {
	*options

	organization string
	jurisdiction string
	category     string
	start        string
	details      bool
	extensions   int
}

func newDeadlineCmd(o *options) *cobra.Command {
	d := &deadlineOptions{options: o}

	cmd := &cobra.Command{
		Use:   "deadline",
		Short: "Calculate a statutory deadline",
		Long: `Calculate the deadline of a rule category from a start date.

Business-day deadlines skip weekends and the statutory holidays of the
jurisdiction. Offline calculation needs --jurisdiction; the rule service can
also resolve it from --org.

Examples:
  compliancectl deadline -j ON --category grievance --start 2024-03-25 --details
  compliancectl deadline -j federal --category arbitration --start 2024-06-01 --extend 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd)
		},
	}

	cmd.Flags().StringVar(&d.organization, "org", "", "organization ID")
	cmd.Flags().StringVarP(&d.jurisdiction, "jurisdiction", "j", "", "jurisdiction code")
	cmd.Flags().StringVar(&d.category, "category", "", "rule category, e.g. grievance")
	cmd.Flags().StringVar(&d.start, "start", "", "start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().BoolVar(&d.details, "details", false, "include the day-by-day breakdown")
	cmd.Flags().IntVar(&d.extensions, "extend", 0, "number of extensions to apply")
	return cmd
}

func (d *deadlineOptions) run(cmd *cobra.Command) error {
	if d.category == "" {
		return fmt.Errorf("--category is required")
	}
	start, err := dates.Parse(d.start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	j, err := parseJurisdiction(d.jurisdiction)
	if err != nil {
		return err
	}
	if d.extensions > 0 && j == "" {
		return fmt.Errorf("--extend needs --jurisdiction")
	}

	cfg := deadline.Config{
		Rules:  d.localRules(),
		Logger: d.logger,
	}
	if c := d.client(); c != nil {
		cfg.Remote = c
	}
	svc := deadline.NewService(cfg)

	ctx := cmd.Context()
	res, err := svc.Calculate(ctx, deadline.Request{
		OrganizationID: d.organization,
		RuleCategory:   d.category,
		StartDate:      start,
		IncludeDetails: d.details,
		Jurisdiction:   string(j),
	})
	if err != nil {
		return err
	}
	if d.extensions > 0 {
		if res, err = svc.Extend(ctx, j, res, d.extensions); err != nil {
			return err
		}
	}

	urgency := deadline.Classify(res.DeadlineDate, time.Now())

	if d.output == "json" {
		return d.printJSON(struct {
			Result  deadline.Result  `json:"result"`
			Urgency deadline.Urgency `json:"urgency"`
		}{res, urgency})
	}

	fmt.Fprintf(d.out, "%s: %s (%d %s days from %s)\n",
		res.RuleName, res.DeadlineDate, res.DeadlineDays, res.DeadlineType, res.StartDate)
	if res.ExtensionsApplied > 0 {
		fmt.Fprintf(d.out, "extensions applied: %d of %d\n", res.ExtensionsApplied, res.MaxExtensions)
	}
	fmt.Fprintf(d.out, "status: %s, %d days remaining\n", urgency.Level, urgency.DaysRemaining)

	if len(res.Breakdown) > 0 {
		w := tabwriter.NewWriter(d.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tDAY\tBUSINESS\tHOLIDAY")
		for _, day := range res.Breakdown {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", day.Date, dates.Weekday(day.Date), day.IsBusinessDay, day.HolidayName)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(d.out, "source: %s\n", res.Source)
	return nil
}
