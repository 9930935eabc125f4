package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/liamcoop/labourcompliance/client"
	"github.com/liamcoop/labourcompliance/internal/config"
	"github.com/liamcoop/labourcompliance/internal/logger"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// options are the global flags shared by every subcommand.
type options struct {
	server  string
	catalog string
	offline bool
	output  string
	timeout time.Duration

	out    io.Writer
	logger *slog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out, logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "compliancectl",
		Short: "Labour-relations compliance checks, deadlines and comparisons",
		Long: `compliancectl evaluates case facts against jurisdiction rules, calculates
statutory deadlines and compares rules across Canadian jurisdictions.

Every command asks the rule service first. When it cannot be reached the
command runs locally against the rule catalog, and against the built-in
threshold table when the catalog cannot be read either. The source used is
always printed.

Environment:
  COMPLIANCE_SERVER_URL   rule service base URL
  RULES_CATALOG           local rule catalog (YAML)
  REQUEST_TIMEOUT         per-call timeout
  LOG_LEVEL               log level for messages on stderr`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.complete(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.server, "server", "", "rule service URL (default $COMPLIANCE_SERVER_URL)")
	flags.StringVar(&o.catalog, "catalog", "", "local rule catalog (default $RULES_CATALOG)")
	flags.BoolVar(&o.offline, "offline", false, "never call the rule service")
	flags.StringVarP(&o.output, "output", "o", "text", "output format: text, json")
	flags.DurationVar(&o.timeout, "timeout", 0, "rule service timeout (default $REQUEST_TIMEOUT)")

	cmd.AddCommand(
		newEvaluateCmd(o),
		newDeadlineCmd(o),
		newCompareCmd(o),
		newRulesCmd(o),
		newHolidaysCmd(o),
	)
	return cmd
}

// complete fills unset flags from the environment and sets up logging.
func (o *options) complete(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	o.logger = logger.SetupTo(cfg.Log, os.Stderr)

	if !cmd.Flags().Changed("server") {
		o.server = cfg.ComplianceServerURL
	}
	if !cmd.Flags().Changed("catalog") {
		o.catalog = cfg.RulesCatalog
	}
	if !cmd.Flags().Changed("timeout") {
		o.timeout = cfg.RequestTimeout
	}

	switch o.output {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported output format %q (use text or json)", o.output)
	}
	return nil
}

// client returns the rule service client, or nil when offline.
func (o *options) client() *client.Client {
	if o.offline || o.server == "" {
		return nil
	}
	return client.New(o.server, &http.Client{Timeout: o.timeout})
}

// localRules serves the catalog. An unreadable catalog yields a source that
// always fails, which sends the services on to the threshold table.
func (o *options) localRules() rules.Source {
	rs, err := rules.LoadCatalog(o.catalog)
	if err != nil {
		o.logger.Warn("rule catalog unavailable", "path", o.catalog, "error", err)
		return rules.SourceFunc(func(context.Context, jurisdiction.Jurisdiction, string) ([]*rules.Rule, error) {
			return nil, err
		})
	}
	return rules.StaticSource(rs)
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseJurisdiction accepts aliases and rejects unknown codes.
func parseJurisdiction(code string) (jurisdiction.Jurisdiction, error) {
	if code == "" {
		return "", nil
	}
	return jurisdiction.Parse(code)
}
