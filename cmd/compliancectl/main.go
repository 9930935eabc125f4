// Compliancectl is the operator CLI for the labour-relations compliance
// service. It talks to the rule service and falls back to a local rule
// catalog, then to the built-in threshold table, when the service is down.
//
// Usage:
//
//	# Check certification cards for an Ontario local
//	compliancectl evaluate --jurisdiction ON --checks certification \
//	    --fact signedCards=549 --fact bargainingUnit=1000
//
//	# Grievance deadline with a day-by-day breakdown
//	compliancectl deadline --jurisdiction ON --category grievance --start 2024-03-25 --details
//
//	# Compare certification thresholds
//	compliancectl compare --category certification federal ON QC
//
//	# Statutory holidays
//	compliancectl holidays --jurisdiction QC --year 2025
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
