package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/coordinator"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

// printReport writes a human readable summary of a run.
func printReport(w io.Writer, report savedobjects.RunReport) {
	status := green.Sprint("DONE")
	if report.Halted() {
		status = red.Sprint("HALTED")
	}
	fmt.Fprintf(w, "%s %s (run %s, %s)\n", bold.Sprint("Saved objects migration:"), status, report.RunID, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  marker: %d -> %d\n", report.FromVersion, report.ToVersion)

	for _, r := range report.Results {
		line := fmt.Sprintf("  migration %d: %d migrated, %d skipped", r.MigrationID, r.Applied, r.Skipped)
		if len(r.Failures) > 0 {
			line += yellow.Sprintf(", %d failed", len(r.Failures))
		}
		fmt.Fprintln(w, line)
	}

	if len(report.Failures) == 0 {
		return
	}
	fmt.Fprintln(w, bold.Sprint("Failures:"))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  %s migration %d, document %q: %v\n", red.Sprint("✗"), f.MigrationID, f.DocumentID, f.Err)
	}
}

// printPlan writes the marker and the migrations a run would apply.
func printPlan(w io.Writer, plan coordinator.Plan) {
	fmt.Fprintf(w, "%s %d\n", bold.Sprint("Marker:"), plan.From)
	if plan.Ahead {
		fmt.Fprintln(w, yellow.Sprint("  marker is newer than every known migration"))
	}
	if len(plan.Pending) == 0 {
		fmt.Fprintf(w, "%s\n", green.Sprint("Up to date"))
		return
	}
	fmt.Fprintf(w, "%s\n", bold.Sprint("Pending:"))
	for _, m := range plan.Pending {
		policy := "skip"
		if m.HaltOnFailure {
			policy = "halt"
		}
		fmt.Fprintf(w, "  %s %d  %s (%s on failure)\n", yellow.Sprint("•"), m.ID, m.Description, policy)
	}
}
