package exporter

import (
	"fmt"
	"io"
	"strings"

	"betascale/internal/betas"
)

// SummaryFileName returns the output file name for a run's text summary.
func SummaryFileName(dateTag string) string {
	return "transformation_summary_" + dateTag + ".txt"
}

// WriteSummary renders a run's data quality report as plain text, in the
// shape the batch tool prints after each run.
func WriteSummary(w io.Writer, report betas.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Factor Beta Transformation - Run Summary\n")
	fmt.Fprintf(&b, "========================================\n\n")
	fmt.Fprintf(&b, "Rows: %d\n", report.Rows)
	fmt.Fprintf(&b, "Factors: %d\n", report.Factors)
	fmt.Fprintf(&b, "Pooled population: %d of %d cells\n", report.PopulationSize, report.TotalCells())
	fmt.Fprintf(&b, "Undefined cells: input %d, standardized %d, transformed %d\n",
		report.InputUndefined, report.StandardizedUndefined, report.TransformedUndefined)
	if len(report.DegenerateFactors) > 0 {
		fmt.Fprintf(&b, "Degenerate factors: %s\n", strings.Join(report.DegenerateFactors, ", "))
	}
	fmt.Fprintf(&b, "\n")

	width := 0
	for _, quality := range report.FactorQuality {
		if len(quality.Factor) > width {
			width = len(quality.Factor)
		}
	}

	fmt.Fprintf(&b, "FACTOR BREAKDOWN (undefined in / standardized / transformed)\n")
	fmt.Fprintf(&b, "------------------------------------------------------------\n")
	for _, quality := range report.FactorQuality {
		flag := ""
		if quality.Degenerate {
			flag = "  [degenerate]"
		}
		fmt.Fprintf(&b, "%-*s  %d / %d / %d%s\n",
			width, quality.Factor,
			quality.InputUndefined, quality.StandardizedUndefined, quality.TransformedUndefined,
			flag)
	}
	fmt.Fprintf(&b, "\nCompleted in %s\n", report.Duration)

	_, err := io.WriteString(w, b.String())
	return err
}
