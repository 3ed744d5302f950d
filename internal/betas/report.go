package betas

import "time"

// buildReport tallies undefined cells across the three tables of a completed
// run. Undefined counts only ever grow from input to transformed: degenerate
// columns and out-of-range ranks add cells, nothing removes them.
func buildReport(input, standardized, transformed *Matrix, degenerate []string, populationSize int, duration time.Duration) Report {
	report := Report{
		Rows:              input.Rows(),
		Factors:           input.FactorCount(),
		PopulationSize:    populationSize,
		DegenerateFactors: degenerate,
		FactorQuality:     make([]FactorQuality, input.FactorCount()),
		Duration:          duration,
	}

	for j, name := range input.Factors {
		quality := FactorQuality{Factor: name}
		for i := range input.Cells {
			if !IsDefined(input.Cells[i][j]) {
				quality.InputUndefined++
			}
			if !IsDefined(standardized.Cells[i][j]) {
				quality.StandardizedUndefined++
			}
			if !IsDefined(transformed.Cells[i][j]) {
				quality.TransformedUndefined++
			}
		}

		// A degenerate column is exactly one whose scores are all
		// undefined: valid moments always yield at least two finite
		// z-scores.
		quality.Degenerate = quality.StandardizedUndefined == report.Rows

		report.InputUndefined += quality.InputUndefined
		report.StandardizedUndefined += quality.StandardizedUndefined
		report.TransformedUndefined += quality.TransformedUndefined
		report.FactorQuality[j] = quality
	}

	return report
}
