// Package betas implements the factor beta standardization and transformation
// engine used to prepare cross-sectional factor exposures for scoring.
//
// The engine takes one table of per-entity factor betas (rows are entities,
// columns are factors) and produces two congruent tables: standardized betas
// and transformed betas.
//
// # Transformation Stages
//
// Every run executes the same four stages:
//
//  1. Standardize: each factor column is mapped to z-scores independently,
//     using the column mean and the sample standard deviation (n-1
//     denominator). Columns with fewer than two defined values, or with zero
//     spread, carry no information and become entirely undefined.
//  2. Pool: every defined z-score from every column is flattened into a
//     single population, sorted once and shared by all lookups in the run.
//  3. Rank: each z-score receives its exclusive percentile rank within the
//     pooled population, replicating the spreadsheet PERCENTRANK.EXC
//     function (see PercentRankExc). Values strictly outside the population
//     range have no exclusive rank.
//  4. Rescale: ranks are mapped onto the calibrated output scale
//
//	transformed = (rank*100 - 50.5) / 34
//
// The offset and divisor are fixed constants of the output contract shared
// with downstream spreadsheets.
//
// # Undefined Cells
//
// Cells without a usable value are represented as NaN and survive every
// stage as NaN. Missing input never collapses to zero: a blank beta and a
// beta of zero are different facts, and only the latter participates in
// moments, pooling, and ranking.
//
// # Determinism
//
// Runs are pure functions of their input. Factor columns are processed
// concurrently, but each output cell depends only on its own column's
// moments and the shared pooled population, so scheduling cannot change a
// single bit of the result.
//
// # Usage
//
//	pipeline := betas.NewPipeline(slog.Default())
//	result, err := pipeline.Run(ctx, input)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Report.PopulationSize)
package betas
