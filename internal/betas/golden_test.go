package betas

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden tests pin the full pipeline to hand-computed values so that any
// change to the standardization, pooling, ranking or rescaling arithmetic
// shows up as a concrete numeric diff.

// Single clean column: z-scores are symmetric, every value is a pool member,
// so the ranks are exactly k/(n+1) for k = 1..5.
func TestGoldenSingleColumn(t *testing.T) {
	input := newTestMatrix(
		[]string{"Momentum"},
		[][]float64{{10}, {20}, {30}, {40}, {50}},
	)

	pipeline := NewPipeline(slog.Default())
	result, err := pipeline.Run(context.Background(), input)
	require.NoError(t, err)

	stdev := math.Sqrt(250) // sample standard deviation of 10..50
	expectedStandardized := [][]float64{
		{-20 / stdev},
		{-10 / stdev},
		{0},
		{10 / stdev},
		{20 / stdev},
	}
	expectedTransformed := [][]float64{
		{(100.0/6.0 - 50.5) / 34.0}, // rank 1/6
		{(200.0/6.0 - 50.5) / 34.0}, // rank 2/6
		{(300.0/6.0 - 50.5) / 34.0}, // rank 3/6
		{(400.0/6.0 - 50.5) / 34.0}, // rank 4/6
		{(500.0/6.0 - 50.5) / 34.0}, // rank 5/6
	}

	assertCellsEqual(t, expectedStandardized, result.Standardized.Cells)
	assertCellsEqual(t, expectedTransformed, result.Transformed.Cells)

	assert.Equal(t, 5, result.Report.PopulationSize)
	assert.Zero(t, result.Report.TransformedUndefined)
}

// Mixed table: a clean column, a constant (degenerate) column and a column
// with a missing cell. The pool holds the nine defined z-scores; every one
// of them is a pool member, so the expected ranks follow directly from their
// sorted positions.
func TestGoldenMixedTable(t *testing.T) {
	input := newTestMatrix(
		[]string{"Momentum", "Size", "Value"},
		[][]float64{
			{10, 30, 1},
			{20, 30, 2},
			{30, 30, 3},
			{40, 30, math.NaN()},
			{50, 30, 5},
		},
	)

	pipeline := NewPipeline(slog.Default())
	result, err := pipeline.Run(context.Background(), input)
	require.NoError(t, err)

	nan := math.NaN()
	sa := math.Sqrt(250)        // Momentum sample stdev
	sv := math.Sqrt(8.75 / 3.0) // Value sample stdev over {1,2,3,5}
	expectedStandardized := [][]float64{
		{-20 / sa, nan, -1.75 / sv},
		{-10 / sa, nan, -0.75 / sv},
		{0, nan, 0.25 / sv},
		{10 / sa, nan, nan},
		{20 / sa, nan, 2.25 / sv},
	}

	// Sorted pool of the nine z-scores, 1-based positions over n+1 = 10:
	// Momentum occupies positions 1, 3, 5, 7, 8; Value positions 2, 4, 6, 9.
	rescale := func(rank float64) float64 { return (rank*100 - 50.5) / 34 }
	expectedTransformed := [][]float64{
		{rescale(0.1), nan, rescale(0.2)},
		{rescale(0.3), nan, rescale(0.4)},
		{rescale(0.5), nan, rescale(0.6)},
		{rescale(0.7), nan, nan},
		{rescale(0.8), nan, rescale(0.9)},
	}

	assertCellsEqual(t, expectedStandardized, result.Standardized.Cells)
	assertCellsEqual(t, expectedTransformed, result.Transformed.Cells)

	assert.Equal(t, 9, result.Report.PopulationSize)
	assert.Equal(t, []string{"Size"}, result.Report.DegenerateFactors)
	assert.Equal(t, 1, result.Report.InputUndefined)
	assert.Equal(t, 6, result.Report.StandardizedUndefined)
	assert.Equal(t, 6, result.Report.TransformedUndefined)
}

// Two defined cells in total: the smallest pool for which exclusive ranks
// still exist.
func TestGoldenMinimalPool(t *testing.T) {
	input := newTestMatrix(
		[]string{"F1"},
		[][]float64{{1}, {2}},
	)

	pipeline := NewPipeline(slog.Default())
	result, err := pipeline.Run(context.Background(), input)
	require.NoError(t, err)

	require.Equal(t, 2, result.Report.PopulationSize)
	assert.InDelta(t, (100.0/3.0-50.5)/34.0, result.Transformed.Cells[0][0], 1e-9)
	assert.InDelta(t, (200.0/3.0-50.5)/34.0, result.Transformed.Cells[1][0], 1e-9)
}
