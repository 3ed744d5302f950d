package betas

import (
	"fmt"
	"math"
	"time"
)

// Contract and safety constants for transformation runs.
const (
	// RescaleOffset and RescaleDivisor define the fixed output mapping
	// transformed = (rank*100 - RescaleOffset) / RescaleDivisor.
	// Both values are part of the published output format and are not
	// configurable.
	RescaleOffset  = 50.5
	RescaleDivisor = 34.0

	// MinDefinedValues is the smallest number of defined cells a factor
	// column needs before its sample moments are meaningful.
	MinDefinedValues = 2

	// MinPopulationSize is the smallest pooled population for which
	// exclusive percentile ranks exist.
	MinPopulationSize = 2

	// DefaultMaxConcurrency bounds the per-column workers in a run.
	DefaultMaxConcurrency = 4

	// DefaultRunTimeout bounds a single transformation run.
	DefaultRunTimeout = 2 * time.Minute
)

// Stage identifies a computation stage for progress reporting.
type Stage string

// Stages reported while a run executes.
const (
	StageStandardize Stage = "standardize"
	StageRank        Stage = "rank"
)

// Undefined returns the sentinel for a cell without a usable value.
// Missing, blank, unparseable, and non-finite inputs all map to it, and it
// propagates through every stage unchanged.
func Undefined() float64 { return math.NaN() }

// IsUndefined reports whether v is the undefined sentinel.
func IsUndefined(v float64) bool { return math.IsNaN(v) }

// IsDefined reports whether v is a usable finite value.
func IsDefined(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Matrix holds one factor beta table: two leading metadata columns (entity
// symbol and display name) plus a row-major block of factor cells.
// Cells[i][j] belongs to row i of factor Factors[j]; undefined cells are NaN.
//
// SymbolHeader and NameHeader carry the original header text of the two
// metadata columns so outputs mirror their input; when empty, writers fall
// back to "Symbol" and "Name".
//
// Output matrices share the metadata slices of their input; callers must
// treat Symbols, Names and Factors as read-only.
type Matrix struct {
	SymbolHeader string
	NameHeader   string
	Symbols      []string
	Names        []string
	Factors      []string
	Cells        [][]float64
}

// Rows returns the number of data rows.
func (m *Matrix) Rows() int { return len(m.Cells) }

// FactorCount returns the number of numeric factor columns.
func (m *Matrix) FactorCount() int { return len(m.Factors) }

// Column copies factor column j into a new slice.
func (m *Matrix) Column(j int) []float64 {
	col := make([]float64, len(m.Cells))
	for i, row := range m.Cells {
		col[i] = row[j]
	}
	return col
}

// Validate checks the structural invariants a run relies on. A table that
// fails validation is rejected before any computation starts.
func (m *Matrix) Validate() error {
	if m.FactorCount() < 1 {
		return &ValidationError{
			Field:   "factors",
			Message: "at least one numeric factor column is required",
		}
	}
	if m.Rows() == 0 {
		return &ValidationError{
			Field:   "rows",
			Message: "table has no data rows",
		}
	}
	if len(m.Symbols) != m.Rows() || len(m.Names) != m.Rows() {
		return &ValidationError{
			Field:   "metadata",
			Message: "metadata columns do not align with data rows",
			Value: map[string]int{
				"rows":    m.Rows(),
				"symbols": len(m.Symbols),
				"names":   len(m.Names),
			},
		}
	}
	for i, row := range m.Cells {
		if len(row) != m.FactorCount() {
			return &ValidationError{
				Field:   "rows",
				Message: "row width does not match the factor header",
				Value: map[string]int{
					"row":      i,
					"width":    len(row),
					"expected": m.FactorCount(),
				},
			}
		}
	}
	return nil
}

// emptyLike allocates an all-zero matrix congruent with m, sharing its
// metadata slices.
func emptyLike(m *Matrix) *Matrix {
	cells := make([][]float64, len(m.Cells))
	for i := range cells {
		cells[i] = make([]float64, len(m.Factors))
	}
	return &Matrix{
		SymbolHeader: m.SymbolHeader,
		NameHeader:   m.NameHeader,
		Symbols:      m.Symbols,
		Names:        m.Names,
		Factors:      m.Factors,
		Cells:        cells,
	}
}

// Result bundles the two output tables of a run with its quality report.
type Result struct {
	Standardized *Matrix
	Transformed  *Matrix
	Report       Report
}

// Report summarizes the data quality of one transformation run.
type Report struct {
	Rows                  int             `json:"rows"`
	Factors               int             `json:"factors"`
	PopulationSize        int             `json:"population_size"`
	InputUndefined        int             `json:"input_undefined"`
	StandardizedUndefined int             `json:"standardized_undefined"`
	TransformedUndefined  int             `json:"transformed_undefined"`
	DegenerateFactors     []string        `json:"degenerate_factors,omitempty"`
	FactorQuality         []FactorQuality `json:"factor_quality"`
	Duration              time.Duration   `json:"duration"`
}

// FactorQuality carries per-factor undefined-cell counts.
type FactorQuality struct {
	Factor                string `json:"factor"`
	InputUndefined        int    `json:"input_undefined"`
	StandardizedUndefined int    `json:"standardized_undefined"`
	TransformedUndefined  int    `json:"transformed_undefined"`
	Degenerate            bool   `json:"degenerate,omitempty"`
}

// TotalCells returns the number of factor cells in the run.
func (r Report) TotalCells() int { return r.Rows * r.Factors }

// ValidationError describes a rejected input with enough context to act on.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
