package betas

import (
	"gonum.org/v1/gonum/stat"
)

// StandardizeColumn maps one factor column to z-scores using the column mean
// and the sample standard deviation (n-1 denominator). Undefined cells stay
// undefined and do not participate in the moments.
//
// The second return value is false when the column is degenerate: fewer than
// MinDefinedValues defined cells, or a zero or non-finite spread. A
// degenerate column carries no cross-sectional information, so every score
// is undefined.
func StandardizeColumn(values []float64) ([]float64, bool) {
	scores := make([]float64, len(values))

	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if IsDefined(v) {
			defined = append(defined, v)
		}
	}

	if len(defined) < MinDefinedValues {
		fillUndefined(scores)
		return scores, false
	}

	mean := stat.Mean(defined, nil)
	stdev := stat.StdDev(defined, nil)
	if stdev == 0 || !IsDefined(stdev) {
		fillUndefined(scores)
		return scores, false
	}

	for i, v := range values {
		if IsDefined(v) {
			scores[i] = (v - mean) / stdev
		} else {
			scores[i] = Undefined()
		}
	}
	return scores, true
}

func fillUndefined(values []float64) {
	for i := range values {
		values[i] = Undefined()
	}
}
