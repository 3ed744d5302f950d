package betas

import "sort"

// PercentRankExc computes the exclusive percentile rank of x within a sorted
// population, replicating the spreadsheet PERCENTRANK.EXC function that the
// historical outputs were validated against.
//
// The rank of the k-th smallest population value (1-based) is k/(n+1).
// A query between two population values interpolates linearly between the
// neighbouring ranks; a query equal to a run of tied values takes the rank
// just past the last equal element. Queries strictly outside [min, max] have
// no exclusive rank and return Undefined, as does any population smaller
// than MinPopulationSize.
//
// The lookup is a single binary search, so ranking a full table against a
// shared population costs O(cells * log population).
func PercentRankExc(population []float64, x float64) float64 {
	n := len(population)
	if n < MinPopulationSize || !IsDefined(x) {
		return Undefined()
	}

	min, max := population[0], population[n-1]
	switch {
	case x < min || x > max:
		return Undefined()
	case x == min:
		return 1 / float64(n+1)
	case x == max:
		return float64(n) / float64(n+1)
	}

	// k is the right-insertion position of x: the 1-based index of the last
	// population value <= x. The boundary cases above guarantee
	// 1 <= k <= n-1 and population[k-1] < population[k].
	k := sort.Search(n, func(i int) bool { return population[i] > x })
	lo, hi := population[k-1], population[k]
	fraction := (x - lo) / (hi - lo)
	return (float64(k) + fraction) / float64(n+1)
}
