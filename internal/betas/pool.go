package betas

import "sort"

// BuildPopulation flattens every defined cell of a standardized table into a
// single ascending population. The population is shared by every rank lookup
// in a run, so it is assembled and sorted exactly once.
func BuildPopulation(m *Matrix) []float64 {
	population := make([]float64, 0, m.Rows()*m.FactorCount())
	for _, row := range m.Cells {
		for _, v := range row {
			if IsDefined(v) {
				population = append(population, v)
			}
		}
	}
	sort.Float64s(population)
	return population
}
