package betas

// Rescale maps an exclusive percentile rank in (0, 1) onto the calibrated
// output scale:
//
//	transformed = (rank*100 - RescaleOffset) / RescaleDivisor
//
// The constants center the scale near the median rank and spread it so one
// unit corresponds to roughly one standard deviation of the historical
// distribution; they are fixed by the output contract. Undefined ranks pass
// through unchanged.
func Rescale(rank float64) float64 {
	if IsUndefined(rank) {
		return Undefined()
	}
	return (rank*100 - RescaleOffset) / RescaleDivisor
}
