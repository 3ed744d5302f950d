package exporter

import (
	"strconv"

	"betascale/internal/betas"
)

// formatCell formats one numeric cell for delimited output. Undefined cells
// become empty fields; defined values use the shortest decimal form that
// parses back to the identical float64.
func formatCell(v float64) string {
	if !betas.IsDefined(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// matrixHeader rebuilds the table header: the two metadata column names from
// the input, then the factor names. Canonical names fill in when the input
// carried blank metadata headers.
func matrixHeader(m *betas.Matrix) []string {
	symbol, name := m.SymbolHeader, m.NameHeader
	if symbol == "" {
		symbol = "Symbol"
	}
	if name == "" {
		name = "Name"
	}
	header := make([]string, 0, 2+len(m.Factors))
	header = append(header, symbol, name)
	return append(header, m.Factors...)
}
