package dataprocessing

import (
	"strconv"
	"strings"

	"betascale/internal/betas"
)

// Text fragments that show up in numeric cells exported from spreadsheets
// and terminals. They are normalized away before parsing.
var numericCleaner = strings.NewReplacer(
	" ", "", // no-break space
	",", "", // thousands separator
	"−", "-", // Unicode minus sign
)

// CleanNumericText normalizes the spreadsheet artifacts commonly found in
// numeric cells: surrounding whitespace, no-break spaces, thousands-separator
// commas and the Unicode minus sign.
func CleanNumericText(s string) string {
	return strings.TrimSpace(numericCleaner.Replace(s))
}

// ParseCell converts one factor cell to a float64. Blank, unparseable and
// non-finite cells map to the undefined sentinel; they never collapse to
// zero.
func ParseCell(s string) float64 {
	cleaned := CleanNumericText(s)
	if cleaned == "" {
		return betas.Undefined()
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !betas.IsDefined(v) {
		return betas.Undefined()
	}
	return v
}
