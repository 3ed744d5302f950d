// Package exporter persists transformation results as delimited text and
// xlsx workbooks.
//
// This package contains three main components:
//
// CSV writing: matrix serialization with the input's header layout, empty
// fields for undefined cells, and a UTF-8 BOM for Excel compatibility.
//
// Workbook writing: single- and multi-sheet xlsx output where undefined
// cells stay blank so spreadsheet formulas skip them.
//
// ResultWriter: format selection and file naming for full runs, producing
// transformed_factor_betas_<date> files next to the standardized table.
//
// Example usage:
//
//	writer := exporter.NewResultWriter(logger)
//	format := exporter.FormatForInput("betas_2023_11_15.xlsx")
//	paths, err := writer.WriteBatch(ctx, outputDir, "2023_11_15", format, result)
package exporter
