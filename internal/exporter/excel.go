package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"betascale/internal/betas"
)

// Worksheet names used by workbook outputs.
const (
	SheetStandardized = "StandardizedBetas"
	SheetTransformed  = "TransformedBetas"
)

// Sheet pairs a worksheet name with the matrix written to it.
type Sheet struct {
	Name   string
	Matrix *betas.Matrix
}

// WriteWorkbook renders the given sheets as an xlsx workbook on w. Each
// sheet carries the same header layout as CSV output; undefined cells are
// left blank so spreadsheet formulas skip them.
func WriteWorkbook(w io.Writer, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook needs at least one sheet")
	}

	book := excelize.NewFile()
	defer book.Close()

	for idx, sheet := range sheets {
		if idx == 0 {
			if err := book.SetSheetName(book.GetSheetName(0), sheet.Name); err != nil {
				return fmt.Errorf("name sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := book.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(book, sheet.Name, sheet.Matrix); err != nil {
			return err
		}
	}

	if _, err := book.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveWorkbook writes the sheets to an xlsx file at path, creating parent
// directories as needed.
func SaveWorkbook(path string, sheets ...Sheet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := WriteWorkbook(file, sheets...); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}

// writeSheet fills one worksheet with a matrix. Numeric cells are written as
// native numbers so precision survives a round trip through the workbook.
func writeSheet(book *excelize.File, name string, m *betas.Matrix) error {
	header := matrixHeader(m)
	headerRow := make([]interface{}, len(header))
	for j, h := range header {
		headerRow[j] = h
	}
	if err := book.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header of %q: %w", name, err)
	}

	for i := 0; i < m.Rows(); i++ {
		row := make([]interface{}, 0, len(header))
		row = append(row, m.Symbols[i], m.Names[i])
		for _, v := range m.Cells[i] {
			if betas.IsDefined(v) {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}

		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("address row %d of %q: %w", i+2, name, err)
		}
		if err := book.SetSheetRow(name, anchor, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, name, err)
		}
	}
	return nil
}
