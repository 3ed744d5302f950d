package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"betascale/internal/betas"
)

// utf8BOM marks delimited output as UTF-8 so Excel decodes it correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions controls how a matrix is rendered as delimited text.
type CSVOptions struct {
	// BOMPrefix writes a UTF-8 byte order mark before the header row.
	BOMPrefix bool
}

// WriteCSV renders a matrix as comma-separated text on w: one header row
// with the metadata columns followed by the factor names, then one row per
// entity. Undefined cells are written as empty fields, never as zeros.
func WriteCSV(w io.Writer, m *betas.Matrix, opts CSVOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(matrixHeader(m)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 0, 2+m.FactorCount())
	for i := 0; i < m.Rows(); i++ {
		row = row[:0]
		row = append(row, m.Symbols[i], m.Names[i])
		for _, v := range m.Cells[i] {
			row = append(row, formatCell(v))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveCSV writes a matrix to path, creating parent directories as needed.
// Saved files always carry a BOM so double-clicking them opens cleanly in
// Excel.
func SaveCSV(path string, m *betas.Matrix) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	if err := WriteCSV(file, m, CSVOptions{BOMPrefix: true}); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return file.Close()
}
