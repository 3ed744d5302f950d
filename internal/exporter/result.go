package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"betascale/internal/betas"
)

// Format selects the serialization of a written result.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// File name prefixes for the two output tables.
const (
	transformedPrefix  = "transformed_factor_betas_"
	standardizedPrefix = "standardized_factor_betas_"
)

// FormatForInput picks the output format matching an input file name:
// workbooks come back as workbooks, all delimited inputs come back as CSV.
func FormatForInput(filename string) Format {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return FormatExcel
	}
	return FormatCSV
}

// Ext returns the file extension for the format, with the leading dot.
func (f Format) Ext() string {
	if f == FormatExcel {
		return ".xlsx"
	}
	return ".csv"
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// TransformedFileName returns the output file name for the transformed
// table, tagged with the run's trade date.
func TransformedFileName(dateTag string, format Format) string {
	return transformedPrefix + dateTag + format.Ext()
}

// StandardizedFileName returns the output file name for the standardized
// table. Workbook runs keep both tables in one file, so the standardized
// side only exists as CSV.
func StandardizedFileName(dateTag string) string {
	return standardizedPrefix + dateTag + ".csv"
}

// ResultWriter persists full pipeline results to an output directory.
type ResultWriter struct {
	logger *slog.Logger
}

// NewResultWriter creates a writer logging through the given logger.
func NewResultWriter(logger *slog.Logger) *ResultWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultWriter{logger: logger}
}

// WriteBatch writes both result tables to dir and returns the paths written.
// CSV runs produce one file per table; workbook runs produce a single file
// with one sheet per table.
func (w *ResultWriter) WriteBatch(ctx context.Context, dir, dateTag string, format Format, result *betas.Result) ([]string, error) {
	switch format {
	case FormatExcel:
		path := filepath.Join(dir, TransformedFileName(dateTag, format))
		err := SaveWorkbook(path,
			Sheet{Name: SheetStandardized, Matrix: result.Standardized},
			Sheet{Name: SheetTransformed, Matrix: result.Transformed},
		)
		if err != nil {
			return nil, err
		}
		w.logger.InfoContext(ctx, "wrote transformed workbook",
			"file", path,
			"rows", result.Transformed.Rows(),
			"factors", result.Transformed.FactorCount(),
		)
		return []string{path}, nil

	case FormatCSV:
		standardized := filepath.Join(dir, StandardizedFileName(dateTag))
		if err := SaveCSV(standardized, result.Standardized); err != nil {
			return nil, err
		}
		transformed := filepath.Join(dir, TransformedFileName(dateTag, format))
		if err := SaveCSV(transformed, result.Transformed); err != nil {
			return nil, err
		}
		w.logger.InfoContext(ctx, "wrote transformed tables",
			"standardized", standardized,
			"transformed", transformed,
			"rows", result.Transformed.Rows(),
			"factors", result.Transformed.FactorCount(),
		)
		return []string{standardized, transformed}, nil

	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteTransformed streams only the transformed table, for callers that hand
// the result straight back over HTTP.
func (w *ResultWriter) WriteTransformed(dst io.Writer, format Format, result *betas.Result) error {
	if format == FormatExcel {
		return WriteWorkbook(dst, Sheet{Name: SheetTransformed, Matrix: result.Transformed})
	}
	return WriteCSV(dst, result.Transformed, CSVOptions{BOMPrefix: true})
}
