package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"betascale/internal/betas"
)

// MinTableColumns is the smallest usable table width: symbol, name and at
// least one factor column.
const MinTableColumns = 3

// Errors callers can branch on when rejecting an input file.
var (
	ErrUnsupportedFormat = errors.New("unsupported input format")
	ErrTooFewColumns     = errors.New("input needs a symbol column, a name column and at least one factor column")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader turns uploaded or on-disk beta tables into matrices.
type Reader struct {
	logger *slog.Logger
}

// NewReader creates a reader. A nil logger falls back to slog.Default().
func NewReader(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// ReadFile reads the table at path. The sheet argument selects the workbook
// sheet for Excel inputs and is ignored for delimited text; an empty sheet
// means the workbook's first sheet.
func (r *Reader) ReadFile(ctx context.Context, path, sheet string) (*betas.Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return r.Read(ctx, f, filepath.Base(path), sheet)
}

// Read reads one table from src. The filename decides the format by
// extension: .csv and .txt are delimited text, .xlsx is an Excel workbook.
func (r *Reader) Read(ctx context.Context, src io.Reader, filename, sheet string) (*betas.Matrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return r.readDelimited(ctx, src, filename)
	case ".xlsx":
		return r.readExcel(ctx, src, filename, sheet)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// readDelimited decodes, sniffs the delimiter and parses a text table.
func (r *Reader) readDelimited(ctx context.Context, src io.Reader, filename string) (*betas.Matrix, error) {
	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	text, encoding := decodeText(raw)
	if encoding != "utf-8" {
		r.logger.WarnContext(ctx, "input decoded with fallback encoding",
			"file", filename,
			"encoding", encoding,
		)
	}

	delimiter := sniffDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse delimited input: file is empty")
	}

	r.logger.InfoContext(ctx, "parsed delimited input",
		"file", filename,
		"delimiter", string(delimiter),
		"rows", len(records)-1,
	)

	return buildMatrix(records[0], records[1:])
}

// readExcel parses one sheet of a workbook.
func (r *Reader) readExcel(ctx context.Context, src io.Reader, filename, sheet string) (*betas.Matrix, error) {
	workbook, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	}

	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q (available: %s): %w",
			sheet, strings.Join(sheets, ", "), err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	r.logger.InfoContext(ctx, "parsed workbook input",
		"file", filename,
		"sheet", sheet,
		"rows", len(rows)-1,
	)

	// Excel storage trims trailing blank cells, so short rows are padded
	// back to the header width before validation. Rows wider than the
	// header are genuinely misaligned and stay that way.
	header := rows[0]
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		for len(row) < len(header) {
			row = append(row, "")
		}
		records = append(records, row)
	}

	return buildMatrix(header, records)
}

// buildMatrix validates the header and assembles the cell grid. Structural
// problems are fatal: a table that cannot be trusted is rejected whole.
func buildMatrix(header []string, records [][]string) (*betas.Matrix, error) {
	if len(header) < MinTableColumns {
		return nil, fmt.Errorf("%w: found %d columns", ErrTooFewColumns, len(header))
	}

	factors := make([]string, len(header)-2)
	seen := make(map[string]int, len(factors))
	for j, name := range header[2:] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("factor column %d has an empty header", j+MinTableColumns)
		}
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("duplicate factor column %q (columns %d and %d)",
				name, prev+MinTableColumns, j+MinTableColumns)
		}
		seen[name] = j
		factors[j] = name
	}

	matrix := &betas.Matrix{
		SymbolHeader: strings.TrimSpace(header[0]),
		NameHeader:   strings.TrimSpace(header[1]),
		Symbols:      make([]string, len(records)),
		Names:        make([]string, len(records)),
		Factors:      factors,
		Cells:        make([][]float64, len(records)),
	}

	for i, record := range records {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, header has %d",
				i+2, len(record), len(header))
		}
		matrix.Symbols[i] = strings.TrimSpace(record[0])
		matrix.Names[i] = strings.TrimSpace(record[1])

		cells := make([]float64, len(factors))
		for j, cell := range record[2:] {
			cells[j] = ParseCell(cell)
		}
		matrix.Cells[i] = cells
	}

	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	return matrix, nil
}

// decodeText decodes raw bytes as UTF-8 (tolerating a BOM) and falls back to
// Latin-1, which accepts any byte sequence but is flagged so the caller can
// warn about it.
func decodeText(raw []byte) (text, encoding string) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), "utf-8"
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String(), "latin-1"
}

// sniffDelimiter picks the delimiter from the header line: whichever of
// comma, semicolon and tab occurs most often wins, with comma as the
// tie-break default.
func sniffDelimiter(text string) rune {
	header := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		header = text[:idx]
	}

	best, bestCount := ',', strings.Count(header, ",")
	for _, candidate := range []rune{';', '\t'} {
		if count := strings.Count(header, string(candidate)); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}
