package exporter

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"betascale/internal/betas"
)

func testResult() *betas.Result {
	return &betas.Result{
		Standardized: testMatrix(),
		Transformed:  testMatrix(),
		Report:       betas.Report{Rows: 3, Factors: 3},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFormatForInput(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"betas_2023_11_15.xlsx", FormatExcel},
		{"BETAS.XLSX", FormatExcel},
		{"betas_2023_11_15.csv", FormatCSV},
		{"betas.txt", FormatCSV},
		{"betas", FormatCSV},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatForInput(tt.filename), tt.filename)
	}
}

func TestFormatExtAndContentType(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Ext())
	assert.Equal(t, ".xlsx", FormatExcel.Ext())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Contains(t, FormatExcel.ContentType(), "spreadsheetml")
}

func TestOutputFileNames(t *testing.T) {
	assert.Equal(t, "transformed_factor_betas_2023_11_15.csv", TransformedFileName("2023_11_15", FormatCSV))
	assert.Equal(t, "transformed_factor_betas_2023_11_15.xlsx", TransformedFileName("2023_11_15", FormatExcel))
	assert.Equal(t, "standardized_factor_betas_2023_11_15.csv", StandardizedFileName("2023_11_15"))
}

func TestResultWriterBatchCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewResultWriter(discardLogger())

	paths, err := writer.WriteBatch(context.Background(), dir, "2023_11_15", FormatCSV, testResult())
	require.NoError(t, err)
	require.Len(t, paths, 2)

	assert.Equal(t, filepath.Join(dir, "standardized_factor_betas_2023_11_15.csv"), paths[0])
	assert.Equal(t, filepath.Join(dir, "transformed_factor_betas_2023_11_15.csv"), paths[1])

	for _, path := range paths {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(raw, utf8BOM), "%s missing BOM", filepath.Base(path))
	}
}

func TestResultWriterBatchExcel(t *testing.T) {
	dir := t.TempDir()
	writer := NewResultWriter(discardLogger())

	paths, err := writer.WriteBatch(context.Background(), dir, "2023_11_15", FormatExcel, testResult())
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, filepath.Join(dir, "transformed_factor_betas_2023_11_15.xlsx"), paths[0])

	book, err := excelize.OpenFile(paths[0])
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{SheetStandardized, SheetTransformed}, book.GetSheetList())
}

func TestResultWriterUnsupportedFormat(t *testing.T) {
	writer := NewResultWriter(discardLogger())
	_, err := writer.WriteBatch(context.Background(), t.TempDir(), "2023_11_15", Format("parquet"), testResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestWriteTransformedCSV(t *testing.T) {
	var buf bytes.Buffer
	writer := NewResultWriter(discardLogger())

	require.NoError(t, writer.WriteTransformed(&buf, FormatCSV, testResult()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))
	assert.Contains(t, buf.String(), "Ticker,Company,Momentum,Size,Value")
}

func TestWriteTransformedExcel(t *testing.T) {
	var buf bytes.Buffer
	writer := NewResultWriter(discardLogger())

	require.NoError(t, writer.WriteTransformed(&buf, FormatExcel, testResult()))

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	assert.Equal(t, []string{SheetTransformed}, book.GetSheetList())
}
