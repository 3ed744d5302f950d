package exporter

import (
	"bytes"
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/betas"
)

// testMatrix builds a small table exercising metadata headers, negative
// values, long fractions and undefined cells.
func testMatrix() *betas.Matrix {
	return &betas.Matrix{
		SymbolHeader: "Ticker",
		NameHeader:   "Company",
		Symbols:      []string{"AAA", "BBB", "CCC"},
		Names:        []string{"Alpha Airlines", "Beta Industrial", "Gamma Capital"},
		Factors:      []string{"Momentum", "Size", "Value"},
		Cells: [][]float64{
			{1.25, math.NaN(), -0.014705882352941176},
			{-2.5, 0.3333333333333333, 2},
			{0, 1e-07, math.NaN()},
		},
	}
}

func TestFormatCell(t *testing.T) {
	t.Run("undefined becomes empty field", func(t *testing.T) {
		assert.Equal(t, "", formatCell(math.NaN()))
		assert.Equal(t, "", formatCell(math.Inf(1)))
		assert.Equal(t, "", formatCell(math.Inf(-1)))
	})

	t.Run("defined values round trip exactly", func(t *testing.T) {
		values := []float64{
			0,
			2,
			-2.5,
			1.0 / 3.0,
			-0.014705882352941176,
			1e-07,
			123456.789,
		}
		for _, v := range values {
			text := formatCell(v)
			require.NotEmpty(t, text)

			parsed, err := strconv.ParseFloat(text, 64)
			require.NoError(t, err, "parse %q", text)
			assert.Equal(t, v, parsed, "value %v did not survive formatting", v)
		}
	})
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testMatrix(), CSVOptions{}))

	assert.False(t, bytes.HasPrefix(buf.Bytes(), utf8BOM), "BOM written without BOMPrefix")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, []string{"Ticker", "Company", "Momentum", "Size", "Value"}, records[0])
	assert.Equal(t, "AAA", records[1][0])
	assert.Equal(t, "Alpha Airlines", records[1][1])
	assert.Equal(t, "", records[1][3], "undefined cell must be an empty field")
	assert.Equal(t, "", records[3][4])
	assert.Equal(t, "2", records[2][4])

	parsed, err := strconv.ParseFloat(records[1][4], 64)
	require.NoError(t, err)
	assert.Equal(t, -0.014705882352941176, parsed)
}

func TestWriteCSVDefaultHeaders(t *testing.T) {
	matrix := testMatrix()
	matrix.SymbolHeader = ""
	matrix.NameHeader = ""

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, matrix, CSVOptions{}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Symbol", "Name", "Momentum", "Size", "Value"}, records[0])
}

func TestWriteCSVWithBOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testMatrix(), CSVOptions{BOMPrefix: true}))

	require.True(t, bytes.HasPrefix(buf.Bytes(), utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf.Bytes(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 4)
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "transformed_factor_betas_2023_11_15.csv")
	require.NoError(t, SaveCSV(path, testMatrix()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, utf8BOM), "saved files always carry a BOM")

	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(raw, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "CCC", records[3][0])
}
