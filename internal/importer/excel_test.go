package importer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/gomonitor/internal/models"
)

func writeSpreadsheet(t *testing.T, rows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	_, err := f.NewSheet(SheetName)
	require.NoError(t, err)

	headers := make([]any, len(Headers))
	for i, h := range Headers {
		headers[i] = h
	}
	require.NoError(t, f.SetSheetRow(SheetName, "A1", &headers))

	for i, row := range rows {
		cell, cellErr := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, cellErr)
		require.NoError(t, f.SetSheetRow(SheetName, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "import.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseFile(t *testing.T) {
	path := writeSpreadsheet(t, [][]any{
		{42, "yahoo", "https://shop.example.com/item/42", "y-42"},
		{43, "mercari", "https://shop.example.com/item/43"},
	})

	inputs, rowErrors, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, inputs, 2)

	assert.Equal(t, int64(42), inputs[0].ExternalID)
	assert.Equal(t, models.PlatformYahoo, inputs[0].Platform)
	assert.Equal(t, "https://shop.example.com/item/42", inputs[0].SourceURL)
	require.NotNil(t, inputs[0].SourceProductID)
	assert.Equal(t, "y-42", *inputs[0].SourceProductID)

	assert.Nil(t, inputs[1].SourceProductID)
}

func TestParseFileCollectsRowErrors(t *testing.T) {
	path := writeSpreadsheet(t, [][]any{
		{42, "yahoo", "https://shop.example.com/item/42"},
		{"not-a-number", "yahoo", "https://shop.example.com/item/43"},
		{44, "amazon", "https://shop.example.com/item/44"},
		{45, "rakuten", "item/45"},
	})

	inputs, rowErrors, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	require.Len(t, rowErrors, 3)

	// Row numbers are 1-based Excel rows; the header is row 1.
	assert.Equal(t, 3, rowErrors[0].Row)
	assert.Contains(t, rowErrors[0].Error, "external_id")
	assert.Equal(t, 4, rowErrors[1].Row)
	assert.Contains(t, rowErrors[1].Error, "platform")
	assert.Equal(t, 5, rowErrors[2].Row)
	assert.Contains(t, rowErrors[2].Error, "source_url")
}

func TestParseFileSkipsEmptyRows(t *testing.T) {
	path := writeSpreadsheet(t, [][]any{
		{42, "yahoo", "https://shop.example.com/item/42"},
		{"", "", ""},
		{43, "mercari", "https://shop.example.com/item/43"},
	})

	inputs, rowErrors, err := ParseFile(path)
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	assert.Len(t, inputs, 2)
}

func TestParseFileMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "wrong.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, _, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseFileMissingFile(t *testing.T) {
	_, _, err := ParseFile(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}

func TestParseRowRejectsShortRows(t *testing.T) {
	_, parseErr := parseRow([]string{"42", "yahoo"})
	assert.Contains(t, parseErr, "too few columns")
}

func TestParseRowRejectsNonPositiveID(t *testing.T) {
	_, parseErr := parseRow([]string{"0", "yahoo", "https://shop.example.com/item/0"})
	assert.Contains(t, parseErr, "positive integer")

	_, parseErr = parseRow([]string{"-3", "yahoo", "https://shop.example.com/item/3"})
	assert.Contains(t, parseErr, "positive integer")
}
