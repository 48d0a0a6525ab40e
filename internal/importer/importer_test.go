package importer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Deals")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			row.AddCell().SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadWorkbook_Basic(t *testing.T) {
	path := createTestWorkbook(t, [][]string{
		{"Deal", "Deal Stage", "Intro Date", "Industry"},
		{"Deal", "Deal Stage", "Intro Date", "Industry"}, // repeated header
		{"Acme", "2. Qualification", "2025-01-15", "Healthcare"},
		{"Globex", "1. Intro", "45931", ""},
	})

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	assert.Equal(t, "Deals", wb.SheetName)

	require.Len(t, wb.Columns, 4)
	assert.Equal(t, "deal", wb.Columns[0].ID)
	assert.Equal(t, "Deal Stage", wb.Columns[1].Title)
	assert.Equal(t, "deal_stage", wb.Columns[1].ID)
	assert.Equal(t, "intro_date", wb.Columns[2].ID)

	require.Len(t, wb.Records, 2)
	assert.Equal(t, "Acme", wb.Records[0].Name)
	assert.Equal(t, "2. Qualification", wb.Records[0].Fields["deal_stage"].Text)
	assert.Equal(t, "Healthcare", wb.Records[0].Fields["industry"].Text)
	// Serial dates pass through as text for the parser downstream.
	assert.Equal(t, "45931", wb.Records[1].Fields["intro_date"].Text)
}

func TestReadWorkbook_SkipsBlankRows(t *testing.T) {
	path := createTestWorkbook(t, [][]string{
		{"Deal", "Deal Stage"},
		{"", ""},
		{"", ""},
		{"Acme", "1. Intro"},
		{"  ", "  "},
	})

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, wb.Records, 1)
	assert.Equal(t, "Acme", wb.Records[0].Name)
}

func TestReadWorkbook_ShortRows(t *testing.T) {
	path := createTestWorkbook(t, [][]string{
		{"Deal", "Deal Stage", "Industry"},
		{"", "", ""},
		{"Acme", "1. Intro"},
	})

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, wb.Records, 1)
	_, ok := wb.Records[0].Fields["industry"]
	assert.False(t, ok)
}

func TestReadWorkbook_DuplicateAndBlankTitles(t *testing.T) {
	path := createTestWorkbook(t, [][]string{
		{"Deal", "Industry", "", "Industry"},
		{"", "", "", ""},
		{"Acme", "Retail", "x", "Finance"},
	})

	wb, err := ReadWorkbook(path)
	require.NoError(t, err)
	require.Len(t, wb.Columns, 2)
	// First occurrence of a duplicated title wins.
	assert.Equal(t, "Retail", wb.Records[0].Fields["industry"].Text)
}

func TestReadWorkbook_Errors(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")

	path := createTestWorkbook(t, [][]string{{"", ""}})
	_, err = ReadWorkbook(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no titles")
}
