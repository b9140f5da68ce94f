package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal"
)

func TestEncodeXLSX(t *testing.T) {
	subjects := []internal.Subject{
		{Code: "2301234", Acronym: "ABC", Groups: []internal.Group{{Program: "948", BlockName: "Optatives"}}},
		{Code: "2305678", Acronym: "DEF", Groups: []internal.Group{}},
	}
	table := Project(subjects, map[string]bool{"2305678": true})

	var buf bytes.Buffer
	require.NoError(t, EncodeXLSX(table, "Assignatures", &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Assignatures"}, f.GetSheetList())
	rows, err := f.GetRows("Assignatures")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Codi UPC", rows[0][0])
	assert.Equal(t, "MET 1", rows[0][8])
	assert.Equal(t, "Optatives", rows[1][8])
	assert.Equal(t, "2305678", rows[2][0])

	plain, err := f.GetCellStyle("Assignatures", "A2")
	require.NoError(t, err)
	marked, err := f.GetCellStyle("Assignatures", "A3")
	require.NoError(t, err)
	assert.NotEqual(t, plain, marked)

	style, err := f.GetStyle(marked)
	require.NoError(t, err)
	require.Len(t, style.Fill.Color, 1)
	assert.Contains(t, strings.ToUpper(style.Fill.Color[0]), "FFE699")
}

func TestWriteXLSXCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.xlsx")
	table := Project([]internal.Subject{{Code: "2301234", Acronym: "ABC"}}, nil)
	require.NoError(t, WriteXLSX(table, "", path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(f.GetSheetName(0), "A2")
	require.NoError(t, err)
	assert.Equal(t, "2301234", v)
}
