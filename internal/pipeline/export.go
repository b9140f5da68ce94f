package pipeline

import (
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

const highlightFill = "#FFE699"

// EncodeXLSX writes the table as a single worksheet named sheetName.
func EncodeXLSX(table ExportTable, sheetName string, w io.Writer) error {
	f, err := buildWorkbook(table, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func WriteXLSX(table ExportTable, sheetName, outputPath string) error {
	f, err := buildWorkbook(table, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func buildWorkbook(table ExportTable, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if sheetName != "" && sheetName != sheet {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			_ = f.Close()
			return nil, err
		}
		sheet = sheetName
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	highlightStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightFill}},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, h := range table.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if len(table.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	for i, row := range table.Rows {
		r := i + 2
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellValue(sheet, cell, value)
		}
		if table.Highlight[i] && len(table.Headers) > 0 {
			first, _ := excelize.CoordinatesToCellName(1, r)
			last, _ := excelize.CoordinatesToCellName(len(table.Headers), r)
			_ = f.SetCellStyle(sheet, first, last, highlightStyle)
		}
	}

	return f, nil
}
