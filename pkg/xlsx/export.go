package xlsx

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ruslano69/tradesync/pkg/dataset"
	"github.com/ruslano69/tradesync/pkg/normalize"
)

// Export writes a dataset to an XLSX file for human review of the merged
// ledger. Numeric fields become real number cells and parseable dates
// become date cells, so the sheet sorts and sums without conversion.
//
// Example:
//
//	err := xlsx.Export(result.Dataset, norm, "ledger.xlsx", "Transactions")
func Export(ds *dataset.Dataset, norm *normalize.Normalizer, filePath, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Sheet1"
	}

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for col, column := range ds.Header {
		cell := columnName(col+1) + "1"
		f.SetCellValue(sheetName, cell, column)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	dateStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("yyyy-mm-dd hh:mm:ss"),
	})

	for rowIdx, row := range ds.Rows {
		for col, column := range ds.Header {
			cell := columnName(col+1) + strconv.Itoa(rowIdx+2)
			value := ds.Value(row, col)

			switch {
			case norm != nil && column == norm.DateField():
				if t, ok := norm.Date(value); ok {
					f.SetCellValue(sheetName, cell, t)
					f.SetCellStyle(sheetName, cell, cell, dateStyle)
					continue
				}
				f.SetCellValue(sheetName, cell, value)

			case norm != nil && norm.IsNumericField(column):
				if num, err := strconv.ParseFloat(norm.Number(value), 64); err == nil {
					f.SetCellValue(sheetName, cell, num)
					continue
				}
				f.SetCellValue(sheetName, cell, value)

			default:
				f.SetCellValue(sheetName, cell, value)
			}
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save xlsx file: %w", err)
	}
	return nil
}

// columnName converts a 1-based column index to Excel notation
// (1 -> A, 27 -> AA).
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

func strPtr(s string) *string {
	return &s
}
