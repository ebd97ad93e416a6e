package output

import (
	"bytes"
	"fmt"

	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/xuri/excelize/v2"
)

// currencyNumFmt is the custom number format applied to amount cells.
const currencyNumFmt = "#,##0.00;-#,##0.00"

// ExcelFormat renders the forecast as an XLSX workbook: a "Forecast" sheet
// with the matrix and totals, and a "Verification" sheet when v is present.
// Amounts are written as numbers rounded to cents.
func ExcelFormat(result *forecast.Result, v *forecast.Verification) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("no forecast to render")
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Forecast"
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#374151"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Border: thinBorders()})
	if err != nil {
		return nil, fmt.Errorf("create label style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(currencyNumFmt),
		Border:       thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}
	overrideStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(currencyNumFmt),
		Font:         &excelize.Font{Italic: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#FEF3C7"}, Pattern: 1},
		Border:       thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create override style: %w", err)
	}
	totalsStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(currencyNumFmt),
		Font:         &excelize.Font{Bold: true},
		Border:       thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create totals style: %w", err)
	}

	columnCount := len(forecast.Columns) + 1
	lastCol, err := excelize.ColumnNumberToName(columnCount)
	if err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 36); err != nil {
		return nil, fmt.Errorf("set col width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", lastCol, 18); err != nil {
		return nil, fmt.Errorf("set col width: %w", err)
	}

	title := "Contract forecast for project " + result.ProjectID
	if result.Period != "" {
		title += " (" + result.Period + ")"
	}
	_ = f.SetCellValue(sheetName, "A1", sanitizeExcelCell(title))
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	// Row 3 holds the headers; data starts on row 4.
	const headerRow = 3
	headers := append([]string{"Cost Code"}, result.Headers()...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(columnCount, headerRow)
	_ = f.SetCellStyle(sheetName, first, last, headerStyle)
	_ = f.SetRowHeight(sheetName, headerRow, 60)

	writeRow := func(row int, label string, amounts forecast.Amounts, style int, overridden func(forecast.Column) bool) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, sanitizeExcelCell(label))
		_ = f.SetCellStyle(sheetName, cell, cell, labelStyle)
		for i, c := range forecast.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+2, row)
			value, _ := amounts.Get(c).Float64()
			_ = f.SetCellValue(sheetName, cell, value)
			cellStyle := style
			if overridden(c) {
				cellStyle = overrideStyle
			}
			_ = f.SetCellStyle(sheetName, cell, cell, cellStyle)
		}
	}

	row := headerRow + 1
	for _, line := range result.Lines {
		writeRow(row, line.Label(), line.Amounts, amountStyle, line.IsOverridden)
		row++
	}
	writeRow(row, TotalsLabel, result.Totals.Amounts, totalsStyle, func(forecast.Column) bool { return false })
	if totalsLabel, err := excelize.CoordinatesToCellName(1, row); err == nil {
		_ = f.SetCellStyle(sheetName, totalsLabel, totalsLabel, totalsStyle)
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      1,
		YSplit:      headerRow,
		TopLeftCell: "B4",
		ActivePane:  "bottomRight",
	}); err != nil {
		return nil, fmt.Errorf("freeze panes: %w", err)
	}

	if v != nil {
		if err := writeVerificationSheet(f, v, headerStyle, labelStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func writeVerificationSheet(f *excelize.File, v *forecast.Verification, headerStyle, labelStyle int) error {
	sheetName := "Verification"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("create verification sheet: %w", err)
	}
	_ = f.SetColWidth(sheetName, "A", "A", 10)
	_ = f.SetColWidth(sheetName, "B", "B", 110)

	_ = f.SetCellValue(sheetName, "A1", "Result")
	_ = f.SetCellValue(sheetName, "B1", "Check")
	_ = f.SetCellStyle(sheetName, "A1", "B1", headerStyle)

	for i, c := range v.Checks {
		row := i + 2
		status := "PASS"
		if !c.OK {
			status = "FAIL"
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), sanitizeExcelCell(c.Label))
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), labelStyle)
	}

	summaryRow := len(v.Checks) + 3
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), v.Summary())
	return nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1,
		}
	}
	return borders
}

func strPtr(s string) *string {
	return &s
}
