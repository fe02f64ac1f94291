package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/reportmill/internal/report"
)

// renderExcel builds a workbook with a title/summary block followed by the
// data table. Cell values keep their native types (numbers stay numbers,
// times stay dates). Each chart dataset gets its own sheet.
func renderExcel(rep *report.Report) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("failed to rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	f.SetCellValue(sheet, cell(1, row), rep.Metadata.Title)
	f.SetCellStyle(sheet, cell(1, row), cell(1, row), bold)
	row++
	f.SetCellValue(sheet, cell(1, row), "Generated At")
	f.SetCellValue(sheet, cell(2, row), rep.Metadata.GeneratedAt)
	row++
	f.SetCellValue(sheet, cell(1, row), "Report Type")
	f.SetCellValue(sheet, cell(2, row), rep.Metadata.ReportType)
	row += 2

	f.SetCellValue(sheet, cell(1, row), "Summary")
	f.SetCellStyle(sheet, cell(1, row), cell(1, row), bold)
	row++
	f.SetCellValue(sheet, cell(1, row), "Total Records")
	f.SetCellValue(sheet, cell(2, row), rep.Summary.TotalRecords)
	row++
	f.SetCellValue(sheet, cell(1, row), "Date Range")
	f.SetCellValue(sheet, cell(2, row), fmt.Sprintf("%s - %s",
		rep.Summary.From.Format("2006-01-02"), rep.Summary.To.Format("2006-01-02")))
	row++
	for _, key := range sortedKeys(rep.Summary.Aggregates) {
		f.SetCellValue(sheet, cell(1, row), columnTitle(key))
		f.SetCellValue(sheet, cell(2, row), fmt.Sprintf("%v", rep.Summary.Aggregates[key]))
		row++
	}
	row++

	// Data table header.
	for i, col := range rep.Columns {
		f.SetCellValue(sheet, cell(i+1, row), columnTitle(col))
		f.SetCellStyle(sheet, cell(i+1, row), cell(i+1, row), bold)
	}
	row++

	for _, r := range rep.Rows {
		for i, col := range rep.Columns {
			if v := r[col]; v != nil {
				f.SetCellValue(sheet, cell(i+1, row), v)
			}
		}
		row++
	}

	for _, chart := range rep.Charts {
		name := chart.Name
		if name == "" || len(name) > 31 {
			name = "Chart"
		}
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", fmt.Errorf("failed to add chart sheet: %w", err)
		}
		f.SetCellValue(name, cell(1, 1), "Label")
		f.SetCellValue(name, cell(2, 1), "Value")
		f.SetCellStyle(name, cell(1, 1), cell(2, 1), bold)
		for i, label := range chart.Labels {
			f.SetCellValue(name, cell(1, i+2), label)
			if i < len(chart.Values) {
				f.SetCellValue(name, cell(2, i+2), chart.Values[i])
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
