package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/reportmill/internal/report"
)

const (
	pdfMargin    = 10.0
	pdfRowHeight = 7.0
)

// renderPDF lays out a metadata header, a summary block and the data table.
// The table paginates: when a row would cross the bottom margin a new page
// is started and the column header row is re-drawn, so no row is ever
// silently dropped.
func renderPDF(rep *report.Report, opts Options) ([]byte, string, error) {
	orientation := opts.Orientation
	if orientation == "" {
		orientation = "P"
	}
	pageSize := opts.PageSize
	if pageSize == "" {
		pageSize = "A4"
	}

	pdf := fpdf.New(orientation, "mm", pageSize, "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	usableW := pageW - 2*pdfMargin

	// Metadata header.
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(usableW, 10, rep.Metadata.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usableW, 5, fmt.Sprintf("Report type: %s", rep.Metadata.ReportType), "", 1, "C", false, 0, "")
	pdf.CellFormat(usableW, 5, fmt.Sprintf("Generated: %s", rep.Metadata.GeneratedAt.Format("2006-01-02 15:04:05 MST")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Summary block.
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(usableW, 7, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(usableW, 5, fmt.Sprintf("Total records: %d", rep.Summary.TotalRecords), "", 1, "L", false, 0, "")
	pdf.CellFormat(usableW, 5, fmt.Sprintf("Date range: %s - %s",
		rep.Summary.From.Format("2006-01-02"), rep.Summary.To.Format("2006-01-02")), "", 1, "L", false, 0, "")
	for _, key := range sortedKeys(rep.Summary.Aggregates) {
		pdf.CellFormat(usableW, 5, fmt.Sprintf("%s: %v", columnTitle(key), rep.Summary.Aggregates[key]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(rep.Columns) == 0 {
		return pdfBytes(pdf)
	}

	colW := usableW / float64(len(rep.Columns))
	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range rep.Columns {
			pdf.CellFormat(colW, pdfRowHeight, columnTitle(col), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	header()

	bottom := pageH - pdfMargin
	for _, row := range rep.Rows {
		if pdf.GetY()+pdfRowHeight > bottom {
			pdf.AddPage()
			header()
		}
		for _, col := range rep.Columns {
			pdf.CellFormat(colW, pdfRowHeight, fitCell(pdf, cellString(row[col]), colW), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdfBytes(pdf)
}

// fitCell truncates a value that would overflow its column instead of
// letting it bleed into the next cell.
func fitCell(pdf *fpdf.Fpdf, s string, width float64) string {
	const pad = 2.0
	if pdf.GetStringWidth(s) <= width-pad {
		return s
	}
	r := []rune(s)
	for len(r) > 1 && pdf.GetStringWidth(string(r)+"...") > width-pad {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func pdfBytes(pdf *fpdf.Fpdf) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), "application/pdf", nil
}
