package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

func TestRenderJSON(t *testing.T) {
	rep := sampleReport()

	artifact, err := Render(rep, models.FormatJSON, Options{})
	require.NoError(t, err)
	assert.Equal(t, "application/json", artifact.MIMEType)
	assert.Equal(t, int64(len(artifact.Content)), artifact.Size)

	var decoded report.Report
	require.NoError(t, json.Unmarshal(artifact.Content, &decoded))
	assert.Equal(t, rep.Metadata.Title, decoded.Metadata.Title)
	assert.Len(t, decoded.Rows, 2)
}

func TestRenderExcel(t *testing.T) {
	rep := sampleReport()
	rep.Charts = []report.ChartDataset{
		{Name: "Scores", Labels: []string{"Ada", "Grace"}, Values: []float64{97.5, 99}},
	}

	artifact, err := Render(rep, models.FormatExcel, Options{})
	require.NoError(t, err)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", artifact.MIMEType)

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Content))
	require.NoError(t, err)
	defer f.Close()

	assert.Contains(t, f.GetSheetList(), "Report")
	assert.Contains(t, f.GetSheetList(), "Scores")

	title, err := f.GetCellValue("Report", "A1")
	require.NoError(t, err)
	assert.Equal(t, rep.Metadata.Title, title)

	rows, err := f.GetRows("Report")
	require.NoError(t, err)
	var found bool
	for _, row := range rows {
		if len(row) > 0 && row[0] == "Ada Lovelace" {
			found = true
		}
	}
	assert.True(t, found, "data row missing from workbook")
}

func TestRenderPDF(t *testing.T) {
	rep := sampleReport()

	artifact, err := Render(rep, models.FormatPDF, Options{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", artifact.MIMEType)
	assert.True(t, bytes.HasPrefix(artifact.Content, []byte("%PDF")), "not a pdf header")
}

func TestRenderPDFPaginatesLongTables(t *testing.T) {
	rep := sampleReport()
	rep.Rows = nil
	for i := 0; i < 200; i++ {
		rep.Rows = append(rep.Rows, map[string]any{
			"studentName": fmt.Sprintf("Student %03d", i),
			"score":       float64(i),
			"enrolledAt":  time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC),
		})
	}

	small, err := Render(sampleReport(), models.FormatPDF, Options{})
	require.NoError(t, err)
	large, err := Render(rep, models.FormatPDF, Options{})
	require.NoError(t, err)

	// 200 rows cannot fit on one page; the document must grow instead of
	// truncating. Page objects show up as /Type /Page entries.
	assert.Greater(t, pageCount(large.Content), pageCount(small.Content))
}

func pageCount(pdf []byte) int {
	return bytes.Count(pdf, []byte("/Type /Page\r")) + bytes.Count(pdf, []byte("/Type /Page\n"))
}

func TestRenderPDFOrientationOptions(t *testing.T) {
	_, err := Render(sampleReport(), models.FormatPDF, Options{Orientation: "L", PageSize: "Letter"})
	require.NoError(t, err)
}

func TestRenderRejectsUnsupportedFormat(t *testing.T) {
	_, err := Render(sampleReport(), models.ExportFormat("docx"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	rep := sampleReport()
	before, err := json.Marshal(rep)
	require.NoError(t, err)

	for _, format := range []models.ExportFormat{models.FormatJSON, models.FormatCSV, models.FormatExcel, models.FormatPDF} {
		_, err := Render(rep, format, Options{})
		require.NoError(t, err)
	}

	after, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFileNameDerivedFromTitle(t *testing.T) {
	artifact, err := Render(sampleReport(), models.FormatCSV, Options{})
	require.NoError(t, err)
	assert.Equal(t, "report-execution-history-20240108-080000.csv", artifact.FileName)
}
