package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		Metadata: report.Metadata{
			ReportType:  "execution_history",
			Title:       "Report Execution History",
			GeneratedAt: time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC),
		},
		Summary: report.Summary{
			TotalRecords: 2,
			From:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:           time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
			Aggregates:   map[string]any{"completed": 2},
		},
		Columns: []string{"studentName", "score", "enrolledAt"},
		Rows: []map[string]any{
			{"studentName": "Ada Lovelace", "score": 97.5, "enrolledAt": time.Date(2023, time.September, 1, 0, 0, 0, 0, time.UTC)},
			{"studentName": "Grace Hopper", "score": 99.0, "enrolledAt": time.Date(2023, time.September, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	rep := sampleReport()

	artifact, err := Render(rep, models.FormatCSV, Options{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(artifact.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Student Name", "Score", "Enrolled At"}, records[0])
	assert.Equal(t, "Ada Lovelace", records[1][0])
	assert.Equal(t, "97.5", records[1][1])
	assert.Equal(t, "Grace Hopper", records[2][0])
}

func TestCSVQuotesSpecialCharacters(t *testing.T) {
	rep := &report.Report{
		Metadata: report.Metadata{Title: "Edge Cases", GeneratedAt: time.Now()},
		Columns:  []string{"value"},
		Rows: []map[string]any{
			{"value": `has "quotes" inside`},
			{"value": "comma, separated"},
			{"value": "line\nbreak"},
		},
	}

	artifact, err := Render(rep, models.FormatCSV, Options{})
	require.NoError(t, err)

	raw := string(artifact.Content)
	assert.Contains(t, raw, `"has ""quotes"" inside"`)
	assert.Contains(t, raw, `"comma, separated"`)

	// A standard reader recovers the exact field values.
	records, err := csv.NewReader(bytes.NewReader(artifact.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, `has "quotes" inside`, records[1][0])
	assert.Equal(t, "comma, separated", records[2][0])
	assert.Equal(t, "line\nbreak", records[3][0])
}

func TestCSVZeroRowsProducesHeaderOnly(t *testing.T) {
	rep := &report.Report{
		Metadata: report.Metadata{Title: "Empty", GeneratedAt: time.Now()},
		Columns:  []string{"studentName", "score"},
	}

	artifact, err := Render(rep, models.FormatCSV, Options{})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(artifact.Content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"Student Name", "Score"}, records[0])
}

func TestColumnTitle(t *testing.T) {
	tests := map[string]string{
		"studentName":    "Student Name",
		"student_name":   "Student Name",
		"score":          "Score",
		"totalFileSize":  "Total File Size",
		"generated-at":   "Generated At",
		"alreadyTitled ": "Already Titled",
	}
	for in, want := range tests {
		assert.Equal(t, want, columnTitle(in), "columnTitle(%q)", in)
	}
}
