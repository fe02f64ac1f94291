package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/reportmill/internal/report"
)

// renderCSV writes one header row of humanized column titles followed by one
// row per record, in input order. Quoting (fields containing commas, quotes
// or line breaks) follows RFC 4180 via encoding/csv. A report with zero rows
// still yields a header-only file.
func renderCSV(rep *report.Report) ([]byte, string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(rep.Columns))
	for i, col := range rep.Columns {
		header[i] = columnTitle(col)
	}
	if err := w.Write(header); err != nil {
		return nil, "", fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(rep.Columns))
	for _, row := range rep.Rows {
		for i, col := range rep.Columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), "text/csv", nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
