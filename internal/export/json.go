package export

import (
	"encoding/json"
	"fmt"

	"github.com/reportmill/internal/report"
)

func renderJSON(rep *report.Report) ([]byte, string, error) {
	content, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return content, "application/json", nil
}
