package report

import "time"

// Report is the format-agnostic representation every renderer consumes.
// Column order is authoritative: renderers emit fields in Columns order and
// ignore row keys that are not listed there.
type Report struct {
	Metadata Metadata         `json:"metadata"`
	Summary  Summary          `json:"summary"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Charts   []ChartDataset   `json:"charts,omitempty"`
}

type Metadata struct {
	ReportType  string            `json:"report_type"`
	Title       string            `json:"title"`
	GeneratedAt time.Time         `json:"generated_at"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

type Summary struct {
	TotalRecords int            `json:"total_records"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	Aggregates   map[string]any `json:"aggregates,omitempty"`
}

type ChartDataset struct {
	Name   string    `json:"name"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}
