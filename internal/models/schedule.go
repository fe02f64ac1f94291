package models

import (
	"time"

	"gorm.io/gorm"
)

type ReportType string

const (
	ReportTypeExecutionHistory  ReportType = "execution_history"
	ReportTypeScheduleInventory ReportType = "schedule_inventory"
	ReportTypeUserActivity      ReportType = "user_activity"
)

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencySemester  Frequency = "semester"
	FrequencyAnnual    Frequency = "annual"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencySemester, FrequencyAnnual:
		return true
	}
	return false
}

type ExportFormat string

const (
	FormatJSON  ExportFormat = "json"
	FormatCSV   ExportFormat = "csv"
	FormatPDF   ExportFormat = "pdf"
	FormatExcel ExportFormat = "xlsx"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatPDF, FormatExcel:
		return true
	}
	return false
}

// ReportSchedule is a recurring report definition. While Active is true the
// scheduler holds exactly one live timer for it, armed at NextRun.
type ReportSchedule struct {
	gorm.Model
	Name        string            `json:"name" gorm:"uniqueIndex;not null"`
	Description string            `json:"description"`
	ReportType  ReportType        `json:"report_type" gorm:"not null"`
	Parameters  map[string]string `json:"parameters" gorm:"serializer:json"`
	Frequency   Frequency         `json:"frequency" gorm:"not null"`
	Format      ExportFormat      `json:"format" gorm:"not null"`
	Recipients  []string          `json:"recipients" gorm:"serializer:json"`
	Active      bool              `json:"active" gorm:"default:true"`
	NextRun     time.Time         `json:"next_run"`
	LastRun     *time.Time        `json:"last_run,omitempty"`
	CreatedBy   uint              `json:"created_by"`
}
