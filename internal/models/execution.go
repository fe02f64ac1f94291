package models

import (
	"time"
)

type ExecutionStatus string

const (
	ExecutionStatusPending    ExecutionStatus = "PENDING"
	ExecutionStatusGenerating ExecutionStatus = "GENERATING"
	ExecutionStatusCompleted  ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed     ExecutionStatus = "FAILED"
)

func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// ReportExecution is one historical attempt to run a report, scheduled or
// manual. Once Status reaches COMPLETED or FAILED the record is never
// touched again; corrections are new records.
type ReportExecution struct {
	ID          string            `json:"id" gorm:"primaryKey"`
	ScheduleID  *uint             `json:"schedule_id,omitempty" gorm:"index"`
	ReportType  ReportType        `json:"report_type" gorm:"not null"`
	Title       string            `json:"title"`
	Parameters  map[string]string `json:"parameters" gorm:"serializer:json"`
	Format      ExportFormat      `json:"format"`
	Status      ExecutionStatus   `json:"status" gorm:"index"`
	FileSize    int64             `json:"file_size,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	FileName    string            `json:"file_name,omitempty"`
	MIMEType    string            `json:"mime_type,omitempty"`
	Error       string            `json:"error,omitempty"`
	TriggeredBy string            `json:"triggered_by"`
	GeneratedAt time.Time         `json:"generated_at"`
	ExpiresAt   *time.Time        `json:"expires_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
