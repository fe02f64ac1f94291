package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reportmill/internal/models"
)

// ErrFinalized is returned when Complete or Fail hits a record that already
// reached a terminal status. Terminal records are immutable; corrections are
// new records.
var ErrFinalized = fmt.Errorf("execution record already finalized")

// Ledger is the append-only history of pipeline attempts. Every run,
// scheduled or manual, gets exactly one record that is finalized exactly
// once.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Begin opens a record for a run that is about to execute. scheduleID is nil
// for manual runs of ad-hoc reports.
func (l *Ledger) Begin(scheduleID *uint, reportType models.ReportType, title string, params map[string]string, format models.ExportFormat, triggeredBy string) (*models.ReportExecution, error) {
	// Snapshot the parameters; the schedule row may change while this run is
	// in flight.
	snapshot := make(map[string]string, len(params))
	for k, v := range params {
		snapshot[k] = v
	}

	exec := &models.ReportExecution{
		ID:          uuid.NewString(),
		ScheduleID:  scheduleID,
		ReportType:  reportType,
		Title:       title,
		Parameters:  snapshot,
		Format:      format,
		Status:      models.ExecutionStatusGenerating,
		TriggeredBy: triggeredBy,
		GeneratedAt: time.Now().UTC(),
	}
	if err := l.db.Create(exec).Error; err != nil {
		return nil, fmt.Errorf("failed to append execution record: %w", err)
	}
	return exec, nil
}

// Complete finalizes a record as COMPLETED with the stored artifact details.
func (l *Ledger) Complete(id string, artifact ArtifactRef) error {
	return l.finalize(id, map[string]any{
		"status":    models.ExecutionStatusCompleted,
		"file_size": artifact.Size,
		"file_path": artifact.Path,
		"file_name": artifact.FileName,
		"mime_type": artifact.MIMEType,
	})
}

// Fail finalizes a record as FAILED with the first error encountered.
func (l *Ledger) Fail(id string, message string) error {
	return l.finalize(id, map[string]any{
		"status": models.ExecutionStatusFailed,
		"error":  message,
	})
}

// finalize flips a non-terminal record into a terminal status. The status
// guard in the WHERE clause is what makes terminal records immutable.
func (l *Ledger) finalize(id string, fields map[string]any) error {
	res := l.db.Model(&models.ReportExecution{}).
		Where("id = ? AND status NOT IN ?", id, []models.ExecutionStatus{
			models.ExecutionStatusCompleted,
			models.ExecutionStatusFailed,
		}).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("failed to finalize execution record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrFinalized, id)
	}
	return nil
}

// Get loads one record.
func (l *Ledger) Get(id string) (*models.ReportExecution, error) {
	var exec models.ReportExecution
	if err := l.db.First(&exec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &exec, nil
}

// History lists records newest-first, optionally scoped to one schedule.
func (l *Ledger) History(scheduleID *uint, page, limit int) ([]models.ReportExecution, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := l.db.Model(&models.ReportExecution{})
	if scheduleID != nil {
		query = query.Where("schedule_id = ?", *scheduleID)
	}

	var execs []models.ReportExecution
	if err := query.Order("created_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to list execution records: %w", err)
	}
	return execs, nil
}

// ArtifactRef is the stored-artifact detail recorded on completion.
type ArtifactRef struct {
	Path     string
	FileName string
	MIMEType string
	Size     int64
}
