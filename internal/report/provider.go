package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/reportmill/internal/models"
)

// DataProvider turns a (reportType, parameters) pair into a canonical
// report. Implementations must return a well-formed empty report, not an
// error, when no data matches.
type DataProvider interface {
	Generate(ctx context.Context, reportType models.ReportType, params map[string]string) (*Report, error)
}

// DBProvider serves the built-in report types from the service's own tables.
type DBProvider struct {
	db *gorm.DB
}

func NewDBProvider(db *gorm.DB) *DBProvider {
	return &DBProvider{db: db}
}

func (p *DBProvider) Generate(ctx context.Context, reportType models.ReportType, params map[string]string) (*Report, error) {
	from, to := timeWindow(params)

	switch reportType {
	case models.ReportTypeExecutionHistory:
		return p.executionHistory(ctx, params, from, to)
	case models.ReportTypeScheduleInventory:
		return p.scheduleInventory(ctx, params, from, to)
	case models.ReportTypeUserActivity:
		return p.userActivity(ctx, params, from, to)
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

// timeWindow reads the optional start/end parameters (RFC 3339); the default
// window is the trailing 30 days.
func timeWindow(params map[string]string) (time.Time, time.Time) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if v, ok := params["start"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			from = t
		}
	}
	if v, ok := params["end"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			to = t
		}
	}
	return from, to
}

func (p *DBProvider) executionHistory(ctx context.Context, params map[string]string, from, to time.Time) (*Report, error) {
	var execs []models.ReportExecution
	if err := p.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at asc").
		Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	rep := &Report{
		Metadata: Metadata{
			ReportType:  string(models.ReportTypeExecutionHistory),
			Title:       "Report Execution History",
			GeneratedAt: time.Now().UTC(),
			Parameters:  params,
		},
		Columns: []string{"executionId", "reportType", "format", "status", "triggeredBy", "fileSize", "generatedAt", "errorMessage"},
		Rows:    make([]map[string]any, 0, len(execs)),
	}

	statusCounts := make(map[models.ExecutionStatus]int)
	for _, e := range execs {
		statusCounts[e.Status]++
		rep.Rows = append(rep.Rows, map[string]any{
			"executionId":  e.ID,
			"reportType":   string(e.ReportType),
			"format":       string(e.Format),
			"status":       string(e.Status),
			"triggeredBy":  e.TriggeredBy,
			"fileSize":     e.FileSize,
			"generatedAt":  e.GeneratedAt,
			"errorMessage": e.Error,
		})
	}

	completed := statusCounts[models.ExecutionStatusCompleted]
	failed := statusCounts[models.ExecutionStatusFailed]
	rep.Summary = Summary{
		TotalRecords: len(execs),
		From:         from,
		To:           to,
		Aggregates: map[string]any{
			"completed": completed,
			"failed":    failed,
		},
	}
	if len(execs) > 0 {
		rep.Summary.Aggregates["successRate"] = float64(completed) / float64(len(execs))
		rep.Charts = []ChartDataset{statusChart(statusCounts)}
	}

	return rep, nil
}

func statusChart(counts map[models.ExecutionStatus]int) ChartDataset {
	statuses := make([]string, 0, len(counts))
	for s := range counts {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)

	chart := ChartDataset{Name: "Executions by Status"}
	for _, s := range statuses {
		chart.Labels = append(chart.Labels, s)
		chart.Values = append(chart.Values, float64(counts[models.ExecutionStatus(s)]))
	}
	return chart
}

func (p *DBProvider) scheduleInventory(ctx context.Context, params map[string]string, from, to time.Time) (*Report, error) {
	var schedules []models.ReportSchedule
	if err := p.db.WithContext(ctx).Order("id asc").Find(&schedules).Error; err != nil {
		return nil, fmt.Errorf("failed to load schedules: %w", err)
	}

	rep := &Report{
		Metadata: Metadata{
			ReportType:  string(models.ReportTypeScheduleInventory),
			Title:       "Schedule Inventory",
			GeneratedAt: time.Now().UTC(),
			Parameters:  params,
		},
		Columns: []string{"name", "reportType", "frequency", "format", "active", "recipientCount", "nextRun", "lastRun"},
		Rows:    make([]map[string]any, 0, len(schedules)),
	}

	active := 0
	byFrequency := make(map[string]int)
	for _, s := range schedules {
		if s.Active {
			active++
		}
		byFrequency[string(s.Frequency)]++

		var lastRun any
		if s.LastRun != nil {
			lastRun = *s.LastRun
		}
		rep.Rows = append(rep.Rows, map[string]any{
			"name":           s.Name,
			"reportType":     string(s.ReportType),
			"frequency":      string(s.Frequency),
			"format":         string(s.Format),
			"active":         s.Active,
			"recipientCount": len(s.Recipients),
			"nextRun":        s.NextRun,
			"lastRun":        lastRun,
		})
	}

	rep.Summary = Summary{
		TotalRecords: len(schedules),
		From:         from,
		To:           to,
		Aggregates: map[string]any{
			"active":      active,
			"inactive":    len(schedules) - active,
			"byFrequency": byFrequency,
		},
	}
	return rep, nil
}

func (p *DBProvider) userActivity(ctx context.Context, params map[string]string, from, to time.Time) (*Report, error) {
	var execs []models.ReportExecution
	if err := p.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from, to).
		Order("created_at asc").
		Find(&execs).Error; err != nil {
		return nil, fmt.Errorf("failed to load executions: %w", err)
	}

	type activity struct {
		triggeredBy string
		total       int
		completed   int
		failed      int
		lastRun     time.Time
	}
	byUser := make(map[string]*activity)
	for _, e := range execs {
		a, ok := byUser[e.TriggeredBy]
		if !ok {
			a = &activity{triggeredBy: e.TriggeredBy}
			byUser[e.TriggeredBy] = a
		}
		a.total++
		switch e.Status {
		case models.ExecutionStatusCompleted:
			a.completed++
		case models.ExecutionStatusFailed:
			a.failed++
		}
		if e.CreatedAt.After(a.lastRun) {
			a.lastRun = e.CreatedAt
		}
	}

	users := make([]*activity, 0, len(byUser))
	for _, a := range byUser {
		users = append(users, a)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].total != users[j].total {
			return users[i].total > users[j].total
		}
		return users[i].triggeredBy < users[j].triggeredBy
	})

	rep := &Report{
		Metadata: Metadata{
			ReportType:  string(models.ReportTypeUserActivity),
			Title:       "User Report Activity",
			GeneratedAt: time.Now().UTC(),
			Parameters:  params,
		},
		Columns: []string{"triggeredBy", "totalRuns", "completed", "failed", "lastRun"},
		Rows:    make([]map[string]any, 0, len(users)),
	}

	chart := ChartDataset{Name: "Runs by User"}
	for _, a := range users {
		rep.Rows = append(rep.Rows, map[string]any{
			"triggeredBy": a.triggeredBy,
			"totalRuns":   a.total,
			"completed":   a.completed,
			"failed":      a.failed,
			"lastRun":     a.lastRun,
		})
		chart.Labels = append(chart.Labels, a.triggeredBy)
		chart.Values = append(chart.Values, float64(a.total))
	}

	rep.Summary = Summary{
		TotalRecords: len(users),
		From:         from,
		To:           to,
		Aggregates: map[string]any{
			"totalExecutions": len(execs),
		},
	}
	if len(users) > 0 {
		rep.Charts = []ChartDataset{chart}
	}
	return rep, nil
}
