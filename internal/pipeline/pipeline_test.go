package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/reportmill/internal/database"
	"github.com/reportmill/internal/delivery"
	"github.com/reportmill/internal/export"
	"github.com/reportmill/internal/ledger"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/report"
)

type fakeProvider struct {
	rep *report.Report
	err error
}

func (p *fakeProvider) Generate(ctx context.Context, reportType models.ReportType, params map[string]string) (*report.Report, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.rep, nil
}

type fakeStore struct {
	saved []string
	err   error
}

func (s *fakeStore) Save(fileName string, content []byte) (string, int64, error) {
	if s.err != nil {
		return "", 0, s.err
	}
	s.saved = append(s.saved, fileName)
	return "/artifacts/" + fileName, int64(len(content)), nil
}

type fakeDeliverer struct {
	sent []string
	err  error
}

func (d *fakeDeliverer) Deliver(artifact *export.Artifact, recipients []string, rep *report.Report, customMessage string) (*delivery.Result, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.sent = append(d.sent, recipients...)
	return &delivery.Result{Success: true, Recipients: len(recipients)}, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testReport() *report.Report {
	return &report.Report{
		Metadata: report.Metadata{ReportType: "execution_history", Title: "Test Report"},
		Columns:  []string{"name"},
		Rows:     []map[string]any{{"name": "one"}},
	}
}

func testSchedule() *models.ReportSchedule {
	return &models.ReportSchedule{
		Model:      gorm.Model{ID: 9},
		Name:       "Nightly",
		ReportType: models.ReportTypeExecutionHistory,
		Frequency:  models.FrequencyDaily,
		Format:     models.FormatCSV,
		Recipients: []string{"a@x.com", "b@x.com"},
		Active:     true,
	}
}

func TestRunCompletesAndLedgers(t *testing.T) {
	db := testDB(t)
	led := ledger.New(db)
	store := &fakeStore{}
	mail := &fakeDeliverer{}
	p := New(&fakeProvider{rep: testReport()}, store, mail, led, nil, zerolog.Nop())

	outcome, err := p.Run(context.Background(), testSchedule(), "scheduler")
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.ExecutionID)
	assert.Equal(t, 2, outcome.Recipients)
	assert.Len(t, store.saved, 1)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, mail.sent)

	exec, err := led.Get(outcome.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, "scheduler", exec.TriggeredBy)
	require.NotNil(t, exec.ScheduleID)
	assert.Equal(t, uint(9), *exec.ScheduleID)
}

func TestProviderFailureProducesOneFailedRecord(t *testing.T) {
	db := testDB(t)
	led := ledger.New(db)
	p := New(&fakeProvider{err: fmt.Errorf("query timeout")}, &fakeStore{}, &fakeDeliverer{}, led, nil, zerolog.Nop())

	_, err := p.Run(context.Background(), testSchedule(), "scheduler")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query timeout")

	execs, err := led.History(nil, 1, 50)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.ExecutionStatusFailed, execs[0].Status)
	assert.Contains(t, execs[0].Error, "query timeout")
}

func TestRenderFailureIsLedgered(t *testing.T) {
	db := testDB(t)
	led := ledger.New(db)
	sched := testSchedule()
	sched.Format = models.ExportFormat("docx")
	p := New(&fakeProvider{rep: testReport()}, &fakeStore{}, &fakeDeliverer{}, led, nil, zerolog.Nop())

	_, err := p.Run(context.Background(), sched, "scheduler")
	require.Error(t, err)
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)

	execs, err := led.History(nil, 1, 50)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.ExecutionStatusFailed, execs[0].Status)
}

func TestDeliveryFailurePropagatesAfterLedger(t *testing.T) {
	db := testDB(t)
	led := ledger.New(db)
	store := &fakeStore{}
	p := New(&fakeProvider{rep: testReport()}, store, &fakeDeliverer{err: fmt.Errorf("smtp down")}, led, nil, zerolog.Nop())

	_, err := p.Run(context.Background(), testSchedule(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")

	// Artifact was stored before delivery failed; the record still ends
	// FAILED because the pipeline did not complete.
	assert.Len(t, store.saved, 1)
	execs, err := led.History(nil, 1, 50)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.ExecutionStatusFailed, execs[0].Status)
	assert.Equal(t, "alice", execs[0].TriggeredBy)
}
