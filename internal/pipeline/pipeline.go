package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reportmill/internal/delivery"
	"github.com/reportmill/internal/export"
	"github.com/reportmill/internal/ledger"
	"github.com/reportmill/internal/models"
	"github.com/reportmill/internal/notify"
	"github.com/reportmill/internal/report"
)

// ArtifactStore persists rendered bytes and returns a download reference.
type ArtifactStore interface {
	Save(fileName string, content []byte) (path string, size int64, err error)
}

// Deliverer sends the artifact and summary to the recipients.
type Deliverer interface {
	Deliver(artifact *export.Artifact, recipients []string, rep *report.Report, customMessage string) (*delivery.Result, error)
}

// Pipeline runs one report end to end: fetch data, render, store, deliver,
// ledger. The four steps are strictly sequential within a run; concurrency
// lives outside, one goroutine per firing schedule.
type Pipeline struct {
	provider report.DataProvider
	store    ArtifactStore
	mailer   Deliverer
	ledger   *ledger.Ledger
	notifier *notify.SlackNotifier
	log      zerolog.Logger
}

func New(provider report.DataProvider, store ArtifactStore, mailer Deliverer, led *ledger.Ledger, notifier *notify.SlackNotifier, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		provider: provider,
		store:    store,
		mailer:   mailer,
		ledger:   led,
		notifier: notifier,
		log:      log,
	}
}

// Outcome describes one finished run.
type Outcome struct {
	ExecutionID string
	FileName    string
	FilePath    string
	FileSize    int64
	MIMEType    string
	Recipients  int
}

// Run executes the pipeline for one schedule. A failure at any step
// finalizes the execution record as FAILED with the first error and returns
// that error; the schedule itself is untouched (the caller decides whether
// to advance next_run). The ledger record always ends terminal.
func (p *Pipeline) Run(ctx context.Context, sched *models.ReportSchedule, triggeredBy string) (*Outcome, error) {
	scheduleID := sched.ID
	exec, err := p.ledger.Begin(&scheduleID, sched.ReportType, sched.Name, sched.Parameters, sched.Format, triggeredBy)
	if err != nil {
		return nil, err
	}

	outcome, err := p.run(ctx, exec, sched)
	if err != nil {
		p.fail(sched, exec, err)
		return nil, err
	}

	if err := p.ledger.Complete(exec.ID, ledger.ArtifactRef{
		Path:     outcome.FilePath,
		FileName: outcome.FileName,
		MIMEType: outcome.MIMEType,
		Size:     outcome.FileSize,
	}); err != nil {
		return nil, err
	}

	p.log.Info().
		Str("execution_id", exec.ID).
		Uint("schedule_id", sched.ID).
		Str("file", outcome.FileName).
		Int64("size", outcome.FileSize).
		Int("recipients", outcome.Recipients).
		Msg("report delivered")
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, exec *models.ReportExecution, sched *models.ReportSchedule) (*Outcome, error) {
	rep, err := p.provider.Generate(ctx, sched.ReportType, sched.Parameters)
	if err != nil {
		return nil, fmt.Errorf("data provider: %w", err)
	}

	// Page options only matter to the document renderer; the parameter map
	// is the natural carrier since it is already snapshotted per run.
	artifact, err := export.Render(rep, sched.Format, export.Options{
		Orientation: sched.Parameters["orientation"],
		PageSize:    sched.Parameters["pageSize"],
	})
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	path, size, err := p.store.Save(artifact.FileName, artifact.Content)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	result, err := p.mailer.Deliver(artifact, sched.Recipients, rep, sched.Description)
	if err != nil {
		return nil, fmt.Errorf("deliver: %w", err)
	}

	return &Outcome{
		ExecutionID: exec.ID,
		FileName:    artifact.FileName,
		FilePath:    path,
		FileSize:    size,
		MIMEType:    artifact.MIMEType,
		Recipients:  result.Recipients,
	}, nil
}

func (p *Pipeline) fail(sched *models.ReportSchedule, exec *models.ReportExecution, runErr error) {
	if err := p.ledger.Fail(exec.ID, runErr.Error()); err != nil {
		p.log.Error().Err(err).Str("execution_id", exec.ID).Msg("failed to finalize execution record")
	}

	p.log.Error().
		Err(runErr).
		Str("execution_id", exec.ID).
		Uint("schedule_id", sched.ID).
		Msg("report pipeline failed")

	if p.notifier != nil {
		if err := p.notifier.NotifyFailure(sched, exec, runErr); err != nil {
			p.log.Warn().Err(err).Msg("failed to escalate to slack")
		}
	}
}
