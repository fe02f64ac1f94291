package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/reportmill/internal/export"
	"github.com/reportmill/internal/report"
)

// Dialer is the SMTP hop; gomail.Dialer satisfies it and tests stub it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Config struct {
	Host     string
	Port     int
	From     string
	Password string
}

// Mailer sends a rendered report to its recipients: one message, an HTML
// summary body and the artifact attached. The transport call succeeds or
// fails as a whole; there is no per-recipient retry here.
type Mailer struct {
	dialer Dialer
	from   string
	tmpl   *template.Template
}

func NewMailer(cfg Config) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
		from:   cfg.From,
		tmpl:   summaryTemplate,
	}
}

// NewMailerWithDialer is used by tests to bypass SMTP.
func NewMailerWithDialer(d Dialer, from string) *Mailer {
	return &Mailer{dialer: d, from: from, tmpl: summaryTemplate}
}

type Result struct {
	Success    bool
	Recipients int
}

func (m *Mailer) Deliver(artifact *export.Artifact, recipients []string, rep *report.Report, customMessage string) (*Result, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	body, err := m.renderBody(rep, customMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", fmt.Sprintf("%s - %s", rep.Metadata.Title, rep.Metadata.GeneratedAt.Format("2006-01-02")))
	msg.SetBody("text/html", body)
	msg.Attach(artifact.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(artifact.Content)
		return err
	}))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return &Result{Success: false, Recipients: len(recipients)}, fmt.Errorf("failed to send report email: %w", err)
	}
	return &Result{Success: true, Recipients: len(recipients)}, nil
}

func (m *Mailer) renderBody(rep *report.Report, customMessage string) (string, error) {
	var buf bytes.Buffer
	err := m.tmpl.Execute(&buf, struct {
		Report  *report.Report
		Message string
	}{rep, customMessage})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

var summaryTemplate = template.Must(template.New("summary").Parse(`
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.Report.Metadata.Title}}</h2>
  {{if .Message}}<p>{{.Message}}</p>{{end}}
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><b>Report type</b></td><td>{{.Report.Metadata.ReportType}}</td></tr>
    <tr><td><b>Generated</b></td><td>{{.Report.Metadata.GeneratedAt.Format "2006-01-02 15:04 MST"}}</td></tr>
    <tr><td><b>Total records</b></td><td>{{.Report.Summary.TotalRecords}}</td></tr>
    <tr><td><b>Date range</b></td><td>{{.Report.Summary.From.Format "2006-01-02"}} to {{.Report.Summary.To.Format "2006-01-02"}}</td></tr>
    {{range $key, $value := .Report.Summary.Aggregates}}
    <tr><td><b>{{$key}}</b></td><td>{{$value}}</td></tr>
    {{end}}
  </table>
  <p>The full report is attached.</p>
</body>
</html>
`))
