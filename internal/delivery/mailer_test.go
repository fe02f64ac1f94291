package delivery

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/reportmill/internal/export"
	"github.com/reportmill/internal/report"
)

type fakeDialer struct {
	messages []*gomail.Message
	err      error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, m...)
	return nil
}

func testArtifact() *export.Artifact {
	return &export.Artifact{
		FileName: "weekly-20240108.csv",
		Content:  []byte("Student Name\nAda Lovelace\n"),
		Size:     27,
		MIMEType: "text/csv",
	}
}

func testReport() *report.Report {
	return &report.Report{
		Metadata: report.Metadata{
			ReportType:  "execution_history",
			Title:       "Weekly Activity",
			GeneratedAt: time.Date(2024, time.January, 8, 8, 0, 0, 0, time.UTC),
		},
		Summary: report.Summary{
			TotalRecords: 12,
			From:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:           time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
			Aggregates:   map[string]any{"completed": 11, "failed": 1},
		},
	}
}

func TestDeliverSendsOneMessageToAllRecipients(t *testing.T) {
	dialer := &fakeDialer{}
	m := NewMailerWithDialer(dialer, "reports@x.com")

	result, err := m.Deliver(testArtifact(), []string{"a@x.com", "b@x.com"}, testReport(), "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Recipients)

	require.Len(t, dialer.messages, 1, "one logical send for all recipients")
	msg := dialer.messages[0]
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, msg.GetHeader("To"))
	assert.Contains(t, msg.GetHeader("Subject")[0], "Weekly Activity")
}

func TestDeliverBodyContainsSummary(t *testing.T) {
	m := NewMailerWithDialer(&fakeDialer{}, "reports@x.com")

	body, err := m.renderBody(testReport(), "Here is your weekly report.")
	require.NoError(t, err)
	assert.Contains(t, body, "Weekly Activity")
	assert.Contains(t, body, "12")
	assert.Contains(t, body, "completed")
	assert.Contains(t, body, "Here is your weekly report.")
}

func TestDeliverRejectsEmptyRecipients(t *testing.T) {
	m := NewMailerWithDialer(&fakeDialer{}, "reports@x.com")

	_, err := m.Deliver(testArtifact(), nil, testReport(), "")
	require.Error(t, err)
}

func TestDeliverReportsTransportFailureAsWhole(t *testing.T) {
	m := NewMailerWithDialer(&fakeDialer{err: fmt.Errorf("connection refused")}, "reports@x.com")

	result, err := m.Deliver(testArtifact(), []string{"a@x.com"}, testReport(), "")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
}
