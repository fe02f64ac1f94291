package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/slack-go/slack"

	"github.com/reportmill/internal/models"
)

// SlackNotifier escalates failed pipeline runs to a Slack channel. It is
// best-effort: a failed post is the caller's to log, never to propagate.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier returns nil when no token or channel is configured;
// callers treat a nil notifier as escalation disabled.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) NotifyFailure(sched *models.ReportSchedule, exec *models.ReportExecution, runErr error) error {
	scheduleName := "manual run"
	if sched != nil {
		scheduleName = sched.Name
	}

	attachment := slack.Attachment{
		Color: "#ff0000",
		Title: fmt.Sprintf("Report run failed: %s", scheduleName),
		Fields: []slack.AttachmentField{
			{
				Title: "Report Type",
				Value: string(exec.ReportType),
				Short: true,
			},
			{
				Title: "Format",
				Value: string(exec.Format),
				Short: true,
			},
			{
				Title: "Execution",
				Value: exec.ID,
				Short: true,
			},
			{
				Title: "Triggered By",
				Value: exec.TriggeredBy,
				Short: true,
			},
			{
				Title: "Error",
				Value: runErr.Error(),
				Short: false,
			},
		},
		Footer: "ReportMill",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionAttachments(attachment),
	)
	return err
}
