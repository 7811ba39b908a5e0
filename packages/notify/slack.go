package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/output"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *http.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "hitbench",
		iconEmoji:  ":stopwatch:",
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the name of the notifier
func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func title(summary *RunSummary) string {
	switch {
	case summary.Failed():
		return "Benchmark run aborted"
	case summary.IsRecovery:
		return "Benchmarks recovered, score " + output.FormatScore(summary.Score)
	default:
		return "Benchmark score " + output.FormatScore(summary.Score)
	}
}

// Notify sends a notification to Slack
func (s *SlackNotifier) Notify(summary *RunSummary) error {
	color := "good"
	emoji := ":white_check_mark:"
	if summary.Failed() {
		color = "danger"
		emoji = ":x:"
	} else if summary.IsRecovery {
		emoji = ":tada:"
	}

	fields := []slackField{
		{Title: "Score", Value: output.FormatScore(summary.Score), Short: true},
		{Title: "Geomean", Value: output.FormatMs(summary.GeomeanMs), Short: true},
		{Title: "Iterations", Value: fmt.Sprintf("%d", summary.Iterations), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
		{Title: "Mode", Value: summary.Mode, Short: true},
		{Title: "Suite file", Value: summary.SuiteFile, Short: true},
	}

	var text strings.Builder
	if summary.Failed() {
		fmt.Fprintf(&text, "*Error:* %s\n", summary.Error)
	}
	if len(summary.Suites) > 0 {
		text.WriteString("*Suite means:*\n")
		for _, sm := range summary.Suites {
			fmt.Fprintf(&text, "• `%s` %s\n", sm.Name, output.FormatMs(sm.MeanMs))
		}
	}

	msg := slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  fmt.Sprintf("%s %s", emoji, title(summary)),
			Text:   text.String(),
			Fields: fields,
			Footer: "hitbench " + summary.RunID,
			TS:     time.Now().Unix(),
		}},
	}

	return s.send(msg)
}

func (s *SlackNotifier) send(msg slackMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
