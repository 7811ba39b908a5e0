package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abdul-hamid-achik/hitbench/packages/output"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the name of the notifier
func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage is a message carrying one Adaptive Card
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

func column(label, value string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "stretch",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: "**" + label + "**", Wrap: true},
			{Type: "TextBlock", Text: value, Wrap: true},
		},
	}
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(summary *RunSummary) error {
	color := "good"
	if summary.Failed() {
		color = "attention"
	}

	body := []teamsBlock{
		{
			Type:   "TextBlock",
			Size:   "Large",
			Weight: "Bolder",
			Text:   title(summary),
			Color:  color,
		},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				column("Score", output.FormatScore(summary.Score)),
				column("Geomean", output.FormatMs(summary.GeomeanMs)),
				column("Iterations", fmt.Sprintf("%d", summary.Iterations)),
				column("Duration", summary.Duration.Round(time.Millisecond).String()),
			},
		},
		{
			Type: "TextBlock",
			Text: fmt.Sprintf("**Suite file:** %s (%s mode)", summary.SuiteFile, summary.Mode),
			Wrap: true,
		},
	}

	if summary.Failed() {
		body = append(body, teamsBlock{
			Type:  "TextBlock",
			Text:  "**Error:** " + summary.Error,
			Color: "attention",
			Wrap:  true,
		})
	}

	if len(summary.Suites) > 0 {
		body = append(body, teamsBlock{
			Type:      "TextBlock",
			Text:      "**Suite means:**",
			Separator: true,
			Spacing:   "Medium",
		})
		for _, sm := range summary.Suites {
			body = append(body, teamsBlock{
				Type: "TextBlock",
				Text: fmt.Sprintf("- `%s` %s", sm.Name, output.FormatMs(sm.MeanMs)),
				Wrap: true,
			})
		}
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_hitbench %s - %s_", summary.RunID, time.Now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}

	return t.send(msg)
}

func (t *TeamsNotifier) send(msg teamsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Teams message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Teams notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams API returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
