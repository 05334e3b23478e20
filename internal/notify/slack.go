package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// slackMaxJobs keeps messages under Slack's attachment limits.
const slackMaxJobs = 10

// Slack posts to an incoming webhook.
type Slack struct {
	url    string
	client *http.Client
}

// NewSlack returns nil when url is empty.
func NewSlack(url string) Channel {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return &Slack{url: url, client: &http.Client{Timeout: webhookTimeout}}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Wants(p *model.Profile) bool { return p.SlackNotifications }

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color    string        `json:"color,omitempty"`
	Text     string        `json:"text,omitempty"`
	Fields   []slackField  `json:"fields,omitempty"`
	Actions  []slackAction `json:"actions,omitempty"`
	Footer   string        `json:"footer,omitempty"`
	TS       int64         `json:"ts,omitempty"`
	MrkdwnIn []string      `json:"mrkdwn_in,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAction struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	URL   string `json:"url"`
	Style string `json:"style,omitempty"`
}

func (s *Slack) SendJobs(ctx context.Context, _ *model.Profile, jobs []model.Job) error {
	return postJSON(ctx, s.client, s.url, slackJobsMessage(jobs))
}

func (s *Slack) SendText(ctx context.Context, _ *model.Profile, subject, body string) error {
	return postJSON(ctx, s.client, s.url, slackMessage{Text: fmt.Sprintf("*%s*\n%s", subject, body)})
}

func slackJobsMessage(jobs []model.Job) slackMessage {
	msg := slackMessage{
		Text: fmt.Sprintf("*%s*", headline(len(jobs))),
		Attachments: []slackAttachment{{
			Color:  colourGood,
			Fields: []slackField{{Title: "Summary", Value: summary(jobs)}},
		}},
	}

	shown := jobs
	if len(shown) > slackMaxJobs {
		shown = shown[:slackMaxJobs]
	}
	for _, j := range shown {
		msg.Attachments = append(msg.Attachments, slackJobAttachment(j))
	}
	if len(jobs) > slackMaxJobs {
		msg.Attachments = append(msg.Attachments, slackAttachment{
			Color:    colourWarning,
			Text:     moreJobs(len(jobs), slackMaxJobs),
			MrkdwnIn: []string{"text"},
		})
	}
	return msg
}

func slackJobAttachment(j model.Job) slackAttachment {
	fields := []slackField{
		{Title: "Job Title", Value: j.Title},
		{Title: "Company", Value: j.Company, Short: true},
		{Title: "Location", Value: j.Location, Short: true},
	}
	if s := model.Deref(j.SalaryText); s != "" {
		fields = append(fields, slackField{Title: "Salary", Value: s, Short: true})
	}
	if s := model.Deref(j.ExperienceText); s != "" {
		fields = append(fields, slackField{Title: "Experience", Value: s, Short: true})
	}
	if j.JobScore > 0 {
		fields = append(fields, slackField{Title: "Job Score", Value: fmt.Sprintf("%.1f/100", j.JobScore), Short: true})
	}
	if j.MatchScore > 0 {
		fields = append(fields, slackField{Title: "Match Score", Value: fmt.Sprintf("%.1f/100", j.MatchScore), Short: true})
	}

	a := slackAttachment{
		Color:   scoreColour(j.JobScore),
		Fields:  fields,
		Actions: []slackAction{{Type: "button", Text: "Apply Now", URL: j.URL, Style: "primary"}},
		Footer:  "Source: " + j.Source,
	}
	if !j.ScrapedDate.IsZero() {
		a.TS = j.ScrapedDate.Unix()
	}
	return a
}
