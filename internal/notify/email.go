package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// Email delivers through SendGrid to the profile's own address.
type Email struct {
	client *SendGrid
}

// NewEmail returns nil when client is nil so an unconfigured channel can be
// handed straight to NewMultiChannel.
func NewEmail(client *SendGrid) Channel {
	if client == nil {
		return nil
	}
	return &Email{client: client}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Wants(p *model.Profile) bool {
	return p.EmailNotifications && strings.Contains(p.Email, "@")
}

func (e *Email) SendJobs(ctx context.Context, p *model.Profile, jobs []model.Job) error {
	htmlBody, err := renderJobsHTML(jobs)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	return e.client.Send(ctx, Mail{
		To:      EmailAddress{Email: p.Email, Name: p.Name},
		Subject: headline(len(jobs)),
		Text:    jobsText(jobs),
		HTML:    htmlBody,
	})
}

func (e *Email) SendText(ctx context.Context, p *model.Profile, subject, body string) error {
	return e.client.Send(ctx, Mail{
		To:      EmailAddress{Email: p.Email, Name: p.Name},
		Subject: subject,
		Text:    body,
	})
}

var jobsHTML = template.Must(template.New("jobs").Parse(`<html>
<body style="font-family: Arial, sans-serif; margin: 20px;">
<h2>New Job Alerts!</h2>
<div style="background-color: #ecf0f1; padding: 10px; border-radius: 4px; margin-bottom: 20px;">
<strong>Found {{len .Jobs}} new opportunities</strong><br>Sources: {{.Sources}}
</div>
{{range .Jobs}}<div style="border: 1px solid #ddd; border-radius: 8px; padding: 15px; margin: 10px 0;">
<div style="font-size: 18px; font-weight: bold;">{{.Title}}</div>
<div>{{.Company}}</div>
<div>{{.Location}}</div>
{{with .SalaryText}}<div>Salary: {{.}}</div>{{end}}
{{with .ExperienceText}}<div>Experience: {{.}}</div>{{end}}
{{if .MatchScore}}<div>Match: {{printf "%.1f" .MatchScore}}/100</div>{{end}}
<a href="{{.URL}}">Apply Now</a>
</div>
{{end}}</body>
</html>`))

func renderJobsHTML(jobs []model.Job) (string, error) {
	var buf bytes.Buffer
	err := jobsHTML.Execute(&buf, struct {
		Jobs    []model.Job
		Sources string
	}{jobs, sources(jobs)})
	return buf.String(), err
}

func jobsText(jobs []model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New Job Alerts!\n\n%s\n\n", summary(jobs))
	for _, j := range jobs {
		fmt.Fprintf(&b, "%s\n%s\n%s\n", j.Title, j.Company, j.Location)
		if s := model.Deref(j.SalaryText); s != "" {
			fmt.Fprintf(&b, "Salary: %s\n", s)
		}
		if s := model.Deref(j.ExperienceText); s != "" {
			fmt.Fprintf(&b, "Experience: %s\n", s)
		}
		fmt.Fprintf(&b, "Apply here: %s\n\n", j.URL)
	}
	return b.String()
}
