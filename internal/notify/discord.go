package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobmate/jobalert-service/internal/model"
)

// discordMaxJobs keeps embeds under Discord's field limit.
const discordMaxJobs = 5

var discordColours = map[string]int{
	colourGood:    0x2eb886,
	colourWarning: 0xdaa038,
	colourDanger:  0xa30200,
}

// Discord posts embeds to a channel webhook.
type Discord struct {
	url    string
	client *http.Client
}

// NewDiscord returns nil when url is empty.
func NewDiscord(url string) Channel {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return &Discord{url: url, client: &http.Client{Timeout: webhookTimeout}}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Wants(p *model.Profile) bool { return p.DiscordNotifications }

type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title     string         `json:"title"`
	Color     int            `json:"color"`
	Fields    []discordField `json:"fields"`
	Footer    discordFooter  `json:"footer"`
	Timestamp string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func (d *Discord) SendJobs(ctx context.Context, _ *model.Profile, jobs []model.Job) error {
	return postJSON(ctx, d.client, d.url, discordJobsMessage(jobs))
}

func (d *Discord) SendText(ctx context.Context, _ *model.Profile, subject, body string) error {
	return postJSON(ctx, d.client, d.url, discordMessage{Content: fmt.Sprintf("**%s**\n%s", subject, body)})
}

func discordJobsMessage(jobs []model.Job) discordMessage {
	best := 0.0
	for _, j := range jobs {
		if j.JobScore > best {
			best = j.JobScore
		}
	}
	embed := discordEmbed{
		Title:  headline(len(jobs)),
		Color:  discordColours[scoreColour(best)],
		Fields: []discordField{{Name: "Summary", Value: summary(jobs)}},
		Footer: discordFooter{Text: "Job Alert Bot"},
	}
	if len(jobs) > 0 && !jobs[0].ScrapedDate.IsZero() {
		embed.Timestamp = jobs[0].ScrapedDate.UTC().Format(time.RFC3339)
	}

	shown := jobs
	if len(shown) > discordMaxJobs {
		shown = shown[:discordMaxJobs]
	}
	for i, j := range shown {
		embed.Fields = append(embed.Fields, discordField{
			Name:  fmt.Sprintf("Job %d", i+1),
			Value: discordJobText(j),
		})
	}
	if len(jobs) > discordMaxJobs {
		embed.Fields = append(embed.Fields, discordField{
			Name:  "More Jobs",
			Value: moreJobs(len(jobs), discordMaxJobs),
		})
	}
	return discordMessage{Embeds: []discordEmbed{embed}}
}

func discordJobText(j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** at %s\n%s\n", j.Title, j.Company, j.Location)
	if s := model.Deref(j.SalaryText); s != "" {
		fmt.Fprintf(&b, "Salary: %s\n", s)
	}
	if s := model.Deref(j.ExperienceText); s != "" {
		fmt.Fprintf(&b, "Experience: %s\n", s)
	}
	if j.JobScore > 0 {
		fmt.Fprintf(&b, "Score: %.1f/100\n", j.JobScore)
	}
	fmt.Fprintf(&b, "[Apply Here](%s)", j.URL)
	return b.String()
}
