// Package notify delivers job alerts and reports over email, Slack, Discord
// and Telegram.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
)

// Notifier sends one batch of jobs to one profile. It never panics and
// reports true when at least one channel delivered.
type Notifier interface {
	Notify(ctx context.Context, profile *model.Profile, jobs []model.Job) bool
}

// Channel is one delivery mechanism.
type Channel interface {
	Name() string
	// Wants reports whether p has this channel switched on.
	Wants(p *model.Profile) bool
	SendJobs(ctx context.Context, p *model.Profile, jobs []model.Job) error
	SendText(ctx context.Context, p *model.Profile, subject, body string) error
}

// MultiChannel fans a batch out to every channel the profile wants.
type MultiChannel struct {
	channels []Channel
	log      *logger.Logger
}

// NewMultiChannel builds a MultiChannel over channels. Nil channels are
// dropped so unconfigured ones can be passed through unchanged.
func NewMultiChannel(log *logger.Logger, channels ...Channel) *MultiChannel {
	m := &MultiChannel{log: log.With("component", "notify")}
	for _, c := range channels {
		if c != nil {
			m.channels = append(m.channels, c)
		}
	}
	return m
}

// Channels lists the configured channel names.
func (m *MultiChannel) Channels() []string {
	names := make([]string, 0, len(m.channels))
	for _, c := range m.channels {
		names = append(names, c.Name())
	}
	return names
}

// Notify sends jobs to every channel p wants. An empty batch is a no-op
// success.
func (m *MultiChannel) Notify(ctx context.Context, p *model.Profile, jobs []model.Job) bool {
	if len(jobs) == 0 {
		return true
	}
	return m.fanOut(ctx, p, "jobs", func(c Channel) error {
		return c.SendJobs(ctx, p, jobs)
	})
}

// SendReport sends a plain-text report to every channel p wants.
func (m *MultiChannel) SendReport(ctx context.Context, p *model.Profile, subject, body string) bool {
	return m.fanOut(ctx, p, "report", func(c Channel) error {
		return c.SendText(ctx, p, subject, body)
	})
}

func (m *MultiChannel) fanOut(ctx context.Context, p *model.Profile, kind string, send func(Channel) error) bool {
	var ok, failed []string
	for _, c := range m.channels {
		if !c.Wants(p) {
			continue
		}
		if err := safeSend(c, send); err != nil {
			m.log.Warn("channel failed", "channel", c.Name(), "kind", kind, "email", p.Email, "err", err)
			failed = append(failed, c.Name())
			continue
		}
		ok = append(ok, c.Name())
	}

	if len(ok) > 0 {
		m.log.Info("notification sent", "kind", kind, "email", p.Email, "channels", ok)
	}
	if len(ok) == 0 && len(failed) == 0 {
		m.log.Warn("no channel enabled for profile", "email", p.Email)
	}
	return len(ok) > 0
}

func safeSend(c Channel, send func(Channel) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", c.Name(), r)
		}
	}()
	return send(c)
}

// ─── Shared formatting ───────────────────────────────────────────────────────

// Colour names follow Slack's attachment palette.
const (
	colourGood    = "good"
	colourWarning = "warning"
	colourDanger  = "danger"
)

func scoreColour(jobScore float64) string {
	switch {
	case jobScore >= 80:
		return colourGood
	case jobScore >= 60:
		return colourWarning
	default:
		return colourDanger
	}
}

// sources returns the distinct sources of jobs in sorted order.
func sources(jobs []model.Job) string {
	seen := map[string]bool{}
	var out []string
	for _, j := range jobs {
		s := j.Source
		if s == "" {
			s = model.UnknownSource
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func summary(jobs []model.Job) string {
	return fmt.Sprintf("Found %d new opportunities from: %s", len(jobs), sources(jobs))
}

func moreJobs(total, shown int) string {
	return fmt.Sprintf("... and %d more jobs! Check your email for the complete list.", total-shown)
}

func headline(n int) string {
	return fmt.Sprintf("%d New Job Alerts!", n)
}
