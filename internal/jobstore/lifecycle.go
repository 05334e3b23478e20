// Package jobstore persists job postings keyed by their source URL and
// decides, per sighting, between insert, in-place refresh and no-op.
package jobstore

import (
	"strings"
	"time"

	"jobmate/jobalert-service/internal/model"
)

const (
	// RefreshAfter is the minimum age of scraped_date before a re-sighted
	// posting is refreshed in place.
	RefreshAfter = 7 * 24 * time.Hour

	// ExpireAfterDays is the scraped_date age, in days, past which a posting
	// is soft-deleted by the cleanup pass.
	ExpireAfterDays = 30

	// StatsRecentDays is the window used for Stats.RecentCount.
	StatsRecentDays = 7
)

// Decide returns what a sighting at now does to existing. A nil existing
// record means the URL has never been seen.
func Decide(existing *model.Job, now time.Time) model.UpsertOutcome {
	if existing == nil {
		return model.OutcomeInserted
	}
	if !existing.ScrapedDate.After(now.Add(-RefreshAfter)) {
		return model.OutcomeRefreshed
	}
	return model.OutcomeUnchanged
}

// ApplyRefresh copies the mutable fields of raw onto job and stamps
// scraped_date. Only non-empty incoming values overwrite: a partial sighting
// never clears data already stored.
func ApplyRefresh(job *model.Job, raw model.RawJob, now time.Time) {
	if strings.TrimSpace(raw.Title) != "" {
		job.Title = raw.Title
	}
	if strings.TrimSpace(raw.Company) != "" {
		job.Company = raw.Company
	}
	if strings.TrimSpace(raw.Location) != "" {
		job.Location = raw.Location
	}
	if raw.SalaryMin != nil && *raw.SalaryMin != 0 {
		v := *raw.SalaryMin
		job.SalaryMin = &v
	}
	if raw.SalaryMax != nil && *raw.SalaryMax != 0 {
		v := *raw.SalaryMax
		job.SalaryMax = &v
	}
	if raw.SalaryText != nil && strings.TrimSpace(*raw.SalaryText) != "" {
		v := *raw.SalaryText
		job.SalaryText = &v
	}
	job.ScrapedDate = now
}

func cutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}
