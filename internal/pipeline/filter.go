package pipeline

import (
	"strings"
	"time"

	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/scoring"
)

// passesFilter drops postings with no title or company, outside every
// preferred location, from a blacklisted company, or paying outside the
// salary band. A zero salary bound counts as missing.
func passesFilter(r model.RawJob, c model.Criteria) bool {
	if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.Company) == "" {
		return false
	}
	if len(c.Locations) > 0 && !scoring.ContainsAny(r.Location, c.Locations) {
		return false
	}
	if scoring.ContainsAny(r.Company, c.Blacklist) {
		return false
	}
	if r.SalaryMin != nil && *r.SalaryMin != 0 && *r.SalaryMin < c.MinSalary {
		return false
	}
	if r.SalaryMax != nil && *r.SalaryMax != 0 && *r.SalaryMax > c.MaxSalary {
		return false
	}
	return true
}

// score returns r with its job score and system-wide match score set.
func score(r model.RawJob, c model.Criteria) model.RawJob {
	j := model.NewJob(r, time.Time{})
	r.JobScore = scoring.JobScore(&j)
	r.MatchScore = scoring.MatchScore(&j, c)
	return r
}
