// Package gate decides which stored jobs a profile is notified about.
package gate

import (
	"sort"

	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/scoring"
)

// Reason explains a gate decision.
type Reason string

const (
	ReasonJobScore    Reason = "job_score_below_min"
	ReasonMatchScore  Reason = "match_score_below_min"
	ReasonBlacklisted Reason = "company_blacklisted"
	ReasonWhitelisted Reason = "company_whitelisted"
	ReasonAccepted    Reason = "accepted"
)

// Decision is the outcome of Evaluate. MatchScore is the profile match
// score; it is zero when the job was rejected on job score alone.
type Decision struct {
	Accept     bool
	Reason     Reason
	MatchScore float64
}

// Evaluate runs the checks in order: job score, profile match score,
// blacklist, whitelist. A blacklisted company is rejected even when it is
// also whitelisted.
func Evaluate(p *model.Profile, j *model.Job) Decision {
	if j.JobScore < p.MinJobScore {
		return Decision{Reason: ReasonJobScore}
	}
	match := scoring.ProfileMatchScore(p, j)
	if match < p.MinMatchScore {
		return Decision{Reason: ReasonMatchScore, MatchScore: match}
	}
	if scoring.ContainsAny(j.Company, p.BlacklistedCompanies) {
		return Decision{Reason: ReasonBlacklisted, MatchScore: match}
	}
	if scoring.ContainsAny(j.Company, p.WhitelistedCompanies) {
		return Decision{Accept: true, Reason: ReasonWhitelisted, MatchScore: match}
	}
	return Decision{Accept: true, Reason: ReasonAccepted, MatchScore: match}
}

// ShouldNotify reports whether p should be told about j, and why.
func ShouldNotify(p *model.Profile, j *model.Job) (bool, Reason) {
	d := Evaluate(p, j)
	return d.Accept, d.Reason
}

// FilterForProfile returns copies of the jobs p accepts, each carrying its
// profile match score, sorted by match score descending. Ties keep input
// order. The input slice is not modified.
func FilterForProfile(p *model.Profile, jobs []model.Job) []model.Job {
	out := make([]model.Job, 0, len(jobs))
	for i := range jobs {
		d := Evaluate(p, &jobs[i])
		if !d.Accept {
			continue
		}
		j := jobs[i]
		j.MatchScore = d.MatchScore
		out = append(out, j)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].MatchScore > out[b].MatchScore })
	return out
}
