// Package scoring computes the deterministic, additive scores attached to
// job postings: an intrinsic quality score, a system-wide match score and a
// per-profile match score. Every score is capped at MaxScore.
package scoring

import (
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// MaxScore caps every score.
const MaxScore = 100.0

// ─── Rule tables ─────────────────────────────────────────────────────────────

// keywordRule awards points when keyword occurs in a field. Tables are
// scanned in order and the first hit wins.
type keywordRule struct {
	keyword string
	points  float64
}

// thresholdRule awards points when a value is at least min. Tables are
// ordered by descending min.
type thresholdRule struct {
	min    float64
	points float64
}

// Salary midpoint in LPA.
var salaryBands = []thresholdRule{
	{15, 30},
	{10, 20},
	{5, 10},
}

var companySizeRules = []keywordRule{
	{"enterprise", 20},
	{"mid-size", 15},
	{"startup", 10},
}

var jobTypeRules = []keywordRule{
	{"full-time", 15},
	{"remote", 12},
	{"contract", 8},
}

// Source reliability; matched on the whole source name.
var sourceRules = map[string]float64{
	"linkedin":  10,
	"glassdoor": 8,
	"indeed":    6,
}

const (
	remoteBonus = 10.0

	experienceSweetSpot = 15.0 // midpoint in [2, 5]
	experienceJunior    = 10.0 // midpoint below 2
	experienceSenior    = 5.0  // midpoint above 5
)

// System-wide match weights.
const (
	matchLocation     = 40.0
	matchSalaryMin    = 30.0
	matchSalaryMax    = 20.0
	matchRemote       = 20.0
	matchFullTime     = 10.0
	matchFullTimeType = "Full-time"
)

// Per-profile match weights.
const (
	profileLocation    = 25.0
	profileSalaryIn    = 20.0
	profileSalaryAbove = 15.0
	profileSalaryNear  = 10.0
	profileSalaryGap   = 0.2
	profileJobType     = 15.0
	profileCompanySize = 10.0
	profileSkills      = 20.0
	profileExperience  = 10.0
)

// ─── Scores ──────────────────────────────────────────────────────────────────

// JobScore rates the intrinsic attractiveness of a posting.
func JobScore(j *model.Job) float64 {
	var score float64

	if set(j.SalaryMin) && set(j.SalaryMax) {
		score += bandPoints(salaryBands, (*j.SalaryMin+*j.SalaryMax)/2)
	}
	score += keywordPoints(companySizeRules, model.Deref(j.CompanySize))
	score += keywordPoints(jobTypeRules, model.Deref(j.JobType))
	if j.IsRemote {
		score += remoteBonus
	}
	if setInt(j.ExperienceMin) && setInt(j.ExperienceMax) {
		avg := float64(*j.ExperienceMin+*j.ExperienceMax) / 2
		switch {
		case avg >= 2 && avg <= 5:
			score += experienceSweetSpot
		case avg < 2:
			score += experienceJunior
		default:
			score += experienceSenior
		}
	}
	score += sourceRules[Normalize(strings.TrimSpace(j.Source))]

	return capped(score)
}

// MatchScore rates a posting against the system-wide criteria. It is kept
// separate from ProfileMatchScore; the two use different weights.
func MatchScore(j *model.Job, c model.Criteria) float64 {
	var score float64

	if ContainsAny(j.Location, c.Locations) {
		score += matchLocation
	}
	switch {
	case set(j.SalaryMin) && inBand(*j.SalaryMin, c):
		score += matchSalaryMin
	case set(j.SalaryMax) && inBand(*j.SalaryMax, c):
		score += matchSalaryMax
	}
	if j.IsRemote {
		score += matchRemote
	}
	if model.Deref(j.JobType) == matchFullTimeType {
		score += matchFullTime
	}

	return capped(score)
}

// ProfileMatchScore rates how well a posting suits one profile.
func ProfileMatchScore(p *model.Profile, j *model.Job) float64 {
	var score float64

	if ContainsAny(j.Location, p.PreferredLocations) {
		score += profileLocation
	}
	score += profileSalaryPoints(p, j)
	if ContainsAny(model.Deref(j.JobType), p.PreferredJobTypes) {
		score += profileJobType
	}
	if ContainsAny(model.Deref(j.CompanySize), p.PreferredCompanySizes) {
		score += profileCompanySize
	}
	score += SkillRatio(p.PrimarySkills, j) * profileSkills
	if setInt(p.ExperienceYears) && setInt(j.ExperienceMin) && setInt(j.ExperienceMax) {
		years := *p.ExperienceYears
		if years >= *j.ExperienceMin && years <= *j.ExperienceMax {
			score += profileExperience
		}
	}

	return capped(score)
}

func profileSalaryPoints(p *model.Profile, j *model.Job) float64 {
	if !set(p.ExpectedSalaryMin) || !set(p.ExpectedSalaryMax) || !set(j.SalaryMin) || !set(j.SalaryMax) {
		return 0
	}
	lo, hi := *p.ExpectedSalaryMin, *p.ExpectedSalaryMax
	avg := (*j.SalaryMin + *j.SalaryMax) / 2
	switch {
	case avg >= lo && avg <= hi:
		return profileSalaryIn
	case avg > hi:
		return profileSalaryAbove
	case (lo-avg)/lo <= profileSalaryGap:
		return profileSalaryNear
	}
	return 0
}

// SkillRatio is the fraction of skills mentioned in the title or
// description of j.
func SkillRatio(skills []string, j *model.Job) float64 {
	if len(skills) == 0 {
		return 0
	}
	text := j.Title + " " + model.Deref(j.Description)
	matched := 0
	for _, s := range skills {
		if Contains(text, s) {
			matched++
		}
	}
	return float64(matched) / float64(len(skills))
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func keywordPoints(rules []keywordRule, field string) float64 {
	f := Normalize(field)
	for _, r := range rules {
		if strings.Contains(f, r.keyword) {
			return r.points
		}
	}
	return 0
}

func bandPoints(rules []thresholdRule, v float64) float64 {
	for _, r := range rules {
		if v >= r.min {
			return r.points
		}
	}
	return 0
}

func inBand(v float64, c model.Criteria) bool {
	return v >= c.MinSalary && v <= c.MaxSalary
}

// set treats zero like absent, matching how postings report unknown
// salaries.
func set(f *float64) bool { return f != nil && *f != 0 }

func setInt(i *int) bool { return i != nil && *i != 0 }

func capped(score float64) float64 {
	if score > MaxScore {
		return MaxScore
	}
	return score
}
