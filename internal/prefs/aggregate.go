// Package prefs merges active profile preferences into the system-wide
// filter criteria used by the batch pipeline.
package prefs

import (
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// AggregateDefaults unions preferred locations and blacklisted companies
// over profiles (first-seen order, duplicates dropped case-insensitively)
// and widens the salary band to the lowest minimum and highest maximum any
// profile sets. Each component with no contributing profile keeps the value
// from static, so an empty profile list returns static unchanged.
func AggregateDefaults(profiles []model.Profile, static model.Criteria) model.Criteria {
	var (
		locations, blacklist []string
		minSalary, maxSalary float64
		haveMin, haveMax     bool
	)
	seenLoc, seenBlack := map[string]bool{}, map[string]bool{}

	for i := range profiles {
		p := &profiles[i]
		locations = appendUnique(locations, seenLoc, p.PreferredLocations)
		blacklist = appendUnique(blacklist, seenBlack, p.BlacklistedCompanies)

		if v := p.ExpectedSalaryMin; v != nil && *v != 0 {
			if !haveMin || *v < minSalary {
				minSalary = *v
			}
			haveMin = true
		}
		if v := p.ExpectedSalaryMax; v != nil && *v != 0 {
			if !haveMax || *v > maxSalary {
				maxSalary = *v
			}
			haveMax = true
		}
	}

	out := static
	if len(locations) > 0 {
		out.Locations = locations
	}
	if len(blacklist) > 0 {
		out.Blacklist = blacklist
	}
	if haveMin {
		out.MinSalary = minSalary
	}
	if haveMax {
		out.MaxSalary = maxSalary
	}
	return out
}

func appendUnique(dst []string, seen map[string]bool, values []string) []string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, v)
	}
	return dst
}
