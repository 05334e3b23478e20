package profilestore

import (
	"fmt"
	"strings"

	"jobmate/jobalert-service/internal/model"
)

// Patch is a partial profile update. Nil fields are left untouched; a
// non-nil slice replaces the stored list, including with an empty one.
type Patch struct {
	Name              *string  `json:"name,omitempty"`
	CurrentRole       *string  `json:"current_role,omitempty"`
	ExperienceYears   *int     `json:"experience_years,omitempty"`
	CurrentSalary     *float64 `json:"current_salary,omitempty"`
	ExpectedSalaryMin *float64 `json:"expected_salary_min,omitempty"`
	ExpectedSalaryMax *float64 `json:"expected_salary_max,omitempty"`

	PrimarySkills        *[]string `json:"primary_skills,omitempty"`
	SecondarySkills      *[]string `json:"secondary_skills,omitempty"`
	ProgrammingLanguages *[]string `json:"programming_languages,omitempty"`
	Frameworks           *[]string `json:"frameworks,omitempty"`
	Databases            *[]string `json:"databases,omitempty"`
	CloudPlatforms       *[]string `json:"cloud_platforms,omitempty"`

	PreferredLocations    *[]string `json:"preferred_locations,omitempty"`
	PreferredJobTypes     *[]string `json:"preferred_job_types,omitempty"`
	PreferredCompanySizes *[]string `json:"preferred_company_sizes,omitempty"`
	PreferredIndustries   *[]string `json:"preferred_industries,omitempty"`

	BlacklistedCompanies *[]string `json:"blacklisted_companies,omitempty"`
	WhitelistedCompanies *[]string `json:"whitelisted_companies,omitempty"`

	EmailNotifications    *bool   `json:"email_notifications,omitempty"`
	SlackNotifications    *bool   `json:"slack_notifications,omitempty"`
	DiscordNotifications  *bool   `json:"discord_notifications,omitempty"`
	NotificationFrequency *string `json:"notification_frequency,omitempty"`

	MinJobScore   *float64 `json:"min_job_score,omitempty"`
	MinMatchScore *float64 `json:"min_match_score,omitempty"`
	IsActive      *bool    `json:"is_active,omitempty"`
}

// Apply copies every set field of patch onto p. An unparseable frequency is
// copied verbatim so Validate reports it.
func (patch Patch) Apply(p *model.Profile) {
	setString(&p.Name, patch.Name)
	setString(&p.CurrentRole, patch.CurrentRole)
	if patch.ExperienceYears != nil {
		v := *patch.ExperienceYears
		p.ExperienceYears = &v
	}
	setFloatPtr(&p.CurrentSalary, patch.CurrentSalary)
	setFloatPtr(&p.ExpectedSalaryMin, patch.ExpectedSalaryMin)
	setFloatPtr(&p.ExpectedSalaryMax, patch.ExpectedSalaryMax)

	setList(&p.PrimarySkills, patch.PrimarySkills)
	setList(&p.SecondarySkills, patch.SecondarySkills)
	setList(&p.ProgrammingLanguages, patch.ProgrammingLanguages)
	setList(&p.Frameworks, patch.Frameworks)
	setList(&p.Databases, patch.Databases)
	setList(&p.CloudPlatforms, patch.CloudPlatforms)
	setList(&p.PreferredLocations, patch.PreferredLocations)
	setList(&p.PreferredJobTypes, patch.PreferredJobTypes)
	setList(&p.PreferredCompanySizes, patch.PreferredCompanySizes)
	setList(&p.PreferredIndustries, patch.PreferredIndustries)
	setList(&p.BlacklistedCompanies, patch.BlacklistedCompanies)
	setList(&p.WhitelistedCompanies, patch.WhitelistedCompanies)

	setBool(&p.EmailNotifications, patch.EmailNotifications)
	setBool(&p.SlackNotifications, patch.SlackNotifications)
	setBool(&p.DiscordNotifications, patch.DiscordNotifications)
	if patch.NotificationFrequency != nil {
		if f, err := model.ParseFrequency(*patch.NotificationFrequency); err == nil {
			p.NotificationFrequency = f
		} else {
			p.NotificationFrequency = model.Frequency(*patch.NotificationFrequency)
		}
	}
	if patch.MinJobScore != nil {
		p.MinJobScore = *patch.MinJobScore
	}
	if patch.MinMatchScore != nil {
		p.MinMatchScore = *patch.MinMatchScore
	}
	setBool(&p.IsActive, patch.IsActive)
}

// Validate checks the user-controlled fields of p.
func Validate(p *model.Profile) error {
	if !strings.Contains(p.Email, "@") {
		return &ValidationError{Msg: fmt.Sprintf("invalid email %q", p.Email)}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Msg: "name is required"}
	}
	if _, err := model.ParseFrequency(string(p.NotificationFrequency)); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	if p.ExpectedSalaryMin != nil && p.ExpectedSalaryMax != nil && *p.ExpectedSalaryMin > *p.ExpectedSalaryMax {
		return &ValidationError{Msg: "expected_salary_min must not exceed expected_salary_max"}
	}
	if p.ExperienceYears != nil && *p.ExperienceYears < 0 {
		return &ValidationError{Msg: "experience_years must not be negative"}
	}
	for name, v := range map[string]float64{"min_job_score": p.MinJobScore, "min_match_score": p.MinMatchScore} {
		if v < 0 || v > 100 {
			return &ValidationError{Msg: name + " must be between 0 and 100"}
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloatPtr(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func setList(dst *[]string, v *[]string) {
	if v != nil {
		*dst = append([]string{}, (*v)...)
	}
}
