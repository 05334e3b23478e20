// Package model defines shared data structures for the job alert service.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Placeholders applied on insert when a scraper leaves a required field empty.
const (
	UnknownTitle    = "Unknown Title"
	UnknownCompany  = "Unknown Company"
	UnknownLocation = "Unknown Location"
	UnknownSource   = "Unknown"
	DefaultCurrency = "INR"
)

// RawJob is a posting as emitted by a scraper, before persistence.
// Only URL is mandatory; everything else may be missing.
type RawJob struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Source   string `json:"source"`

	SalaryMin      *float64 `json:"salary_min,omitempty"`
	SalaryMax      *float64 `json:"salary_max,omitempty"`
	SalaryCurrency string   `json:"salary_currency,omitempty"`
	SalaryText     *string  `json:"salary_text,omitempty"`

	ExperienceMin  *int    `json:"experience_min,omitempty"`
	ExperienceMax  *int    `json:"experience_max,omitempty"`
	ExperienceText *string `json:"experience_text,omitempty"`

	JobType        *string `json:"job_type,omitempty"`
	EmploymentType *string `json:"employment_type,omitempty"`

	Description    *string  `json:"description,omitempty"`
	SkillsRequired []string `json:"skills_required,omitempty"`
	Benefits       *string  `json:"benefits,omitempty"`

	CompanySize     *string `json:"company_size,omitempty"`
	CompanyIndustry *string `json:"company_industry,omitempty"`
	CompanyWebsite  *string `json:"company_website,omitempty"`

	PostedDate *time.Time `json:"posted_date,omitempty"`
	IsRemote   bool       `json:"is_remote"`

	JobScore   float64 `json:"job_score"`
	MatchScore float64 `json:"match_score"`
}

// Job mirrors a row of the jobs table.
type Job struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Source   string `json:"source"`

	SalaryMin      *float64 `json:"salary_min"`
	SalaryMax      *float64 `json:"salary_max"`
	SalaryCurrency string   `json:"salary_currency"`
	SalaryText     *string  `json:"salary_text"`

	ExperienceMin  *int    `json:"experience_min"`
	ExperienceMax  *int    `json:"experience_max"`
	ExperienceText *string `json:"experience_text"`

	JobType        *string `json:"job_type"`
	EmploymentType *string `json:"employment_type"`

	Description    *string  `json:"description"`
	SkillsRequired []string `json:"skills_required"`
	Benefits       *string  `json:"benefits"`

	CompanySize     *string `json:"company_size"`
	CompanyIndustry *string `json:"company_industry"`
	CompanyWebsite  *string `json:"company_website"`

	PostedDate  *time.Time `json:"posted_date"`
	ScrapedDate time.Time  `json:"scraped_date"`
	IsActive    bool       `json:"is_active"`
	IsRemote    bool       `json:"is_remote"`

	JobScore   float64 `json:"job_score"`
	MatchScore float64 `json:"match_score"`
}

// NewJob builds the record inserted on first sighting of raw, with
// placeholders and defaults applied for missing fields.
func NewJob(raw RawJob, now time.Time) Job {
	j := Job{
		URL:             raw.URL,
		Title:           orDefault(raw.Title, UnknownTitle),
		Company:         orDefault(raw.Company, UnknownCompany),
		Location:        orDefault(raw.Location, UnknownLocation),
		Source:          orDefault(raw.Source, UnknownSource),
		SalaryMin:       raw.SalaryMin,
		SalaryMax:       raw.SalaryMax,
		SalaryCurrency:  orDefault(raw.SalaryCurrency, DefaultCurrency),
		SalaryText:      raw.SalaryText,
		ExperienceMin:   raw.ExperienceMin,
		ExperienceMax:   raw.ExperienceMax,
		ExperienceText:  raw.ExperienceText,
		JobType:         raw.JobType,
		EmploymentType:  raw.EmploymentType,
		Description:     raw.Description,
		SkillsRequired:  raw.SkillsRequired,
		Benefits:        raw.Benefits,
		CompanySize:     raw.CompanySize,
		CompanyIndustry: raw.CompanyIndustry,
		CompanyWebsite:  raw.CompanyWebsite,
		PostedDate:      raw.PostedDate,
		ScrapedDate:     now,
		IsActive:        true,
		IsRemote:        raw.IsRemote,
		JobScore:        raw.JobScore,
		MatchScore:      raw.MatchScore,
	}
	if j.SkillsRequired == nil {
		j.SkillsRequired = []string{}
	}
	return j
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// UpsertOutcome is the result of writing one sighting to the job store.
type UpsertOutcome int

const (
	OutcomeFailed UpsertOutcome = iota
	OutcomeInserted
	OutcomeRefreshed
	OutcomeUnchanged
)

func (o UpsertOutcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeRefreshed:
		return "refreshed"
	case OutcomeUnchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// Frequency mirrors the notification_frequency column.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency converts a raw string to a Frequency. Matching is
// case-insensitive; unknown values are an error.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		return f, nil
	}
	return "", fmt.Errorf("unknown notification frequency %q", s)
}

// Profile mirrors a row of the user_profiles table.
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`

	CurrentRole       string   `json:"current_role"`
	ExperienceYears   *int     `json:"experience_years"`
	CurrentSalary     *float64 `json:"current_salary"`
	ExpectedSalaryMin *float64 `json:"expected_salary_min"`
	ExpectedSalaryMax *float64 `json:"expected_salary_max"`

	PrimarySkills        []string `json:"primary_skills"`
	SecondarySkills      []string `json:"secondary_skills"`
	ProgrammingLanguages []string `json:"programming_languages"`
	Frameworks           []string `json:"frameworks"`
	Databases            []string `json:"databases"`
	CloudPlatforms       []string `json:"cloud_platforms"`

	PreferredLocations    []string `json:"preferred_locations"`
	PreferredJobTypes     []string `json:"preferred_job_types"`
	PreferredCompanySizes []string `json:"preferred_company_sizes"`
	PreferredIndustries   []string `json:"preferred_industries"`

	BlacklistedCompanies []string `json:"blacklisted_companies"`
	WhitelistedCompanies []string `json:"whitelisted_companies"`

	EmailNotifications    bool      `json:"email_notifications"`
	SlackNotifications    bool      `json:"slack_notifications"`
	DiscordNotifications  bool      `json:"discord_notifications"`
	NotificationFrequency Frequency `json:"notification_frequency"`

	MinJobScore   float64 `json:"min_job_score"`
	MinMatchScore float64 `json:"min_match_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsActive  bool      `json:"is_active"`
}

// Default thresholds for a new profile.
const (
	DefaultMinJobScore   = 50.0
	DefaultMinMatchScore = 60.0
)

// ProfileDefaults are the settings a new profile starts from when the
// creator leaves them unset.
type ProfileDefaults struct {
	Frequency     Frequency
	MinJobScore   float64
	MinMatchScore float64
}

// BuiltinProfileDefaults mirrors the column defaults: daily, 50/60.
func BuiltinProfileDefaults() ProfileDefaults {
	return ProfileDefaults{
		Frequency:     FrequencyDaily,
		MinJobScore:   DefaultMinJobScore,
		MinMatchScore: DefaultMinMatchScore,
	}
}

// NewProfile returns a profile carrying the column defaults: email
// notifications on, daily frequency, thresholds 50/60, active.
func NewProfile(email, name string) Profile {
	return NewProfileWith(email, name, BuiltinProfileDefaults())
}

// NewProfileWith is NewProfile with configured defaults. A blank frequency
// falls back to daily.
func NewProfileWith(email, name string, d ProfileDefaults) Profile {
	if d.Frequency == "" {
		d.Frequency = FrequencyDaily
	}
	return Profile{
		Name:                  name,
		Email:                 email,
		EmailNotifications:    true,
		NotificationFrequency: d.Frequency,
		MinJobScore:           d.MinJobScore,
		MinMatchScore:         d.MinMatchScore,
		IsActive:              true,
	}
}

// Criteria is the set of system-wide filter preferences: either the static
// configuration or an aggregate over all active profiles.
type Criteria struct {
	Locations []string `json:"preferred_locations" yaml:"preferred_locations"`
	MinSalary float64  `json:"min_salary" yaml:"min_salary"`
	MaxSalary float64  `json:"max_salary" yaml:"max_salary"`
	Blacklist []string `json:"blacklisted_companies" yaml:"blacklisted_companies"`
}

// Stats summarises the job store.
type Stats struct {
	TotalActive int            `json:"total_jobs"`
	RecentCount int            `json:"recent_jobs"`
	BySource    map[string]int `json:"jobs_by_source"`
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
