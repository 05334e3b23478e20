package profilestore

import (
	"errors"
	"testing"

	"jobmate/jobalert-service/internal/model"
)

func TestPatchApply_OnlySetFields(t *testing.T) {
	p := DefaultProfile("dev@example.com", "Dev")
	role := "Staff Engineer"
	empty := []string{}
	freq := "Weekly"
	score := 75.0

	Patch{
		CurrentRole:           &role,
		BlacklistedCompanies:  &empty,
		NotificationFrequency: &freq,
		MinMatchScore:         &score,
	}.Apply(&p)

	if p.CurrentRole != "Staff Engineer" {
		t.Errorf("CurrentRole = %q", p.CurrentRole)
	}
	if p.NotificationFrequency != model.FrequencyWeekly {
		t.Errorf("NotificationFrequency = %q, want weekly", p.NotificationFrequency)
	}
	if p.MinMatchScore != 75 || p.MinJobScore != model.DefaultMinJobScore {
		t.Errorf("scores = %v/%v", p.MinJobScore, p.MinMatchScore)
	}
	if p.BlacklistedCompanies == nil || len(p.BlacklistedCompanies) != 0 {
		t.Errorf("BlacklistedCompanies = %v, want empty non-nil", p.BlacklistedCompanies)
	}
	if len(p.PrimarySkills) != 3 || p.Name != "Dev" {
		t.Errorf("unset fields changed: %+v", p)
	}
}

func TestValidate(t *testing.T) {
	lo, hi := 30.0, 10.0
	neg := -1
	cases := []struct {
		name   string
		mutate func(*model.Profile)
		ok     bool
	}{
		{"default profile", func(*model.Profile) {}, true},
		{"bad email", func(p *model.Profile) { p.Email = "nobody" }, false},
		{"blank name", func(p *model.Profile) { p.Name = "  " }, false},
		{"unknown frequency", func(p *model.Profile) { p.NotificationFrequency = "monthly" }, false},
		{"inverted salary", func(p *model.Profile) { p.ExpectedSalaryMin, p.ExpectedSalaryMax = &lo, &hi }, false},
		{"negative experience", func(p *model.Profile) { p.ExperienceYears = &neg }, false},
		{"score above 100", func(p *model.Profile) { p.MinJobScore = 101 }, false},
		{"score below 0", func(p *model.Profile) { p.MinMatchScore = -5 }, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := DefaultProfile("dev@example.com", "Dev")
			c.mutate(&p)
			err := Validate(&p)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("want *ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile("dev@example.com", "Dev")
	if p.CurrentRole != "Software Engineer" || *p.ExperienceYears != 3 {
		t.Errorf("role/experience = %q/%d", p.CurrentRole, *p.ExperienceYears)
	}
	if *p.ExpectedSalaryMin != 8 || *p.ExpectedSalaryMax != 20 {
		t.Errorf("salary = %v-%v", *p.ExpectedSalaryMin, *p.ExpectedSalaryMax)
	}
	if !p.EmailNotifications || p.NotificationFrequency != model.FrequencyDaily || !p.IsActive {
		t.Errorf("column defaults not applied: %+v", p)
	}
}

func TestDefaultProfileWith_ConfiguredDefaults(t *testing.T) {
	p := DefaultProfileWith("dev@example.com", "Dev", model.ProfileDefaults{
		Frequency: model.FrequencyWeekly, MinJobScore: 65, MinMatchScore: 45,
	})
	if p.NotificationFrequency != model.FrequencyWeekly {
		t.Errorf("frequency = %q, want weekly", p.NotificationFrequency)
	}
	if p.MinJobScore != 65 || p.MinMatchScore != 45 {
		t.Errorf("thresholds = %v/%v, want 65/45", p.MinJobScore, p.MinMatchScore)
	}
	if len(p.PrimarySkills) != 3 {
		t.Errorf("starter skills missing: %v", p.PrimarySkills)
	}
}
