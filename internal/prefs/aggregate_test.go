package prefs

import (
	"reflect"
	"testing"

	"jobmate/jobalert-service/internal/model"
)

func f(v float64) *float64 { return &v }

var static = model.Criteria{
	Locations: []string{"Bangalore", "Mumbai"},
	MinSalary: 0,
	MaxSalary: 9999999,
	Blacklist: []string{"Spam Corp"},
}

func TestAggregateDefaults_NoProfiles(t *testing.T) {
	for _, profiles := range [][]model.Profile{nil, {}} {
		if got := AggregateDefaults(profiles, static); !reflect.DeepEqual(got, static) {
			t.Errorf("AggregateDefaults(%v) = %+v, want static defaults", profiles, got)
		}
	}
}

func TestAggregateDefaults_Union(t *testing.T) {
	profiles := []model.Profile{
		{PreferredLocations: []string{"Pune", "Remote"}, BlacklistedCompanies: []string{"Initech"},
			ExpectedSalaryMin: f(8), ExpectedSalaryMax: f(20)},
		{PreferredLocations: []string{"remote", "Chennai"},
			ExpectedSalaryMin: f(5), ExpectedSalaryMax: f(35)},
		{PreferredLocations: []string{" ", "Pune"}, BlacklistedCompanies: []string{"initech", "Globex"}},
	}
	got := AggregateDefaults(profiles, static)
	want := model.Criteria{
		Locations: []string{"Pune", "Remote", "Chennai"},
		MinSalary: 5,
		MaxSalary: 35,
		Blacklist: []string{"Initech", "Globex"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestAggregateDefaults_PerComponentFallback(t *testing.T) {
	profiles := []model.Profile{{ExpectedSalaryMax: f(40)}}
	got := AggregateDefaults(profiles, static)
	want := static
	want.MaxSalary = 40
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}
