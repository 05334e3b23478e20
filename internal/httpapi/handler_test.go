package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/pipeline"
	"jobmate/jobalert-service/internal/profilestore"
	"jobmate/jobalert-service/internal/scheduler"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

type fakeJobs struct {
	recent     []model.Job
	bySource   map[string][]model.Job
	err        error
	recentDays int
}

func (f *fakeJobs) QueryRecent(_ context.Context, days int) ([]model.Job, error) {
	f.recentDays = days
	return f.recent, f.err
}

func (f *fakeJobs) QueryBySource(_ context.Context, source string) ([]model.Job, error) {
	return f.bySource[source], f.err
}

func (f *fakeJobs) Stats(context.Context) (model.Stats, error) {
	return model.Stats{TotalActive: 3, RecentCount: 2, BySource: map[string]int{"Adzuna": 3}}, f.err
}

type fakeProfiles struct {
	byEmail     map[string]model.Profile
	created     *model.Profile
	patched     *profilestore.Patch
	deactivated string
}

func (f *fakeProfiles) Create(_ context.Context, p model.Profile) (*model.Profile, error) {
	if err := profilestore.Validate(&p); err != nil {
		return nil, err
	}
	if _, ok := f.byEmail[p.Email]; ok {
		return nil, profilestore.ErrDuplicate
	}
	p.ID = 7
	f.created = &p
	return &p, nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return nil, profilestore.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) Update(_ context.Context, email string, patch profilestore.Patch) (*model.Profile, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return nil, profilestore.ErrNotFound
	}
	f.patched = &patch
	patch.Apply(&p)
	if err := profilestore.Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (f *fakeProfiles) Deactivate(_ context.Context, email string) error {
	if _, ok := f.byEmail[email]; !ok {
		return profilestore.ErrNotFound
	}
	f.deactivated = email
	return nil
}

type fakeCycles struct {
	err    error
	calls  int
	ctxErr error
}

func (f *fakeCycles) RunNow(ctx context.Context) (pipeline.CycleReport, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return pipeline.CycleReport{ID: "abc", Inserted: 4, Duration: time.Second}, f.err
}

func (f *fakeCycles) Status() scheduler.Status {
	return scheduler.Status{Running: true, RunCount: 5}
}

// ── Harness ────────────────────────────────────────────────────────────────

type harness struct {
	jobs     *fakeJobs
	profiles *fakeProfiles
	cycles   *fakeCycles
	mux      *http.ServeMux
}

func newHarness(withProfiles bool) *harness {
	h := &harness{
		jobs:     &fakeJobs{bySource: map[string][]model.Job{}},
		profiles: &fakeProfiles{byEmail: map[string]model.Profile{}},
		cycles:   &fakeCycles{},
		mux:      http.NewServeMux(),
	}
	var profiles Profiles
	if withProfiles {
		profiles = h.profiles
	}
	NewHandler(h.jobs, profiles, h.cycles, "test", logger.Nop()).RegisterRoutes(h.mux)
	return h
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// ── Tests ──────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	rec := newHarness(true).do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"status": "ok", "service": "jobalert-service", "version": "test"},
		decode[map[string]string](t, rec))
}

func TestRecentJobs(t *testing.T) {
	h := newHarness(true)
	h.jobs.recent = []model.Job{{URL: "u1"}, {URL: "u2"}}

	rec := h.do(t, http.MethodGet, "/jobs/recent?days=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, h.jobs.recentDays)
	got := decode[jobsResponse](t, rec)
	assert.Equal(t, 2, got.Count)

	h.do(t, http.MethodGet, "/jobs/recent", "")
	assert.Equal(t, defaultRecentDays, h.jobs.recentDays)

	for _, bad := range []string{"0", "-1", "abc", "366"} {
		rec := h.do(t, http.MethodGet, "/jobs/recent?days="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestJobsBySourceAndStats(t *testing.T) {
	h := newHarness(true)
	h.jobs.bySource["Adzuna"] = []model.Job{{URL: "a"}}

	rec := h.do(t, http.MethodGet, "/jobs/source/Adzuna", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[jobsResponse](t, rec).Count)

	rec = h.do(t, http.MethodGet, "/jobs/source/Nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"jobs":[]}`, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/jobs/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_jobs":3,"recent_jobs":2,"jobs_by_source":{"Adzuna":3}}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/jobs/unknown", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodPost, "/jobs/stats", "").Code)
}

func TestJobsStoreError(t *testing.T) {
	h := newHarness(true)
	h.jobs.err = errors.New("pool closed")
	rec := h.do(t, http.MethodGet, "/jobs/stats", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "database error", decode[map[string]string](t, rec)["error"])
}

func TestCreateProfile(t *testing.T) {
	h := newHarness(true)

	rec := h.do(t, http.MethodPost, "/profiles",
		`{"email":"dev@example.com","name":"Dev","preferred_locations":["Pune"],"min_match_score":70}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[model.Profile](t, rec)
	assert.EqualValues(t, 7, got.ID)
	assert.Equal(t, []string{"Pune"}, got.PreferredLocations)
	assert.Equal(t, 70.0, got.MinMatchScore)
	assert.Equal(t, model.DefaultMinJobScore, got.MinJobScore, "unset fields keep defaults")
	assert.True(t, got.EmailNotifications)

	rec = h.do(t, http.MethodPost, "/profiles", `{"email":"nobody","name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/profiles", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.profiles.byEmail["dup@example.com"] = model.NewProfile("dup@example.com", "Dup")
	rec = h.do(t, http.MethodPost, "/profiles", `{"email":"dup@example.com","name":"Dup"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodGet, "/profiles", "").Code)
}

func TestProfileLifecycle(t *testing.T) {
	h := newHarness(true)
	h.profiles.byEmail["dev@example.com"] = model.NewProfile("dev@example.com", "Dev")

	rec := h.do(t, http.MethodGet, "/profiles/dev@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dev", decode[model.Profile](t, rec).Name)

	rec = h.do(t, http.MethodPatch, "/profiles/dev@example.com", `{"slack_notifications":true,"notification_frequency":"weekly"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Profile](t, rec)
	assert.True(t, got.SlackNotifications)
	assert.Equal(t, model.FrequencyWeekly, got.NotificationFrequency)
	require.NotNil(t, h.profiles.patched)
	assert.Nil(t, h.profiles.patched.Name)

	rec = h.do(t, http.MethodPatch, "/profiles/dev@example.com", `{"notification_frequency":"monthly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodDelete, "/profiles/dev@example.com", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "dev@example.com", h.profiles.deactivated)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := h.do(t, method, "/profiles/ghost@example.com", "{}")
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodPut, "/profiles/dev@example.com", "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/profiles/dev@example.com/history", "").Code)
}

func TestProfileMatches(t *testing.T) {
	h := newHarness(true)
	p := model.NewProfile("dev@example.com", "Dev")
	p.MinJobScore = 0
	p.MinMatchScore = 25
	p.PreferredLocations = []string{"Pune"}
	h.profiles.byEmail[p.Email] = p

	remote := "Remote"
	h.jobs.recent = []model.Job{
		{URL: "far", Location: "Chennai", Company: "A"},
		{URL: "pune", Location: "Pune", Company: "B"},
		{URL: "pune-remote", Location: "Pune", Company: "C", JobType: &remote},
	}

	rec := h.do(t, http.MethodGet, "/profiles/dev@example.com/matches?days=14", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, h.jobs.recentDays)
	got := decode[jobsResponse](t, rec)
	require.Equal(t, 2, got.Count)
	assert.Equal(t, "pune", got.Jobs[0].URL, "location 25 for both; ties keep store order")
	assert.Equal(t, 25.0, got.Jobs[0].MatchScore)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/profiles/ghost@example.com/matches", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodPost, "/profiles/dev@example.com/matches", "").Code)
}

func TestProfilesDisabled(t *testing.T) {
	h := newHarness(false)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/profiles", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/profiles/dev@example.com", "").Code)
}

func TestCycles(t *testing.T) {
	h := newHarness(true)

	rec := h.do(t, http.MethodPost, "/cycles", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[pipeline.CycleReport](t, rec).Inserted)

	h.cycles.err = scheduler.ErrCycleRunning
	assert.Equal(t, http.StatusConflict, h.do(t, http.MethodPost, "/cycles", "").Code)

	h.cycles.err = errors.New("list active profiles: boom")
	rec = h.do(t, http.MethodPost, "/cycles", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	assert.Equal(t, http.StatusMethodNotAllowed, h.do(t, http.MethodGet, "/cycles", "").Code)
	assert.Equal(t, 3, h.cycles.calls)
}

func TestCycles_OutliveDisconnectedClient(t *testing.T) {
	h := newHarness(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/cycles", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)

	require.Equal(t, 1, h.cycles.calls)
	assert.NoError(t, h.cycles.ctxErr, "cycle context is detached from the request")
}

func TestCreateProfile_ConfiguredDefaults(t *testing.T) {
	h := newHarness(true)
	h.mux = http.NewServeMux()
	NewHandler(h.jobs, h.profiles, h.cycles, "test", logger.Nop()).
		WithProfileDefaults(model.ProfileDefaults{Frequency: model.FrequencyWeekly, MinJobScore: 65, MinMatchScore: 45}).
		RegisterRoutes(h.mux)

	rec := h.do(t, http.MethodPost, "/profiles", `{"email":"dev@example.com","min_match_score":70}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[model.Profile](t, rec)
	assert.Equal(t, 65.0, got.MinJobScore)
	assert.Equal(t, 70.0, got.MinMatchScore, "request wins over defaults")
	assert.Equal(t, model.FrequencyWeekly, got.NotificationFrequency)
}

func TestSchedulerStatus(t *testing.T) {
	rec := newHarness(true).do(t, http.MethodGet, "/scheduler/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[scheduler.Status](t, rec)
	assert.True(t, got.Running)
	assert.Equal(t, 5, got.RunCount)
}
