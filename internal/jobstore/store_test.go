package jobstore

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobalert-service/internal/db/dbtest"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
)

func newTestStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	pool := dbtest.Pool(t, "jobs")
	s := New(pool, logger.Nop())
	clock := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func rawJob(url, source string) model.RawJob {
	return model.RawJob{
		URL:      url,
		Title:    "Go Developer",
		Company:  "Acme",
		Location: "Pune",
		Source:   source,
	}
}

func setScrapedDate(t *testing.T, s *Store, url string, at time.Time) {
	t.Helper()
	_, err := s.pool.Exec(context.Background(),
		`UPDATE jobs SET scraped_date = $1 WHERE url = $2`, at, url)
	require.NoError(t, err)
}

func TestStore_IdempotentDedup(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	out, err := s.Upsert(ctx, rawJob("https://jobs.example/1", "LinkedIn"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeInserted, out)

	out, err = s.Upsert(ctx, rawJob("https://jobs.example/1", "LinkedIn"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUnchanged, out)

	var n int
	require.NoError(t, s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE url = $1`, "https://jobs.example/1").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestStore_SaveReturnsStoredRow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	job, out, err := s.Save(ctx, rawJob("https://jobs.example/saved", "LinkedIn"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeInserted, out)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "Go Developer", job.Title)

	again, out, err := s.Save(ctx, rawJob("https://jobs.example/saved", "LinkedIn"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUnchanged, out)
	assert.Equal(t, job.ID, again.ID)
}

func TestStore_LongScrapedText(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	long := strings.Repeat("x", 1000)
	r := rawJob("https://jobs.example/"+long, "LinkedIn")
	r.Title = "Senior " + long
	r.Company = long
	r.Location = long
	r.SalaryText = &long
	r.ExperienceText = &long

	job, out, err := s.Save(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeInserted, out)
	assert.Equal(t, r.Title, job.Title)
}

func TestStore_InsertDefaults(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, model.RawJob{URL: "https://jobs.example/bare"})
	require.NoError(t, err)

	j, err := s.GetByURL(ctx, "https://jobs.example/bare")
	require.NoError(t, err)
	assert.Equal(t, model.UnknownTitle, j.Title)
	assert.Equal(t, model.UnknownCompany, j.Company)
	assert.Equal(t, model.UnknownLocation, j.Location)
	assert.Equal(t, model.DefaultCurrency, j.SalaryCurrency)
	assert.True(t, j.IsActive)
	assert.False(t, j.IsRemote)
	assert.Zero(t, j.JobScore)
	assert.Zero(t, j.MatchScore)
	assert.True(t, j.ScrapedDate.Equal(*clock))
}

func TestStore_RefreshBoundary(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, rawJob("https://jobs.example/old", "Indeed"))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, rawJob("https://jobs.example/young", "Indeed"))
	require.NoError(t, err)

	setScrapedDate(t, s, "https://jobs.example/old", clock.Add(-RefreshAfter-time.Second))
	setScrapedDate(t, s, "https://jobs.example/young", clock.Add(-(6*24+23)*time.Hour))

	refreshed := rawJob("https://jobs.example/old", "Indeed")
	refreshed.Title = "Senior Go Developer"
	refreshed.SalaryMax = fptr(30)
	out, err := s.Upsert(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeRefreshed, out)

	j, err := s.GetByURL(ctx, "https://jobs.example/old")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Developer", j.Title)
	require.NotNil(t, j.SalaryMax)
	assert.Equal(t, 30.0, *j.SalaryMax)
	assert.True(t, j.ScrapedDate.Equal(*clock), "scraped_date advances to now")

	out, err = s.Upsert(ctx, rawJob("https://jobs.example/young", "Indeed"))
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUnchanged, out)
}

func TestStore_UpsertRejectsMissingURL(t *testing.T) {
	s, _ := newTestStore(t)
	out, err := s.Upsert(context.Background(), model.RawJob{Title: "x"})
	assert.ErrorIs(t, err, ErrMissingURL)
	assert.Equal(t, model.OutcomeFailed, out)
}

func TestStore_ExpireStaleIdempotent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://jobs.example/a", "https://jobs.example/b", "https://jobs.example/c"} {
		_, err := s.Upsert(ctx, rawJob(u, "LinkedIn"))
		require.NoError(t, err)
	}
	setScrapedDate(t, s, "https://jobs.example/a", clock.Add(-31*24*time.Hour))
	setScrapedDate(t, s, "https://jobs.example/b", clock.Add(-40*24*time.Hour))

	n, err := s.ExpireStale(ctx, ExpireAfterDays)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.ExpireStale(ctx, ExpireAfterDays)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	j, err := s.GetByURL(ctx, "https://jobs.example/a")
	require.NoError(t, err)
	assert.False(t, j.IsActive, "expired jobs are kept, not deleted")
}

func TestStore_QueriesAndStats(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	for _, r := range []model.RawJob{
		rawJob("https://jobs.example/l1", "LinkedIn"),
		rawJob("https://jobs.example/l2", "LinkedIn"),
		rawJob("https://jobs.example/i1", "Indeed"),
		rawJob("https://jobs.example/gone", "Indeed"),
	} {
		_, err := s.Upsert(ctx, r)
		require.NoError(t, err)
	}
	setScrapedDate(t, s, "https://jobs.example/l1", clock.Add(-2*24*time.Hour))
	setScrapedDate(t, s, "https://jobs.example/l2", clock.Add(-1*time.Hour))
	setScrapedDate(t, s, "https://jobs.example/i1", clock.Add(-10*24*time.Hour))
	setScrapedDate(t, s, "https://jobs.example/gone", clock.Add(-60*24*time.Hour))
	_, err := s.ExpireStale(ctx, ExpireAfterDays)
	require.NoError(t, err)

	recent, err := s.QueryRecent(ctx, 7)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "https://jobs.example/l2", recent[0].URL, "newest first")
	assert.Equal(t, "https://jobs.example/l1", recent[1].URL)

	indeed, err := s.QueryBySource(ctx, "Indeed")
	require.NoError(t, err)
	require.Len(t, indeed, 1, "inactive jobs are excluded")
	assert.Equal(t, "https://jobs.example/i1", indeed[0].URL)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalActive)
	assert.Equal(t, 2, st.RecentCount)
	assert.Equal(t, map[string]int{"LinkedIn": 2, "Indeed": 1}, st.BySource)
}

func TestStore_SetMatchScore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, rawJob("https://jobs.example/m", "LinkedIn"))
	require.NoError(t, err)
	require.NoError(t, s.SetMatchScore(ctx, "https://jobs.example/m", 72.5))

	j, err := s.GetByURL(ctx, "https://jobs.example/m")
	require.NoError(t, err)
	assert.Equal(t, 72.5, j.MatchScore)

	assert.ErrorIs(t, s.SetMatchScore(ctx, "https://jobs.example/none", 1), ErrNotFound)
}
