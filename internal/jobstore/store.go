package jobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
)

// ErrNotFound is returned when no job exists for a URL.
var ErrNotFound = errors.New("job not found")

// ErrMissingURL is returned by Upsert for a sighting without a URL.
var ErrMissingURL = errors.New("job url is required")

const jobColumns = `id, url, title, company, location, source,
	salary_min, salary_max, salary_currency, salary_text,
	experience_min, experience_max, experience_text,
	job_type, employment_type, description, skills_required, benefits,
	company_size, company_industry, company_website,
	posted_date, scraped_date, is_active, is_remote, job_score, match_score`

// Store is the PostgreSQL job store. Each Upsert runs in its own
// transaction; there is no transaction spanning several jobs.
type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
	now  func() time.Time
}

// New constructs a Store.
func New(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{
		pool: pool,
		log:  log.With("component", "jobstore"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Upsert records one sighting of raw. The existing row, if any, is locked
// for the duration of the transaction. Any failure rolls the transaction
// back and yields OutcomeFailed together with the error.
func (s *Store) Upsert(ctx context.Context, raw model.RawJob) (model.UpsertOutcome, error) {
	_, outcome, err := s.Save(ctx, raw)
	return outcome, err
}

// Save is Upsert that also returns the stored row after the sighting. The
// row is zero when the outcome is OutcomeFailed.
func (s *Store) Save(ctx context.Context, raw model.RawJob) (model.Job, model.UpsertOutcome, error) {
	raw.URL = strings.TrimSpace(raw.URL)
	if raw.URL == "" {
		return model.Job{}, model.OutcomeFailed, ErrMissingURL
	}

	job, outcome, err := s.upsertTx(ctx, raw)
	if err != nil {
		s.log.Error("upsert failed, rolled back", "url", raw.URL, "err", err)
		return model.Job{}, model.OutcomeFailed, err
	}
	s.log.Debug("upsert", "url", raw.URL, "outcome", outcome.String())
	return job, outcome, nil
}

func (s *Store) upsertTx(ctx context.Context, raw model.RawJob) (model.Job, model.UpsertOutcome, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Job{}, model.OutcomeFailed, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op once committed

	now := s.now()

	existing, err := scanJob(tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE url = $1 FOR UPDATE`, raw.URL))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		existing = nil
	case err != nil:
		return model.Job{}, model.OutcomeFailed, fmt.Errorf("select: %w", err)
	}

	var job model.Job
	outcome := Decide(existing, now)
	switch outcome {
	case model.OutcomeInserted:
		job = model.NewJob(raw, now)
		inserted, err := insertJob(ctx, tx, &job)
		if err != nil {
			return model.Job{}, model.OutcomeFailed, err
		}
		if !inserted {
			// A concurrent writer created the row between our SELECT and
			// INSERT; the URL is already known.
			outcome = model.OutcomeUnchanged
		}
	case model.OutcomeRefreshed:
		ApplyRefresh(existing, raw, now)
		if err := refreshJob(ctx, tx, existing); err != nil {
			return model.Job{}, model.OutcomeFailed, err
		}
		job = *existing
	case model.OutcomeUnchanged:
		return *existing, outcome, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Job{}, model.OutcomeFailed, fmt.Errorf("commit: %w", err)
	}
	return job, outcome, nil
}

func insertJob(ctx context.Context, tx pgx.Tx, j *model.Job) (bool, error) {
	err := tx.QueryRow(ctx,
		`INSERT INTO jobs (url, title, company, location, source,
		        salary_min, salary_max, salary_currency, salary_text,
		        experience_min, experience_max, experience_text,
		        job_type, employment_type, description, skills_required, benefits,
		        company_size, company_industry, company_website,
		        posted_date, scraped_date, is_active, is_remote, job_score, match_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		         $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
		 ON CONFLICT (url) DO NOTHING
		 RETURNING id`,
		j.URL, j.Title, j.Company, j.Location, j.Source,
		j.SalaryMin, j.SalaryMax, j.SalaryCurrency, j.SalaryText,
		j.ExperienceMin, j.ExperienceMax, j.ExperienceText,
		j.JobType, j.EmploymentType, j.Description, j.SkillsRequired, j.Benefits,
		j.CompanySize, j.CompanyIndustry, j.CompanyWebsite,
		j.PostedDate, j.ScrapedDate, j.IsActive, j.IsRemote, j.JobScore, j.MatchScore,
	).Scan(&j.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	return true, nil
}

func refreshJob(ctx context.Context, tx pgx.Tx, j *model.Job) error {
	_, err := tx.Exec(ctx,
		`UPDATE jobs
		 SET title        = $1,
		     company      = $2,
		     location     = $3,
		     salary_min   = $4,
		     salary_max   = $5,
		     salary_text  = $6,
		     scraped_date = $7
		 WHERE id = $8`,
		j.Title, j.Company, j.Location,
		j.SalaryMin, j.SalaryMax, j.SalaryText,
		j.ScrapedDate, j.ID,
	)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

// GetByURL returns the stored job for url, active or not.
func (s *Store) GetByURL(ctx context.Context, url string) (*model.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE url = $1`, url))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getByURL: %w", err)
	}
	return j, nil
}

// QueryRecent returns active jobs scraped within the last days days,
// newest first.
func (s *Store) QueryRecent(ctx context.Context, days int) ([]model.Job, error) {
	return s.queryJobs(ctx, "queryRecent",
		`SELECT `+jobColumns+` FROM jobs
		 WHERE is_active AND scraped_date >= $1
		 ORDER BY scraped_date DESC, id DESC`,
		cutoff(s.now(), days),
	)
}

// QueryBySource returns active jobs from one source, newest first.
func (s *Store) QueryBySource(ctx context.Context, source string) ([]model.Job, error) {
	return s.queryJobs(ctx, "queryBySource",
		`SELECT `+jobColumns+` FROM jobs
		 WHERE is_active AND source = $1
		 ORDER BY scraped_date DESC, id DESC`,
		source,
	)
}

func (s *Store) queryJobs(ctx context.Context, op, sql string, args ...any) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", op, err)
	}
	defer rows.Close()

	jobs := make([]model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return jobs, nil
}

// Stats counts active jobs overall, in the last StatsRecentDays days and
// per source.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	st := model.Stats{BySource: map[string]int{}}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE scraped_date >= $1)
		 FROM jobs WHERE is_active`,
		cutoff(s.now(), StatsRecentDays),
	).Scan(&st.TotalActive, &st.RecentCount)
	if err != nil {
		return st, fmt.Errorf("stats totals: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM jobs WHERE is_active GROUP BY source`)
	if err != nil {
		return st, fmt.Errorf("stats by source: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return st, fmt.Errorf("stats scan: %w", err)
		}
		st.BySource[source] = n
	}
	return st, rows.Err()
}

// ExpireStale soft-deletes jobs whose scraped_date is older than days days
// and returns how many rows changed. Rows already inactive are not counted,
// so a second run with the same cutoff returns 0.
func (s *Store) ExpireStale(ctx context.Context, days int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET is_active = false
		 WHERE scraped_date < $1 AND is_active`,
		cutoff(s.now(), days),
	)
	if err != nil {
		s.log.Error("expire stale failed", "days", days, "err", err)
		return 0, fmt.Errorf("expireStale: %w", err)
	}
	n := tag.RowsAffected()
	if n > 0 {
		s.log.Info("marked stale jobs inactive", "count", n, "days", days)
	}
	return n, nil
}

// SetMatchScore stores the last computed match score for url.
func (s *Store) SetMatchScore(ctx context.Context, url string, score float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET match_score = $1 WHERE url = $2`, score, url)
	if err != nil {
		return fmt.Errorf("setMatchScore: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	err := row.Scan(
		&j.ID, &j.URL, &j.Title, &j.Company, &j.Location, &j.Source,
		&j.SalaryMin, &j.SalaryMax, &j.SalaryCurrency, &j.SalaryText,
		&j.ExperienceMin, &j.ExperienceMax, &j.ExperienceText,
		&j.JobType, &j.EmploymentType, &j.Description, &j.SkillsRequired, &j.Benefits,
		&j.CompanySize, &j.CompanyIndustry, &j.CompanyWebsite,
		&j.PostedDate, &j.ScrapedDate, &j.IsActive, &j.IsRemote, &j.JobScore, &j.MatchScore,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
