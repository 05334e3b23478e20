// Package profilestore persists user notification profiles keyed by email.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when no profile exists for an email.
var ErrNotFound = errors.New("profile not found")

// ErrDuplicate is returned by Create when the email is already registered.
var ErrDuplicate = errors.New("profile already exists")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ─── Store ───────────────────────────────────────────────────────────────────

const profileColumns = `id, name, email, role, experience_years, current_salary,
	expected_salary_min, expected_salary_max,
	primary_skills, secondary_skills, programming_languages, frameworks, databases, cloud_platforms,
	preferred_locations, preferred_job_types, preferred_company_sizes, preferred_industries,
	blacklisted_companies, whitelisted_companies,
	email_notifications, slack_notifications, discord_notifications, notification_frequency,
	min_job_score, min_match_score, created_at, updated_at, is_active`

// Store is the PostgreSQL profile store.
type Store struct {
	pool     *pgxpool.Pool
	log      *logger.Logger
	now      func() time.Time
	defaults model.ProfileDefaults
}

// New constructs a Store.
func New(pool *pgxpool.Pool, log *logger.Logger) *Store {
	return &Store{
		pool: pool,
		log:      log.With("component", "profilestore"),
		now:      func() time.Time { return time.Now().UTC() },
		defaults: model.BuiltinProfileDefaults(),
	}
}

// WithDefaults sets the thresholds and frequency CreateDefault seeds.
func (s *Store) WithDefaults(d model.ProfileDefaults) *Store {
	s.defaults = d
	return s
}

// Create inserts p. Email is trimmed and lower-cased; a second profile for
// the same email yields ErrDuplicate.
func (s *Store) Create(ctx context.Context, p model.Profile) (*model.Profile, error) {
	p.Email = normalizeEmail(p.Email)
	if err := Validate(&p); err != nil {
		return nil, err
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now

	out, err := scanProfile(s.pool.QueryRow(ctx,
		`INSERT INTO user_profiles (`+insertColumns+`)
		 VALUES (`+insertPlaceholders+`)
		 RETURNING `+profileColumns,
		insertArgs(&p)...,
	))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("createProfile: %w", err)
	}
	s.log.Info("profile created", "email", out.Email)
	return out, nil
}

// DefaultProfile is the starter profile seeded for a bare email address.
func DefaultProfile(email, name string) model.Profile {
	return DefaultProfileWith(email, name, model.BuiltinProfileDefaults())
}

// DefaultProfileWith is DefaultProfile starting from configured defaults.
func DefaultProfileWith(email, name string, d model.ProfileDefaults) model.Profile {
	p := model.NewProfileWith(email, name, d)
	years := 3
	salaryMin, salaryMax := 8.0, 20.0
	p.CurrentRole = "Software Engineer"
	p.ExperienceYears = &years
	p.ExpectedSalaryMin = &salaryMin
	p.ExpectedSalaryMax = &salaryMax
	p.PrimarySkills = []string{"Python", "JavaScript", "React"}
	p.PreferredLocations = []string{"Bangalore", "Mumbai", "Remote"}
	p.PreferredJobTypes = []string{"Full-time", "Remote"}
	return p
}

// CreateDefault seeds DefaultProfile for email unless a profile already
// exists, in which case the stored one is returned untouched.
func (s *Store) CreateDefault(ctx context.Context, email, name string) (*model.Profile, error) {
	email = normalizeEmail(email)
	if existing, err := s.GetByEmail(ctx, email); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Default User"
	}
	p, err := s.Create(ctx, DefaultProfileWith(email, name, s.defaults))
	if errors.Is(err, ErrDuplicate) {
		// Lost a race with another seeder.
		return s.GetByEmail(ctx, email)
	}
	return p, err
}

// GetByEmail returns the profile for email, active or not.
func (s *Store) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE email = $1`,
		normalizeEmail(email)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getByEmail: %w", err)
	}
	return p, nil
}

// Update applies patch to the profile for email under a row lock and bumps
// updated_at.
func (s *Store) Update(ctx context.Context, email string, patch Patch) (*model.Profile, error) {
	email = normalizeEmail(email)
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("updateProfile begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProfile(tx.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE email = $1 FOR UPDATE`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updateProfile select: %w", err)
	}

	patch.Apply(p)
	if err := Validate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()

	args := append(insertArgs(p), p.IsActive, p.ID)
	out, err := scanProfile(tx.QueryRow(ctx,
		`UPDATE user_profiles SET (`+insertColumns+`, is_active)
		   = (`+insertPlaceholders+`, $28)
		 WHERE id = $29
		 RETURNING `+profileColumns,
		args...,
	))
	if err != nil {
		return nil, fmt.Errorf("updateProfile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("updateProfile commit: %w", err)
	}
	return out, nil
}

// ListActive returns every active profile ordered by id.
func (s *Store) ListActive(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listActive query: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("listActive scan: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listActive rows: %w", err)
	}
	return profiles, nil
}

// Deactivate soft-deletes the profile for email.
func (s *Store) Deactivate(ctx context.Context, email string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_profiles SET is_active = false, updated_at = $1 WHERE email = $2`,
		s.now(), normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.log.Info("profile deactivated", "email", email)
	return nil
}

// ─── Row mapping ─────────────────────────────────────────────────────────────

const insertColumns = `name, email, role, experience_years, current_salary,
	expected_salary_min, expected_salary_max,
	primary_skills, secondary_skills, programming_languages, frameworks, databases, cloud_platforms,
	preferred_locations, preferred_job_types, preferred_company_sizes, preferred_industries,
	blacklisted_companies, whitelisted_companies,
	email_notifications, slack_notifications, discord_notifications, notification_frequency,
	min_job_score, min_match_score, created_at, updated_at`

const insertPlaceholders = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27`

// insertArgs lists p in insertColumns order. TEXT[] columns are NOT NULL so
// nil slices are sent as empty arrays.
func insertArgs(p *model.Profile) []any {
	return []any{
		p.Name, p.Email, p.CurrentRole, p.ExperienceYears, p.CurrentSalary,
		p.ExpectedSalaryMin, p.ExpectedSalaryMax,
		nonNil(p.PrimarySkills), nonNil(p.SecondarySkills), nonNil(p.ProgrammingLanguages),
		nonNil(p.Frameworks), nonNil(p.Databases), nonNil(p.CloudPlatforms),
		nonNil(p.PreferredLocations), nonNil(p.PreferredJobTypes),
		nonNil(p.PreferredCompanySizes), nonNil(p.PreferredIndustries),
		nonNil(p.BlacklistedCompanies), nonNil(p.WhitelistedCompanies),
		p.EmailNotifications, p.SlackNotifications, p.DiscordNotifications,
		string(p.NotificationFrequency),
		p.MinJobScore, p.MinMatchScore, p.CreatedAt, p.UpdatedAt,
	}
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p    model.Profile
		freq string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Email, &p.CurrentRole, &p.ExperienceYears, &p.CurrentSalary,
		&p.ExpectedSalaryMin, &p.ExpectedSalaryMax,
		&p.PrimarySkills, &p.SecondarySkills, &p.ProgrammingLanguages,
		&p.Frameworks, &p.Databases, &p.CloudPlatforms,
		&p.PreferredLocations, &p.PreferredJobTypes, &p.PreferredCompanySizes, &p.PreferredIndustries,
		&p.BlacklistedCompanies, &p.WhitelistedCompanies,
		&p.EmailNotifications, &p.SlackNotifications, &p.DiscordNotifications, &freq,
		&p.MinJobScore, &p.MinMatchScore, &p.CreatedAt, &p.UpdatedAt, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	p.NotificationFrequency = model.Frequency(freq)
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
