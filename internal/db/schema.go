package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the jobs and user_profiles tables. Every statement is
// idempotent so Migrate can run on each start.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id               BIGSERIAL PRIMARY KEY,
    url              TEXT         NOT NULL,
    title            TEXT         NOT NULL,
    company          TEXT         NOT NULL,
    location         TEXT         NOT NULL,
    source           TEXT         NOT NULL,
    salary_min       DOUBLE PRECISION,
    salary_max       DOUBLE PRECISION,
    salary_currency  TEXT         NOT NULL DEFAULT 'INR',
    salary_text      TEXT,
    experience_min   INTEGER,
    experience_max   INTEGER,
    experience_text  TEXT,
    job_type         TEXT,
    employment_type  TEXT,
    description      TEXT,
    skills_required  TEXT[]       NOT NULL DEFAULT '{}',
    benefits         TEXT,
    company_size     TEXT,
    company_industry TEXT,
    company_website  TEXT,
    posted_date      TIMESTAMPTZ,
    scraped_date     TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
    is_remote        BOOLEAN      NOT NULL DEFAULT FALSE,
    job_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
    match_score      DOUBLE PRECISION NOT NULL DEFAULT 0
);

-- Scraped text has no reliable length bound; widen tables created with
-- bounded columns.
ALTER TABLE jobs
    ALTER COLUMN url              TYPE TEXT,
    ALTER COLUMN title            TYPE TEXT,
    ALTER COLUMN company          TYPE TEXT,
    ALTER COLUMN location         TYPE TEXT,
    ALTER COLUMN source           TYPE TEXT,
    ALTER COLUMN salary_currency  TYPE TEXT,
    ALTER COLUMN salary_text      TYPE TEXT,
    ALTER COLUMN experience_text  TYPE TEXT,
    ALTER COLUMN job_type         TYPE TEXT,
    ALTER COLUMN employment_type  TYPE TEXT,
    ALTER COLUMN company_size     TYPE TEXT,
    ALTER COLUMN company_industry TYPE TEXT,
    ALTER COLUMN company_website  TYPE TEXT;

CREATE UNIQUE INDEX IF NOT EXISTS jobs_url_key ON jobs (url);
CREATE INDEX IF NOT EXISTS jobs_active_scraped_idx ON jobs (is_active, scraped_date DESC);
CREATE INDEX IF NOT EXISTS jobs_source_idx ON jobs (source);

CREATE TABLE IF NOT EXISTS user_profiles (
    id                      BIGSERIAL PRIMARY KEY,
    name                    TEXT NOT NULL,
    email                   TEXT NOT NULL,
    role                    TEXT NOT NULL DEFAULT '',
    experience_years        INTEGER,
    current_salary          DOUBLE PRECISION,
    expected_salary_min     DOUBLE PRECISION,
    expected_salary_max     DOUBLE PRECISION,
    primary_skills          TEXT[] NOT NULL DEFAULT '{}',
    secondary_skills        TEXT[] NOT NULL DEFAULT '{}',
    programming_languages   TEXT[] NOT NULL DEFAULT '{}',
    frameworks              TEXT[] NOT NULL DEFAULT '{}',
    databases               TEXT[] NOT NULL DEFAULT '{}',
    cloud_platforms         TEXT[] NOT NULL DEFAULT '{}',
    preferred_locations     TEXT[] NOT NULL DEFAULT '{}',
    preferred_job_types     TEXT[] NOT NULL DEFAULT '{}',
    preferred_company_sizes TEXT[] NOT NULL DEFAULT '{}',
    preferred_industries    TEXT[] NOT NULL DEFAULT '{}',
    blacklisted_companies   TEXT[] NOT NULL DEFAULT '{}',
    whitelisted_companies   TEXT[] NOT NULL DEFAULT '{}',
    email_notifications     BOOLEAN NOT NULL DEFAULT TRUE,
    slack_notifications     BOOLEAN NOT NULL DEFAULT FALSE,
    discord_notifications   BOOLEAN NOT NULL DEFAULT FALSE,
    notification_frequency  VARCHAR(20) NOT NULL DEFAULT 'daily'
        CHECK (notification_frequency IN ('hourly', 'daily', 'weekly')),
    min_job_score           DOUBLE PRECISION NOT NULL DEFAULT 50,
    min_match_score         DOUBLE PRECISION NOT NULL DEFAULT 60,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    is_active               BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE UNIQUE INDEX IF NOT EXISTS user_profiles_email_key ON user_profiles (email);
`

// migrationLockID serialises concurrent migrations (several service
// replicas or test binaries starting at once).
const migrationLockID = 7_340_021

// Migrate applies Schema under a session advisory lock. Exec without
// arguments uses the simple protocol, which accepts the multi-statement
// script.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrate acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return fmt.Errorf("migrate lock: %w", err)
	}
	defer conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockID)

	if _, err := conn.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
