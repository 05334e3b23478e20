// Package dbtest provides a migrated PostgreSQL pool for integration tests.
// Tests are skipped unless TEST_DATABASE_URL is set.
package dbtest

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/jobalert-service/internal/db"
)

var errMissingDSN = errors.New("missing TEST_DATABASE_URL")

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
)

// Pool returns the shared test pool after truncating the given tables.
// Each package truncates only the tables it owns so package test binaries
// can share one database.
func Pool(tb testing.TB, tables ...string) *pgxpool.Pool {
	tb.Helper()

	poolOnce.Do(func() {
		dsn := os.Getenv("TEST_DATABASE_URL")
		if dsn == "" {
			poolErr = errMissingDSN
			return
		}
		ctx := context.Background()
		pool, poolErr = db.NewPostgresPool(ctx, dsn)
		if poolErr != nil {
			return
		}
		poolErr = db.Migrate(ctx, pool)
	})

	if errors.Is(poolErr, errMissingDSN) {
		tb.Skip("set TEST_DATABASE_URL to run store integration tests")
	}
	if poolErr != nil {
		tb.Fatalf("failed to init test db: %v", poolErr)
	}

	for _, table := range tables {
		if _, err := pool.Exec(context.Background(),
			`TRUNCATE `+pgx.Identifier{table}.Sanitize()+` RESTART IDENTITY`); err != nil {
			tb.Fatalf("truncate %s: %v", table, err)
		}
	}
	return pool
}
