//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/skillmatch-api/internal/platform/postgres"
)

// TestTimeout bounds connection checks and migrations.
const TestTimeout = 30 * time.Second

var urlEnvVars = []string{"DATABASE_URL", "SKILLMATCH_TEST_DB_URL"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// DatabaseURL returns the first non-empty database URL from the environment.
func DatabaseURL() string {
	for _, name := range urlEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Open connects to the test database, applying migrations on first use.
// The test is skipped when no database URL is configured.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		t.Skip("no test database configured; set DATABASE_URL or SKILLMATCH_TEST_DB_URL")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "test database is unreachable")

	migrateOnce.Do(func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		migrateErr = postgres.Migrate(ctx, db, "up", logger)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		// sql.ErrTxDone is expected if fn already ended the transaction
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// Savepoint runs fn and rolls tx back to the state before it. Statements
// expected to fail go here so the surrounding transaction stays usable.
func Savepoint(t *testing.T, tx *sql.Tx, fn func()) {
	t.Helper()

	ctx := context.Background()
	_, err := tx.ExecContext(ctx, "SAVEPOINT testdb_sp")
	require.NoError(t, err, "failed to create savepoint")

	fn()

	_, err = tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT testdb_sp")
	require.NoError(t, err, "failed to roll back to savepoint")
}
