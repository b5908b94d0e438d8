// Package testdb connects integration tests to a real PostgreSQL database.
//
// Tests using it carry the "integration" build tag and are skipped unless
// DATABASE_URL or SKILLMATCH_TEST_DB_URL is set. The schema is migrated once
// per test binary and every test runs inside a transaction that is rolled
// back afterwards, so tests can share one database:
//
//	db := testdb.Open(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		users := postgres.NewPostgresUserStore(tx, logger)
//		...
//	})
package testdb
