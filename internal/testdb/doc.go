// Package testdb opens migrated databases for tests.
//
// OpenSQLite gives every test its own SQLite file under t.TempDir, so tests
// can run in parallel without sharing state. OpenPostgres connects to the
// database named by DATABASE_URL (or DOZO_TEST_DB_URL) and skips the test
// when neither is set; tests using it should isolate their rows, for
// example with WithTx.
package testdb
