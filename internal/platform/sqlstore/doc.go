// Package sqlstore provides SQL implementations for the data storage
// interfaces defined in the internal/store package. PostgreSQL is the
// production backend; SQLite serves local development and tests. Both share
// the same queries, written with '?' placeholders and rebound per dialect.
package sqlstore
