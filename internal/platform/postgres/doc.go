// Package postgres persists the history record sequence in PostgreSQL.
// It owns the database connection setup, the embedded goose migrations
// and the mapping between history records and table rows.
package postgres
