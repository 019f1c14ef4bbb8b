// Package history records export runs in a SQL database.
//
// Every run, successful or failed, is stored with its run ID, view, column
// policy, record and page counts, output path and error message. The CLI
// lists them with "viewexport history" and the schedule mode reports the
// latest one on /healthz.
//
// # Drivers
//
//	sqlite    modernc.org/sqlite, pure Go (default)
//	sqlite3   github.com/mattn/go-sqlite3, requires cgo
//	mysql     github.com/go-sql-driver/mysql
//	postgres  github.com/lib/pq
//	pgx       github.com/jackc/pgx/v5/stdlib
//
// Timestamps are stored as Unix milliseconds so ordering works the same on
// every backend.
package history
