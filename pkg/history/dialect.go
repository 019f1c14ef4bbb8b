package history

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql" // mysql
	_ "github.com/jackc/pgx/v5/stdlib" // pgx
	_ "github.com/lib/pq"              // postgres
	_ "github.com/mattn/go-sqlite3"    // sqlite3 (cgo)
	_ "modernc.org/sqlite"             // sqlite (pure Go)
)

// dialect captures what differs between the supported database/sql drivers.
type dialect struct {
	// driver is the name registered with database/sql
	driver string

	// numbered reports whether placeholders are $1, $2, ... instead of ?
	numbered bool

	// file reports whether the DSN is a local database file
	file bool

	// schema creates the runs table and its index
	schema []string

	// pragmas are executed once after opening
	pragmas []string
}

var dialects = map[string]dialect{
	"sqlite": {
		driver:  "sqlite",
		file:    true,
		schema:  sqliteSchema,
		pragmas: []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"},
	},
	"sqlite3": {
		driver:  "sqlite3",
		file:    true,
		schema:  sqliteSchema,
		pragmas: []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"},
	},
	"mysql": {
		driver: "mysql",
		schema: []string{`
			CREATE TABLE IF NOT EXISTS export_runs (
				run_id        VARCHAR(36)  NOT NULL PRIMARY KEY,
				entity        VARCHAR(255) NOT NULL,
				view_name     VARCHAR(255) NOT NULL,
				view_kind     VARCHAR(32)  NOT NULL,
				column_policy VARCHAR(16)  NOT NULL,
				status        VARCHAR(16)  NOT NULL,
				records       BIGINT       NOT NULL,
				pages         BIGINT       NOT NULL,
				columns_json  TEXT         NOT NULL,
				output_path   TEXT         NOT NULL,
				error_message TEXT         NULL,
				started_at    BIGINT       NOT NULL,
				finished_at   BIGINT       NOT NULL,
				INDEX idx_export_runs_started (started_at)
			) CHARACTER SET utf8mb4`,
		},
	},
	"postgres": {
		driver:   "postgres",
		numbered: true,
		schema:   postgresSchema,
	},
	"pgx": {
		driver:   "pgx",
		numbered: true,
		schema:   postgresSchema,
	},
}

var sqliteSchema = []string{`
	CREATE TABLE IF NOT EXISTS export_runs (
		run_id        TEXT    NOT NULL PRIMARY KEY,
		entity        TEXT    NOT NULL,
		view_name     TEXT    NOT NULL,
		view_kind     TEXT    NOT NULL,
		column_policy TEXT    NOT NULL,
		status        TEXT    NOT NULL,
		records       INTEGER NOT NULL,
		pages         INTEGER NOT NULL,
		columns_json  TEXT    NOT NULL,
		output_path   TEXT    NOT NULL,
		error_message TEXT,
		started_at    INTEGER NOT NULL,
		finished_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_export_runs_started ON export_runs (started_at)`,
}

var postgresSchema = []string{`
	CREATE TABLE IF NOT EXISTS export_runs (
		run_id        TEXT   NOT NULL PRIMARY KEY,
		entity        TEXT   NOT NULL,
		view_name     TEXT   NOT NULL,
		view_kind     TEXT   NOT NULL,
		column_policy TEXT   NOT NULL,
		status        TEXT   NOT NULL,
		records       BIGINT NOT NULL,
		pages         BIGINT NOT NULL,
		columns_json  TEXT   NOT NULL,
		output_path   TEXT   NOT NULL,
		error_message TEXT,
		started_at    BIGINT NOT NULL,
		finished_at   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_export_runs_started ON export_runs (started_at)`,
}

// lookupDialect returns the dialect for a configured driver name.
func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported history driver %q", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
