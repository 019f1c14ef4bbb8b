package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/record"
)

// DefaultLimit is the number of runs returned by Recent when limit <= 0.
const DefaultLimit = 20

// Run is one recorded export run.
type Run struct {
	RunID      string
	Entity     string
	View       string
	ViewKind   record.ViewKind
	Policy     export.ColumnPolicy
	Status     string
	Records    int
	Pages      int
	Columns    []string
	Path       string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the wall time of the run.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run finished without error.
func (r Run) Succeeded() bool {
	return r.Status == export.StatusSuccess
}

// Store persists export runs in a SQL database.
type Store struct {
	db      *sql.DB
	name    string
	dialect dialect
	logger  *slog.Logger

	insertSQL string
	recentSQL string
}

// Open connects to the configured database and creates the schema. For the
// sqlite drivers the parent directory of the file is created first.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "history", "driver", cfg.Driver)

	d, err := lookupDialect(cfg.Driver)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	if cfg.DSN == "" {
		return nil, NewStorageError(cfg.Driver, "open", errors.New("dsn is required"))
	}

	if d.file && !strings.HasPrefix(cfg.DSN, "file:") && cfg.DSN != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, NewStorageError(cfg.Driver, "create_directory", err)
		}
	}

	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	if d.file {
		// one writer avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:      db,
		name:    cfg.Driver,
		dialect: d,
		logger:  logger,
		insertSQL: d.rebind(`
			INSERT INTO export_runs (
				run_id, entity, view_name, view_kind, column_policy, status,
				records, pages, columns_json, output_path, error_message,
				started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		recentSQL: d.rebind(`
			SELECT run_id, entity, view_name, view_kind, column_policy, status,
				records, pages, columns_json, output_path, error_message,
				started_at, finished_at
			FROM export_runs
			ORDER BY started_at DESC, run_id DESC
			LIMIT ?`),
	}

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store initialized")
	return s, nil
}

// initialize checks connectivity, applies pragmas and creates the schema.
func (s *Store) initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.name, "ping", err)
	}
	for _, pragma := range s.dialect.pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return NewStorageError(s.name, "pragma", err)
		}
	}
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return NewStorageError(s.name, "create_schema", err)
		}
	}
	return nil
}

// Record stores a finished run, successful or not.
func (s *Store) Record(ctx context.Context, result *export.Result) error {
	if result == nil || result.RunID == "" {
		return NewStorageError(s.name, "record", errors.New("result has no run id"))
	}

	columns := result.Columns
	if columns == nil {
		columns = []string{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return NewStorageError(s.name, "record", fmt.Errorf("encode columns: %w", err))
	}

	var errorVal any
	if result.Err != nil {
		errorVal = result.Err.Error()
	}

	_, err = s.db.ExecContext(ctx, s.insertSQL,
		result.RunID,
		result.Entity,
		result.View,
		string(result.ViewKind),
		string(result.Policy),
		result.Status(),
		result.Records,
		result.Pages,
		string(columnsJSON),
		result.Path,
		errorVal,
		result.StartedAt.UnixMilli(),
		result.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return NewStorageError(s.name, "record", err)
	}

	s.logger.Debug("run recorded", "run_id", result.RunID, "status", result.Status())
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, s.recentSQL, limit)
	if err != nil {
		return nil, NewStorageError(s.name, "query", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, NewStorageError(s.name, "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(s.name, "query", err)
	}
	return runs, nil
}

// Last returns the most recent run, or nil when none is recorded.
func (s *Store) Last(ctx context.Context) (*Run, error) {
	runs, err := s.Recent(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

// Ping checks the database connection. It doubles as a health check.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(s.name, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var (
		run                   Run
		viewKind, policy      string
		columnsJSON           string
		errorMessage          sql.NullString
		startedAt, finishedAt int64
	)

	err := rows.Scan(
		&run.RunID,
		&run.Entity,
		&run.View,
		&viewKind,
		&policy,
		&run.Status,
		&run.Records,
		&run.Pages,
		&columnsJSON,
		&run.Path,
		&errorMessage,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return Run{}, err
	}

	if err := json.Unmarshal([]byte(columnsJSON), &run.Columns); err != nil {
		return Run{}, fmt.Errorf("decode columns of run %s: %w", run.RunID, err)
	}
	run.ViewKind = record.ViewKind(viewKind)
	run.Policy = export.ColumnPolicy(policy)
	run.Error = errorMessage.String
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.FinishedAt = time.UnixMilli(finishedAt).UTC()
	return run, nil
}
