package history

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// RetentionPolicy bounds the size of the run history. Zero values disable
// the respective limit.
type RetentionPolicy struct {
	// MaxAge deletes runs that started longer ago than this.
	MaxAge time.Duration

	// MaxRuns keeps only the newest runs.
	MaxRuns int
}

// RetentionFromDays builds a policy from the configured day count and run
// limit.
func RetentionFromDays(days, maxRuns int) RetentionPolicy {
	return RetentionPolicy{
		MaxAge:  time.Duration(days) * 24 * time.Hour,
		MaxRuns: maxRuns,
	}
}

// Enabled reports whether any limit is set.
func (p RetentionPolicy) Enabled() bool {
	return p.MaxAge > 0 || p.MaxRuns > 0
}

// Prune deletes runs outside the policy and returns how many were
// deleted. Age is applied first, then the run count, so both limits hold
// afterwards.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy, now time.Time) (int64, error) {
	var total int64

	if policy.MaxAge > 0 {
		cutoff := now.Add(-policy.MaxAge)
		deleted, err := s.pruneByAge(ctx, cutoff)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			s.logger.Info("pruned runs by age", "deleted", deleted, "cutoff", cutoff)
		}
	}

	if policy.MaxRuns > 0 {
		deleted, err := s.pruneByCount(ctx, policy.MaxRuns)
		if err != nil {
			return total, err
		}
		total += deleted
		if deleted > 0 {
			s.logger.Info("pruned runs by count", "deleted", deleted, "max_runs", policy.MaxRuns)
		}
	}

	return total, nil
}

func (s *Store) pruneByAge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM export_runs WHERE started_at < ?`), cutoff.UnixMilli())
	if err != nil {
		return 0, NewStorageError(s.name, "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.name, "prune", err)
	}
	return n, nil
}

// pruneByCount finds the oldest run to keep and deletes everything older.
// The boundary is looked up first because MySQL cannot delete from a table
// it selects from in a subquery.
func (s *Store) pruneByCount(ctx context.Context, keep int) (int64, error) {
	var (
		boundaryStarted int64
		boundaryID      string
	)
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`
		SELECT started_at, run_id FROM export_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1 OFFSET ?`), keep-1).Scan(&boundaryStarted, &boundaryID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, NewStorageError(s.name, "prune", err)
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`
		DELETE FROM export_runs
		WHERE started_at < ? OR (started_at = ? AND run_id < ?)`),
		boundaryStarted, boundaryStarted, boundaryID)
	if err != nil {
		return 0, NewStorageError(s.name, "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(s.name, "prune", err)
	}
	return n, nil
}
