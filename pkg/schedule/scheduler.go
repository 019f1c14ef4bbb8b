package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrBusy is returned by RunNow when a run is already in progress.
var ErrBusy = errors.New("an export is already running")

// Task is one unit of scheduled work, typically a full export run.
type Task func(ctx context.Context) error

// LastRun describes the most recent completed run.
type LastRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Scheduler runs a task on a cron schedule. A tick that fires while the
// previous run is still going is skipped rather than queued.
type Scheduler struct {
	task   Task
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	spec    string
	entry   cron.EntryID
	ctx     context.Context
	running bool

	busy    atomic.Bool
	skipped atomic.Int64

	lastMu sync.RWMutex
	last   *LastRun
}

// NewScheduler creates a scheduler for a standard five field cron
// expression. Descriptors such as "@hourly" and "@every 10m" are accepted.
func NewScheduler(spec string, task Task, logger *slog.Logger) (*Scheduler, error) {
	if task == nil {
		return nil, errors.New("schedule: task is required")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "schedule")

	cl := cronLogger{logger: logger}
	return &Scheduler{
		task:   task,
		spec:   spec,
		logger: logger,
		cron:   cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
	}, nil
}

// Start registers the task and starts the cron loop. Runs receive ctx, and
// the scheduler stops itself once ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("schedule: scheduler already running")
	}

	entry, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}
	s.entry = entry
	s.ctx = ctx

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started", "schedule", s.spec, "next_run", s.nextRunLocked())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Reschedule replaces the cron expression. A run in progress is not
// interrupted. Rescheduling to the current expression is a no-op.
func (s *Scheduler) Reschedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec {
		return nil
	}
	previous := s.spec
	s.spec = spec

	if !s.running {
		return nil
	}

	ctx := s.ctx
	entry, err := s.cron.AddFunc(spec, func() { s.tick(ctx) })
	if err != nil {
		s.spec = previous
		return fmt.Errorf("failed to schedule export: %w", err)
	}
	s.cron.Remove(s.entry)
	s.entry = entry

	s.logger.Info("export rescheduled", "previous", previous, "schedule", spec, "next_run", s.nextRunLocked())
	return nil
}

// RunNow runs the task immediately in the calling goroutine. It returns
// ErrBusy when a scheduled run is in progress.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.execute(ctx)
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.execute(ctx); errors.Is(err, ErrBusy) {
		s.logger.Warn("previous export still running, skipping scheduled run",
			"skipped_total", s.skipped.Load(),
		)
	}
}

func (s *Scheduler) execute(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		return ErrBusy
	}
	defer s.busy.Store(false)

	run := LastRun{StartedAt: time.Now()}
	s.logger.Info("starting scheduled export")

	err := s.task(ctx)

	run.FinishedAt = time.Now()
	run.Err = err

	s.lastMu.Lock()
	s.last = &run
	s.lastMu.Unlock()

	if err != nil {
		// the task logs its own failure in detail
		s.logger.Debug("scheduled export failed", "error", err, "duration", run.FinishedAt.Sub(run.StartedAt))
		return err
	}
	s.logger.Debug("scheduled export completed", "duration", run.FinishedAt.Sub(run.StartedAt))
	return nil
}

// Stop stops the scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning returns true if the cron loop is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Busy reports whether a run is in progress.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Skipped returns the number of runs skipped because one was in progress.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}

// Schedule returns the current cron expression.
func (s *Scheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// NextRun returns the next scheduled run, or nil when not started.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.nextRunLocked()
	if next.IsZero() {
		return nil
	}
	return &next
}

func (s *Scheduler) nextRunLocked() time.Time {
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// LastRun returns the most recent completed run, or nil before the first.
func (s *Scheduler) LastRun() *LastRun {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()

	if s.last == nil {
		return nil
	}
	run := *s.last
	return &run
}

// Restore seeds the last run from an earlier process, so health reflects a
// failure recorded before a restart. It does nothing once a run completed.
func (s *Scheduler) Restore(run LastRun) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()

	if s.last == nil {
		s.last = &run
	}
}

// HealthCheck reports the last run as unhealthy when it failed. It can be
// registered with health.Checker.
func (s *Scheduler) HealthCheck(ctx context.Context) error {
	last := s.LastRun()
	if last == nil || last.Err == nil {
		return nil
	}
	return fmt.Errorf("last export at %s failed: %w", last.StartedAt.Format(time.RFC3339), last.Err)
}

// cronLogger adapts slog to cron.Logger. Cron's chatty info messages are
// logged at debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
