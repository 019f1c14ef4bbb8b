package main

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/dataverse"
	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/history"
	"mercator-hq/viewexport/pkg/schedule"
	"mercator-hq/viewexport/pkg/telemetry/logging"
	"mercator-hq/viewexport/pkg/telemetry/metrics"
	"mercator-hq/viewexport/pkg/telemetry/tracing"
)

// recordTimeout bounds writing a run to the history store, which happens
// even when the run itself was cancelled.
const recordTimeout = 5 * time.Second

// app holds the long lived components shared by the export and schedule
// commands.
type app struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	history *history.Store

	// observer receives pipeline measurements; the collector, possibly
	// wrapped by a progress reporter
	observer export.Metrics

	// connect builds the query service; tests replace it
	connect func(ctx context.Context, c config.DataverseConfig) (export.QueryService, error)

	mu       sync.Mutex
	client   *dataverse.Client
	exporter *export.Exporter
	key      exporterKey
}

// exporterKey identifies the settings an exporter was built from. The
// exporter and its view and metadata caches are reused while it matches.
type exporterKey struct {
	Dataverse  config.DataverseConfig
	DateFormat config.DateFormatConfig
}

// newApp wires telemetry and the history store. The Dataverse connection
// is made lazily by run.
func newApp(ctx context.Context, c *config.Config, l *logging.Logger) (*app, error) {
	tracer, err := tracing.New(c.Telemetry.Tracing, tracing.WithVersion(Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	collector := metrics.NewCollector(c.Telemetry.Metrics, nil)

	a := &app{
		logger:   l,
		metrics:  collector,
		tracer:   tracer,
		observer: collector,
	}
	a.connect = a.dial

	if c.History.Enabled {
		store, err := history.Open(ctx, c.History, l.Slog())
		if err != nil {
			tracer.Shutdown(context.Background())
			return nil, err
		}
		a.history = store
	}

	return a, nil
}

// dial authenticates and verifies the connection with WhoAmI.
func (a *app) dial(ctx context.Context, c config.DataverseConfig) (export.QueryService, error) {
	tokens, err := dataverse.NewTokenSource(ctx, c.URL, authConfig(c.Auth))
	if err != nil {
		return nil, &export.ConnectionError{URL: c.URL, Cause: err}
	}

	client, err := dataverse.NewClient(clientConfig(c), tokens, a.logger.Slog())
	if err != nil {
		return nil, &export.ConnectionError{URL: c.URL, Cause: err}
	}
	if _, err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, &export.ConnectionError{URL: c.URL, Cause: err}
	}

	a.client = client
	return client, nil
}

// exporterFor returns an exporter for c, connecting again only when the
// connection or date settings changed since the last run.
func (a *app) exporterFor(ctx context.Context, c *config.Config) (*export.Exporter, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := exporterKey{Dataverse: c.Dataverse, DateFormat: c.Export.DateFormat}
	if a.exporter != nil && reflect.DeepEqual(a.key, key) {
		return a.exporter, nil
	}

	if a.client != nil {
		a.client.Close()
		a.client = nil
	}
	a.exporter = nil

	service, err := a.connect(ctx, c.Dataverse)
	if err != nil {
		return nil, err
	}

	exporter, err := export.NewExporter(service, export.Options{
		Logger:     a.logger,
		Metrics:    a.observer,
		DateFormat: dateFormatFromConfig(c.Export.DateFormat),
	})
	if err != nil {
		return nil, err
	}

	a.exporter = exporter
	a.key = key
	return exporter, nil
}

// run executes one export with c and records it. The returned result is
// never nil. Every log entry of the run carries its run ID, entity and view.
func (a *app) run(ctx context.Context, c *config.Config) (*export.Result, error) {
	job := jobFromConfig(c.Export)
	job.RunID = uuid.NewString()
	started := time.Now()

	ctx = logging.WithJob(logging.WithRunID(ctx, job.RunID), job.Entity, job.View)
	logger := a.logger.WithContext(ctx)
	ctx = export.ContextWithLogger(ctx, logger)

	var result *export.Result
	exporter, err := a.exporterFor(ctx, c)
	if err != nil {
		result = &export.Result{
			RunID:      job.RunID,
			Entity:     job.Entity,
			View:       job.View,
			Policy:     job.Policy,
			StartedAt:  started,
			FinishedAt: time.Now(),
			Err:        err,
		}
		a.observer.ObserveRun(job.Entity, result.Status(), 0, result.Duration())
	} else {
		result, err = exporter.Run(ctx, job)
	}

	a.record(ctx, logger, result, c.History)

	if path := c.Telemetry.Metrics.Textfile; path != "" && c.Telemetry.Metrics.Enabled {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			logger.Warn("failed to write metrics textfile", "path", path, "error", werr)
		}
	}

	return result, err
}

// record stores the run in the history and applies the retention limits.
// Failures are logged only; the export outcome decides the exit code.
func (a *app) record(ctx context.Context, logger *logging.Logger, result *export.Result, c config.HistoryConfig) {
	if a.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := a.history.Record(ctx, result); err != nil {
		logger.Warn("failed to record run history", "error", err)
		return
	}

	policy := history.RetentionFromDays(c.RetentionDays, c.MaxRuns)
	if !policy.Enabled() {
		return
	}
	if _, err := a.history.Prune(ctx, policy, time.Now()); err != nil {
		logger.Warn("failed to prune run history", "error", err)
	}
}

// previousRun returns the last run recorded in the history, or nil when
// history is disabled or empty.
func (a *app) previousRun(ctx context.Context) (*schedule.LastRun, error) {
	if a.history == nil {
		return nil, nil
	}
	run, err := a.history.Last(ctx)
	if err != nil || run == nil {
		return nil, err
	}

	last := &schedule.LastRun{StartedAt: run.StartedAt, FinishedAt: run.FinishedAt}
	if !run.Succeeded() {
		last.Err = errors.New(run.Error)
	}
	return last, nil
}

// Close releases the connection, the history store and flushes spans.
func (a *app) Close() error {
	var errs []error

	a.mu.Lock()
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	a.mu.Unlock()

	if a.history != nil {
		errs = append(errs, a.history.Close())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errs = append(errs, a.tracer.Shutdown(ctx))

	return errors.Join(errs...)
}
