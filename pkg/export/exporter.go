package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/viewexport/pkg/record"
)

// Run statuses reported to Metrics and stored in the run history.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Job describes one export run.
type Job struct {
	// RunID identifies the run. Run generates one when empty.
	RunID string

	Entity string
	View   string

	PageSize int
	// MaxItems caps the number of exported records. Zero means unlimited.
	MaxItems int

	Policy ColumnPolicy

	// Directory and FileName form the output path. FileName may contain the
	// {entity} and {timestamp} tokens.
	Directory string
	FileName  string
	CSV       CSVOptions
}

// Validate checks the job before any remote call is made.
func (j Job) Validate() error {
	switch {
	case j.Entity == "":
		return &ConfigurationError{Field: "export.entity", Message: "is required"}
	case j.View == "":
		return &ConfigurationError{Field: "export.view", Message: "is required"}
	case j.PageSize <= 0:
		return &ConfigurationError{Field: "export.page_size", Message: "must be greater than 0"}
	case j.MaxItems < 0:
		return &ConfigurationError{Field: "export.max_item_count", Message: "must not be negative"}
	case j.FileName == "":
		return &ConfigurationError{Field: "export.output.file_name", Message: "is required"}
	}
	if _, err := ParseColumnPolicy(string(j.Policy)); err != nil {
		return &ConfigurationError{Field: "export.column_policy", Cause: err}
	}
	if d := j.CSV.Delimiter; d != 0 && (d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError) {
		return &ConfigurationError{Field: "export.output.delimiter", Message: fmt.Sprintf("%q cannot be used as a delimiter", d)}
	}
	return nil
}

// Result summarizes a finished run, successful or not.
type Result struct {
	RunID      string
	Entity     string
	View       string
	ViewKind   record.ViewKind
	Policy     ColumnPolicy
	Columns    []string
	Records    int
	Pages      int
	Path       string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Status returns StatusSuccess or StatusFailure.
func (r *Result) Status() string {
	if r.Err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

// Duration returns the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Options configures an Exporter.
type Options struct {
	Logger     Logger
	Metrics    Metrics
	DateFormat DateFormat

	// Now returns the clock used for the {timestamp} token. Default: time.Now
	Now func() time.Time
}

// Exporter runs the pipeline: resolve the view, page through its records,
// format and normalize each one, and write the CSV file. An Exporter keeps
// its view and metadata caches across runs and is safe for concurrent runs.
type Exporter struct {
	resolver  *ViewResolver
	metadata  *MetadataCache
	retriever *PagedRetriever
	formatter *RowFormatter
	logger    Logger
	metrics   Metrics
	tracer    trace.Tracer
	now       func() time.Time
}

// NewExporter creates an exporter backed by service.
func NewExporter(service QueryService, opts Options) (*Exporter, error) {
	logger := loggerOrDiscard(opts.Logger)
	metrics := metricsOrNop(opts.Metrics)

	metadata := NewMetadataCache(service, logger)
	formatter, err := NewRowFormatter(metadata, opts.DateFormat, logger, metrics)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Exporter{
		resolver:  NewViewResolver(service, logger),
		metadata:  metadata,
		retriever: NewPagedRetriever(service, metadata, logger, metrics),
		formatter: formatter,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer("mercator-hq/viewexport/export"),
		now:       now,
	}, nil
}

// Run executes one export. The returned Result is never nil, so callers can
// record failed runs too; its Err matches the returned error.
func (e *Exporter) Run(ctx context.Context, job Job) (*Result, error) {
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
	result := &Result{
		RunID:     job.RunID,
		Entity:    job.Entity,
		View:      job.View,
		Policy:    job.Policy,
		StartedAt: e.now(),
	}

	if _, scoped := ctx.Value(loggerKey{}).(Logger); !scoped {
		ctx = ContextWithLogger(ctx, withFields(e.logger, "run_id", job.RunID, "entity", job.Entity, "view", job.View))
	}

	ctx, span := e.tracer.Start(ctx, "export.run", trace.WithAttributes(
		attribute.String("export.run_id", result.RunID),
		attribute.String("export.entity", job.Entity),
		attribute.String("export.view", job.View),
	))
	defer span.End()

	err := e.run(ctx, job, result)

	result.FinishedAt = e.now()
	result.Err = err
	e.metrics.ObserveRun(job.Entity, result.Status(), result.Records, result.Duration())
	span.SetAttributes(
		attribute.Int("export.records", result.Records),
		attribute.Int("export.pages", result.Pages),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	loggerFrom(ctx, e.logger).Info("export completed",
		"records", result.Records,
		"pages", result.Pages,
		"path", result.Path,
		"duration", result.Duration(),
	)
	return result, nil
}

func (e *Exporter) run(ctx context.Context, job Job, result *Result) error {
	if err := job.Validate(); err != nil {
		return err
	}

	def, err := e.resolve(ctx, job)
	if err != nil {
		return err
	}
	result.ViewKind = def.Kind

	policy, err := e.policy(ctx, job, def)
	if err != nil {
		return err
	}
	result.Policy = policy

	path := filepath.Join(job.Directory, ResolveFileName(job.FileName, job.Entity, e.now()))
	result.Path = path

	writer, err := CreateCSV(path, job.CSV)
	if err != nil {
		return err
	}

	stream := e.retriever.Retrieve(job.Entity, def.FetchXML, job.PageSize, job.MaxItems)
	switch policy {
	case PolicyView:
		err = e.writeStreaming(ctx, job, def, stream, writer, result)
	default:
		err = e.writeBuffered(ctx, job, stream, writer, result)
	}
	result.Pages = stream.Pages()

	if err != nil {
		var malformed *MalformedDefinitionError
		if errors.As(err, &malformed) && malformed.View == "" {
			malformed.View = job.View
			malformed.Kind = def.Kind
		}
		if abortErr := writer.Abort(); abortErr != nil {
			loggerFrom(ctx, e.logger).Warn("failed to clean up output file", "path", path, "error", abortErr)
		}
		return err
	}
	return writer.Close()
}

func (e *Exporter) resolve(ctx context.Context, job Job) (*ViewDefinition, error) {
	ctx, span := e.tracer.Start(ctx, "export.resolve_view", trace.WithAttributes(
		attribute.String("export.entity", job.Entity),
		attribute.String("export.view", job.View),
	))
	defer span.End()

	def, err := e.resolver.Resolve(ctx, job.View, job.Entity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("export.view_kind", string(def.Kind)),
		attribute.Int("export.columns", len(def.Columns)),
	)
	return def, nil
}

// policy picks the column policy of a run. Auto falls back to the data
// policy only when the view has no layout at all.
func (e *Exporter) policy(ctx context.Context, job Job, def *ViewDefinition) (ColumnPolicy, error) {
	policy, _ := ParseColumnPolicy(string(job.Policy))
	switch policy {
	case PolicyView:
		if !def.HasLayout {
			return "", &MalformedDefinitionError{
				View:   job.View,
				Entity: job.Entity,
				Kind:   def.Kind,
				Reason: "view has no layout definition and the view column policy is configured",
			}
		}
		return PolicyView, nil
	case PolicyData:
		return PolicyData, nil
	default:
		if def.HasLayout {
			return PolicyView, nil
		}
		loggerFrom(ctx, e.logger).Warn("view has no layout definition, deriving columns from the data; all rows are buffered in memory")
		return PolicyData, nil
	}
}

// writeStreaming writes rows as they arrive, aligned to the view layout.
func (e *Exporter) writeStreaming(ctx context.Context, job Job, def *ViewDefinition, stream *RecordStream, writer *CSVWriter, result *Result) error {
	columns := ViewColumns(def)
	result.Columns = columns
	loggerFrom(ctx, e.logger).Info("resolved export columns", "columns", len(columns), "policy", string(PolicyView))

	if err := writer.WriteHeader(columns); err != nil {
		return err
	}
	for stream.Next(ctx) {
		row := e.formatter.Format(ctx, stream.Record(), job.Entity)
		if err := writer.WriteRow(Normalize(row, columns)); err != nil {
			return err
		}
		result.Records = writer.Rows()
	}
	return stream.Err()
}

// writeBuffered collects every row before the header is known. With zero
// rows nothing but the byte order mark is written.
func (e *Exporter) writeBuffered(ctx context.Context, job Job, stream *RecordStream, writer *CSVWriter, result *Result) error {
	union := NewUnionColumns()
	var rows []FormattedRow
	for stream.Next(ctx) {
		row := e.formatter.Format(ctx, stream.Record(), job.Entity)
		union.Add(row)
		rows = append(rows, row)
	}
	if err := stream.Err(); err != nil {
		return err
	}

	columns := union.Columns()
	result.Columns = columns
	loggerFrom(ctx, e.logger).Info("resolved export columns", "columns", len(columns), "policy", string(PolicyData))

	if len(columns) == 0 {
		return nil
	}
	if err := writer.WriteHeader(columns); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writer.WriteRow(Normalize(row, columns)); err != nil {
			return err
		}
		rows[i] = nil
		result.Records = writer.Rows()
	}
	return nil
}
