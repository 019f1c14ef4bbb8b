package export

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/viewexport/pkg/record"
)

// PagedRetriever issues sequential paged queries for a FetchXML definition.
type PagedRetriever struct {
	source   PageSource
	metadata *MetadataCache
	logger   Logger
	metrics  Metrics
	tracer   trace.Tracer
}

// NewPagedRetriever creates a retriever. metadata may be nil, in which case
// records are decoded from their JSON shape alone.
func NewPagedRetriever(source PageSource, metadata *MetadataCache, logger Logger, metrics Metrics) *PagedRetriever {
	return &PagedRetriever{
		source:   source,
		metadata: metadata,
		logger:   loggerOrDiscard(logger),
		metrics:  metricsOrNop(metrics),
		tracer:   otel.Tracer("mercator-hq/viewexport/export"),
	}
}

// Retrieve returns a stream over the records matched by fetchXML. maxItems
// of zero means unlimited. A top (or unpaged count) on the fetch element
// also caps the stream, so the lower of the two bounds applies. No request
// is made until the first call to Next.
func (r *PagedRetriever) Retrieve(entity, fetchXML string, pageSize, maxItems int) *RecordStream {
	s := &RecordStream{
		r:        r,
		entity:   entity,
		fetchXML: fetchXML,
		pageSize: pageSize,
		maxItems: maxItems,
	}
	switch {
	case pageSize <= 0:
		s.fail(&ConfigurationError{Field: "export.page_size", Message: "must be greater than 0"})
	case maxItems < 0:
		s.fail(&ConfigurationError{Field: "export.max_item_count", Message: "must not be negative"})
	default:
		top, err := fetchLimit(fetchXML)
		if err != nil {
			s.fail(&MalformedDefinitionError{Entity: entity, Reason: "query definition cannot be paged", Cause: err})
			break
		}
		s.top = top
		s.limit = maxItems
		if top > 0 && (s.limit == 0 || top < s.limit) {
			s.limit = top
		}
	}
	return s
}

// RecordStream is a single-pass, pull-based stream of records. It is not
// safe for concurrent use.
//
//	stream := retriever.Retrieve(entity, fetchXML, 5000, 0)
//	for stream.Next(ctx) {
//		rec := stream.Record()
//		...
//	}
//	if err := stream.Err(); err != nil {
//		...
//	}
type RecordStream struct {
	r        *PagedRetriever
	entity   string
	fetchXML string
	pageSize int
	maxItems int
	types    record.TypeResolver

	// top is the row limit of the query definition itself; limit is the
	// lower of top and maxItems, zero when neither is set
	top   int
	limit int

	page      int
	buf       []record.RawRecord
	pos       int
	exhausted bool
	done      bool

	count   int
	current record.RawRecord
	err     error
}

// Next advances to the next record. It returns false once the stream is
// exhausted, the record cap is reached or an error occurs.
func (s *RecordStream) Next(ctx context.Context) bool {
	if s.done {
		return false
	}

	if s.pos >= len(s.buf) && s.exhausted {
		s.done = true
		return false
	}

	if s.limit > 0 && s.count >= s.limit {
		loggerFrom(ctx, s.r.logger).Info("record limit reached, stopping retrieval",
			"limit", s.limit,
			"max_item_count", s.maxItems,
			"top", s.top,
			"pages", s.page,
		)
		s.done = true
		return false
	}

	for s.pos >= len(s.buf) {
		if s.exhausted {
			s.done = true
			return false
		}
		if err := s.fetch(ctx); err != nil {
			s.fail(err)
			return false
		}
	}

	s.current = s.buf[s.pos]
	s.buf[s.pos] = record.RawRecord{}
	s.pos++
	s.count++

	loggerFrom(ctx, s.r.logger).Debug("retrieved record",
		"count", s.count,
		"id", s.current.ID,
		"attributes", s.current.Len(),
	)
	return true
}

// Record returns the current record.
func (s *RecordStream) Record() record.RawRecord {
	return s.current
}

// Err returns the error that ended the stream, if any.
func (s *RecordStream) Err() error {
	return s.err
}

// Pages returns the number of page requests issued so far.
func (s *RecordStream) Pages() int {
	return s.page
}

// Count returns the number of records emitted so far.
func (s *RecordStream) Count() int {
	return s.count
}

func (s *RecordStream) fail(err error) {
	s.err = err
	s.done = true
	s.buf = nil
}

// fetch requests the next page. Pages are numbered from 1.
func (s *RecordStream) fetch(ctx context.Context) error {
	if s.types == nil && s.r.metadata != nil {
		s.types = s.r.metadata.Resolver(ctx, s.entity)
	}

	page := s.page + 1
	doc, err := withPaging(s.fetchXML, page, s.pageSize)
	if err != nil {
		return &MalformedDefinitionError{Entity: s.entity, Reason: "query definition cannot be paged", Cause: err}
	}

	ctx, span := s.r.tracer.Start(ctx, "export.page", trace.WithAttributes(
		attribute.String("export.entity", s.entity),
		attribute.Int("export.page", page),
		attribute.Int("export.page_size", s.pageSize),
	))
	defer span.End()

	start := time.Now()
	result, err := s.r.source.RetrievePage(ctx, s.entity, doc, s.types)
	s.page = page
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var retrievalErr *RetrievalError
		if errors.As(err, &retrievalErr) {
			return err
		}
		return &RetrievalError{Entity: s.entity, Page: page, Cause: err}
	}
	span.SetAttributes(attribute.Int("export.count", len(result.Records)))
	s.r.metrics.ObservePage(s.entity, len(result.Records), time.Since(start))

	s.buf = result.Records
	s.pos = 0
	s.exhausted = result.Last(s.pageSize)
	return nil
}
