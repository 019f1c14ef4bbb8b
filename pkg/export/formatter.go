package export

import (
	"context"
	"strconv"
	"strings"
	"time"

	"mercator-hq/viewexport/pkg/record"
)

// FormattedRow maps attribute names to display text. Rows of one export may
// carry different attribute sets.
type FormattedRow map[string]string

// DefaultShiftOffset is the fixed shift applied when the timezone shift is
// enabled without an explicit offset.
const DefaultShiftOffset = 9 * time.Hour

// DateFormat configures date-time rendering.
type DateFormat struct {
	// Date is used for date-only attributes. Default: "yyyy-MM-dd"
	Date string

	// DateTime is used for all other date-time attributes.
	// Default: "yyyy-MM-dd HH:mm:ss"
	DateTime string

	// Shift enables a fixed offset added to every timestamp before it is
	// formatted.
	Shift bool

	// ShiftOffset is the offset added when Shift is set. Default: 9h
	ShiftOffset time.Duration
}

// RowFormatter turns raw records into formatted rows.
type RowFormatter struct {
	metadata *MetadataCache
	date     *DatePattern
	dateTime *DatePattern
	shift    time.Duration
	logger   Logger
	metrics  Metrics
}

// NewRowFormatter compiles the date patterns and returns a formatter.
// metadata may be nil, in which case choices render as codes and no
// attribute is treated as date-only.
func NewRowFormatter(metadata *MetadataCache, format DateFormat, logger Logger, metrics Metrics) (*RowFormatter, error) {
	if format.Date == "" {
		format.Date = "yyyy-MM-dd"
	}
	if format.DateTime == "" {
		format.DateTime = "yyyy-MM-dd HH:mm:ss"
	}

	date, err := CompileDatePattern(format.Date)
	if err != nil {
		return nil, &ConfigurationError{Field: "export.date_format.date", Cause: err}
	}
	dateTime, err := CompileDatePattern(format.DateTime)
	if err != nil {
		return nil, &ConfigurationError{Field: "export.date_format.date_time", Cause: err}
	}

	var shift time.Duration
	if format.Shift {
		shift = format.ShiftOffset
		if shift == 0 {
			shift = DefaultShiftOffset
		}
	}

	return &RowFormatter{
		metadata: metadata,
		date:     date,
		dateTime: dateTime,
		shift:    shift,
		logger:   loggerOrDiscard(logger),
		metrics:  metricsOrNop(metrics),
	}, nil
}

// Format renders every attribute of rec. Attributes never interact; only
// choice and date-time values consult the metadata cache.
func (f *RowFormatter) Format(ctx context.Context, rec record.RawRecord, entity string) FormattedRow {
	row := make(FormattedRow, len(rec.Attributes))
	for name, value := range rec.Attributes {
		row[name] = f.FormatValue(ctx, entity, name, value)
	}
	return row
}

// FormatValue renders one attribute value.
func (f *RowFormatter) FormatValue(ctx context.Context, entity, attribute string, value record.Value) string {
	switch v := value.(type) {
	case nil, record.Null:
		return ""

	case record.Reference:
		if v.Name != "" {
			return v.Name
		}
		return v.ID

	case record.Amount:
		return string(v)

	case record.Choice:
		return f.label(ctx, entity, attribute, int(v))

	case record.Choices:
		labels := make([]string, len(v))
		for i, code := range v {
			labels[i] = f.label(ctx, entity, attribute, code)
		}
		return strings.Join(labels, ";")

	case record.DateTime:
		t := v.Time().Add(f.shift)
		if f.dateOnly(ctx, entity, attribute) {
			return f.date.Format(t)
		}
		return f.dateTime.Format(t)

	case record.Boolean:
		return strconv.FormatBool(bool(v))

	case record.Integer:
		return strconv.FormatInt(int64(v), 10)

	case record.Text:
		return string(v)

	default:
		return ""
	}
}

func (f *RowFormatter) label(ctx context.Context, entity, attribute string, code int) string {
	if f.metadata != nil {
		if label, ok := f.metadata.OptionLabel(ctx, entity, attribute, code); ok {
			return label
		}
	}
	loggerFrom(ctx, f.logger).Warn("option label not found, using numeric code",
		"attribute", attribute,
		"code", code,
	)
	f.metrics.LabelFallback(entity)
	return strconv.Itoa(code)
}

func (f *RowFormatter) dateOnly(ctx context.Context, entity, attribute string) bool {
	if f.metadata == nil {
		return false
	}
	meta, ok := f.metadata.AttributeMetadata(ctx, entity, attribute)
	return ok && meta.DateOnly
}
