package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// redacted replaces sensitive values.
const redacted = "***"

// Redactor masks credentials in log fields: values stored under
// sensitive keys, and secrets embedded in free text such as error messages.
type Redactor struct {
	patterns []*redactPattern
	keys     []string
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor with the built-in patterns.
func NewRedactor() *Redactor {
	r := &Redactor{
		keys: []string{
			"password", "passwd", "pwd",
			"secret", "token", "authorization",
			"api_key", "apikey", "credential",
		},
	}

	for _, p := range []struct {
		regex       string
		replacement string
	}{
		// Bearer tokens in headers or error text
		{`(?i)bearer\s+[a-z0-9\-._~+/]+=*`, "Bearer " + redacted},
		// form and query encoded credentials
		{`(?i)(password|client_secret|access_token|refresh_token|assertion)=[^&\s;"]+`, "$1=" + redacted},
		// JSON encoded credentials
		{`(?i)"(password|client_secret|access_token|refresh_token)"\s*:\s*"[^"]*"`, `"$1":"` + redacted + `"`},
	} {
		r.patterns = append(r.patterns, &redactPattern{
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	return r
}

// RedactString masks secrets embedded in value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// IsSensitiveKey reports whether a field name indicates a credential.
func (r *Redactor) IsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range r.keys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactAttr masks a single attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = r.RedactAttr(attr)
		}
		return slog.Group(a.Key, attrsToAny(out)...)

	case slog.KindString:
		if r.IsSensitiveKey(a.Key) {
			if a.Value.String() == "" {
				return a
			}
			return slog.String(a.Key, redacted)
		}
		return slog.String(a.Key, r.RedactString(a.Value.String()))

	case slog.KindAny:
		if r.IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		return a

	default:
		if r.IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redacted)
		}
		return a
	}
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}

// RedactHandler is a slog.Handler that redacts every record before passing
// it on. Loggers handed to other packages as *slog.Logger keep redaction.
type RedactHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

// NewRedactHandler wraps inner.
func NewRedactHandler(inner slog.Handler, redactor *Redactor) *RedactHandler {
	return &RedactHandler{inner: inner, redactor: redactor}
}

// Enabled implements slog.Handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *RedactHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.redactor.RedactString(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = h.redactor.RedactAttr(a)
	}
	return &RedactHandler{inner: h.inner.WithAttrs(out), redactor: h.redactor}
}

// WithGroup implements slog.Handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}
