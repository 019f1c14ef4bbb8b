package export

import (
	"fmt"

	"mercator-hq/viewexport/pkg/record"
)

// ConfigurationError reports invalid settings. It is raised before any
// connection attempt.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Field, msg)
	}
	return fmt.Sprintf("configuration error: %s", msg)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Cause }

// ConnectionError reports a failed handshake with the remote service.
type ConnectionError struct {
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// NotFoundError reports a view absent from both view stores.
type NotFoundError struct {
	View   string
	Entity string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("view %q not found for entity %q", e.View, e.Entity)
}

// MalformedDefinitionError reports a view whose query or layout is unusable.
type MalformedDefinitionError struct {
	View   string
	Entity string
	Kind   record.ViewKind
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *MalformedDefinitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("view %q for entity %q is malformed: %s: %v", e.View, e.Entity, e.Reason, e.Cause)
	}
	return fmt.Sprintf("view %q for entity %q is malformed: %s", e.View, e.Entity, e.Reason)
}

// Unwrap returns the underlying error.
func (e *MalformedDefinitionError) Unwrap() error { return e.Cause }

// RetrievalError reports a failed query against the remote service. Page is
// zero when the failure happened outside paged retrieval (view lookup).
type RetrievalError struct {
	Entity string
	Page   int
	Cause  error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("retrieval of %s page %d failed: %v", e.Entity, e.Page, e.Cause)
	}
	return fmt.Sprintf("retrieval from %s failed: %v", e.Entity, e.Cause)
}

// Unwrap returns the underlying error.
func (e *RetrievalError) Unwrap() error { return e.Cause }

// IOError reports an output path or file failure.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Cause }
