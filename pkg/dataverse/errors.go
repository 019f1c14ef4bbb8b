package dataverse

import (
	"fmt"
	"time"
)

// RequestError represents a failed Web API request.
// It includes the HTTP status code and the service error message.
type RequestError struct {
	// Method and Path identify the request
	Method string
	Path   string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Code is the service error code, e.g. "0x80040217"
	Code string

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.StatusCode > 0 {
		if e.Code != "" {
			return fmt.Sprintf("dataverse %s %s failed (status %d, code %s): %s", e.Method, e.Path, e.StatusCode, e.Code, e.Message)
		}
		return fmt.Sprintf("dataverse %s %s failed (status %d): %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("dataverse %s %s failed: %v", e.Method, e.Path, e.Cause)
	}
	return fmt.Sprintf("dataverse %s %s failed: %s", e.Method, e.Path, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure.
// This occurs when no token can be acquired or the service rejects it (HTTP 401 or 403).
type AuthError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dataverse authentication failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("dataverse authentication failed: %s", e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// RateLimitError represents a service protection limit (HTTP 429).
type RateLimitError struct {
	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("dataverse rate limit exceeded (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("dataverse rate limit exceeded: %s", e.Message)
}

// TimeoutError represents a request timeout.
type TimeoutError struct {
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("dataverse request timeout after %s", e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// ParseError represents a response parsing failure.
type ParseError struct {
	// RawResponse is the raw response body that failed to parse, truncated
	RawResponse string

	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("dataverse response parse error: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
