package config

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "export.page_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

var (
	validAuthModes      = []string{"client_credentials", "password", "token"}
	validColumnPolicies = []string{"auto", "view", "data"}
	validHistoryDrivers = []string{"sqlite", "sqlite3", "mysql", "postgres", "pgx"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
	validLogFormats     = []string{"text", "json"}
)

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateDataverse(&cfg.Dataverse)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateSchedule(&cfg.Schedule)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateDataverse validates the connection settings.
func validateDataverse(cfg *DataverseConfig) []FieldError {
	var errs []FieldError

	if cfg.URL == "" {
		errs = append(errs, FieldError{Field: "dataverse.url", Message: "url is required"})
	} else if u, err := url.Parse(cfg.URL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "dataverse.url",
			Message: fmt.Sprintf("invalid url %q: must be an absolute http or https url", cfg.URL),
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "dataverse.timeout", Message: "timeout must not be negative"})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{Field: "dataverse.max_retries", Message: "max retries must not be negative"})
	}
	if cfg.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{Field: "dataverse.requests_per_second", Message: "requests per second must not be negative"})
	}
	if cfg.Burst < 0 {
		errs = append(errs, FieldError{Field: "dataverse.burst", Message: "burst must not be negative"})
	}

	errs = append(errs, validateAuth(&cfg.Auth)...)
	return errs
}

// validateAuth checks that the fields required by the selected mode are set.
func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	if !oneOf(cfg.Mode, validAuthModes) {
		return append(errs, FieldError{
			Field:   "dataverse.auth.mode",
			Message: fmt.Sprintf("invalid auth mode %q, must be one of: %s", cfg.Mode, strings.Join(validAuthModes, ", ")),
		})
	}

	required := func(field, value string) {
		if value == "" {
			errs = append(errs, FieldError{
				Field:   "dataverse.auth." + field,
				Message: fmt.Sprintf("%s is required for the %s auth mode", field, cfg.Mode),
			})
		}
	}

	switch cfg.Mode {
	case "client_credentials":
		required("client_id", cfg.ClientID)
		required("client_secret", cfg.ClientSecret)
	case "password":
		required("username", cfg.Username)
		required("password", cfg.Password)
	case "token":
		required("token", cfg.Token)
	}

	if cfg.Authority != "" {
		if u, err := url.Parse(cfg.Authority); err != nil || !u.IsAbs() {
			errs = append(errs, FieldError{
				Field:   "dataverse.auth.authority",
				Message: fmt.Sprintf("invalid authority url %q", cfg.Authority),
			})
		}
	}

	return errs
}

// validateExport validates the job and output settings.
func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.Entity == "" {
		errs = append(errs, FieldError{Field: "export.entity", Message: "entity is required"})
	}
	if cfg.View == "" {
		errs = append(errs, FieldError{Field: "export.view", Message: "view is required"})
	}
	if cfg.PageSize <= 0 {
		errs = append(errs, FieldError{Field: "export.page_size", Message: "page size must be greater than 0"})
	}
	if cfg.MaxItemCount < 0 {
		errs = append(errs, FieldError{Field: "export.max_item_count", Message: "max item count must not be negative"})
	}
	if !oneOf(cfg.ColumnPolicy, validColumnPolicies) {
		errs = append(errs, FieldError{
			Field:   "export.column_policy",
			Message: fmt.Sprintf("invalid column policy %q, must be one of: %s", cfg.ColumnPolicy, strings.Join(validColumnPolicies, ", ")),
		})
	}

	if strings.TrimSpace(cfg.Output.FileName) == "" {
		errs = append(errs, FieldError{Field: "export.output.file_name", Message: "file name is required"})
	}
	if msg := checkDelimiter(cfg.Output.Delimiter); msg != "" {
		errs = append(errs, FieldError{Field: "export.output.delimiter", Message: msg})
	}

	if cfg.DateFormat.Date == "" {
		errs = append(errs, FieldError{Field: "export.date_format.date", Message: "date pattern is required"})
	}
	if cfg.DateFormat.DateTime == "" {
		errs = append(errs, FieldError{Field: "export.date_format.date_time", Message: "date time pattern is required"})
	}

	return errs
}

func checkDelimiter(d string) string {
	if utf8.RuneCountInString(d) != 1 {
		return fmt.Sprintf("delimiter %q must be exactly one character", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	switch r {
	case '"', '\r', '\n', utf8.RuneError:
		return fmt.Sprintf("%q cannot be used as a delimiter", d)
	}
	return ""
}

// validateHistory validates the run history store.
func validateHistory(cfg *HistoryConfig) []FieldError {
	if !cfg.Enabled {
		return nil
	}

	var errs []FieldError
	if !oneOf(cfg.Driver, validHistoryDrivers) {
		errs = append(errs, FieldError{
			Field:   "history.driver",
			Message: fmt.Sprintf("invalid driver %q, must be one of: %s", cfg.Driver, strings.Join(validHistoryDrivers, ", ")),
		})
	}
	if cfg.DSN == "" {
		errs = append(errs, FieldError{Field: "history.dsn", Message: "dsn is required when history is enabled"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "history.retention_days", Message: "retention days must not be negative"})
	}
	if cfg.MaxRuns < 0 {
		errs = append(errs, FieldError{Field: "history.max_runs", Message: "max runs must not be negative"})
	}
	return errs
}

// validateSchedule checks that the cron expression parses.
func validateSchedule(cfg *ScheduleConfig) []FieldError {
	var errs []FieldError
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		errs = append(errs, FieldError{
			Field:   "schedule.cron",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Cron, err),
		})
	}
	return errs
}

// validateTelemetry validates logging, metrics and tracing.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if !oneOf(strings.ToLower(cfg.Logging.Level), validLogLevels) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q, must be one of: %s", cfg.Logging.Level, strings.Join(validLogLevels, ", ")),
		})
	}
	if !oneOf(strings.ToLower(cfg.Logging.Format), validLogFormats) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q, must be one of: %s", cfg.Logging.Format, strings.Join(validLogFormats, ", ")),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{Field: "telemetry.metrics.namespace", Message: "namespace is required when metrics are enabled"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0 and 1, got %g", cfg.Tracing.SampleRatio),
		})
	}

	return errs
}

func oneOf(value string, valid []string) bool {
	for _, v := range valid {
		if value == v {
			return true
		}
	}
	return false
}
