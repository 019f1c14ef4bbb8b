package config

import "time"

// Config is the root configuration structure for viewexport.
// It contains the connection to the Dataverse environment, the export job,
// the run history store, the recurring schedule and telemetry settings.
type Config struct {
	// Dataverse contains the environment URL, credentials and transport
	// settings used to reach the Web API.
	Dataverse DataverseConfig `yaml:"dataverse"`

	// Export describes the view to export and how the CSV file is written.
	Export ExportConfig `yaml:"export"`

	// History contains configuration for the run history database.
	History HistoryConfig `yaml:"history"`

	// Schedule contains configuration for the recurring mode.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets controls how ${secret:name} references are resolved.
	Secrets SecretsConfig `yaml:"secrets"`
}

// DataverseConfig contains connection settings for a Dataverse environment.
type DataverseConfig struct {
	// URL is the environment URL (e.g., "https://org.crm.dynamics.com").
	// Required.
	URL string `yaml:"url"`

	// APIVersion is the Web API version.
	// Default: "9.2"
	APIVersion string `yaml:"api_version"`

	// Auth contains the credentials used to acquire bearer tokens.
	Auth AuthConfig `yaml:"auth"`

	// Timeout bounds a single HTTP request to the Web API.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for network errors and 5xx
	// responses. Client errors are never retried.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RequestsPerSecond paces Web API requests to stay below the service
	// protection limits. 0 disables pacing.
	// Default: 0
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests sent at once before pacing starts.
	// 0 uses RequestsPerSecond rounded up.
	// Default: 0
	Burst int `yaml:"burst"`
}

// AuthConfig contains Dataverse credentials.
type AuthConfig struct {
	// Mode selects the OAuth2 flow.
	// Valid values: "client_credentials", "password", "token"
	// Default: "client_credentials"
	Mode string `yaml:"mode"`

	// TenantID is the Entra ID tenant. Defaults to "organizations" when empty.
	TenantID string `yaml:"tenant_id"`

	// ClientID is the application id. Required for client_credentials.
	ClientID string `yaml:"client_id"`

	// ClientSecret is the application secret. Required for client_credentials.
	// Prefer setting it through VIEWEXPORT_DATAVERSE_AUTH_CLIENT_SECRET.
	ClientSecret string `yaml:"client_secret"`

	// Username and Password are used by the password mode.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Token is a pre-acquired bearer token for the token mode.
	Token string `yaml:"token"`

	// Authority is the identity platform base URL.
	// Default: "https://login.microsoftonline.com"
	Authority string `yaml:"authority"`

	// Scopes overrides the requested scopes. Defaults to "<url>/.default".
	Scopes []string `yaml:"scopes"`
}

// ExportConfig describes one export job.
type ExportConfig struct {
	// Entity is the logical name of the table to export (e.g., "account").
	// Required.
	Entity string `yaml:"entity"`

	// View is the display name of the system or personal view.
	// Required.
	View string `yaml:"view"`

	// PageSize is the number of records requested per page.
	// Default: 5000
	PageSize int `yaml:"page_size"`

	// MaxItemCount caps the number of exported records. 0 means unlimited.
	// Default: 0
	MaxItemCount int `yaml:"max_item_count"`

	// ColumnPolicy selects where CSV columns come from.
	// Valid values: "auto", "view", "data"
	// Default: "auto"
	ColumnPolicy string `yaml:"column_policy"`

	// Output controls the CSV file.
	Output OutputConfig `yaml:"output"`

	// DateFormat controls how date and time values are rendered.
	DateFormat DateFormatConfig `yaml:"date_format"`
}

// OutputConfig controls where and how the CSV file is written.
type OutputConfig struct {
	// Directory is created when missing.
	// Default: "./output"
	Directory string `yaml:"directory"`

	// FileName may contain the {entity} and {timestamp} tokens.
	// Default: "{entity}_{timestamp}.csv"
	FileName string `yaml:"file_name"`

	// UseBOM writes a UTF-8 byte order mark.
	// Default: true
	UseBOM bool `yaml:"use_bom"`

	// UseCRLF terminates records with \r\n.
	// Default: true
	UseCRLF bool `yaml:"use_crlf"`

	// Delimiter is the field separator, exactly one character.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Atomic writes to a .partial file and renames it on success.
	// Default: false
	Atomic bool `yaml:"atomic"`
}

// DateFormatConfig controls date rendering. Patterns use the
// yyyy-MM-dd HH:mm:ss notation.
type DateFormatConfig struct {
	// Date is the pattern for date-only attributes.
	// Default: "yyyy-MM-dd"
	Date string `yaml:"date"`

	// DateTime is the pattern for date and time attributes.
	// Default: "yyyy-MM-dd HH:mm:ss"
	DateTime string `yaml:"date_time"`

	// TimezoneShift adds ShiftOffset to every timestamp before formatting.
	// Default: false
	TimezoneShift bool `yaml:"timezone_shift"`

	// ShiftOffset is the offset applied when TimezoneShift is enabled.
	// Default: 9h
	ShiftOffset time.Duration `yaml:"shift_offset"`
}

// HistoryConfig contains configuration for the run history store.
type HistoryConfig struct {
	// Enabled records every run.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Driver is the database/sql driver name.
	// Valid values: "sqlite", "sqlite3", "mysql", "postgres", "pgx"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the data source name. For the sqlite drivers it is a file path.
	// Default: "data/history.db"
	DSN string `yaml:"dsn"`

	// RetentionDays deletes runs older than this many days after each run.
	// 0 keeps runs forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRuns keeps at most this many runs. 0 means unlimited.
	// Default: 0
	MaxRuns int `yaml:"max_runs"`
}

// ScheduleConfig contains configuration for the recurring mode.
type ScheduleConfig struct {
	// Cron is a standard five field cron expression.
	// Default: "0 3 * * *"
	Cron string `yaml:"cron"`

	// ListenAddress serves /metrics and /healthz. Empty disables the server.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// WatchConfig reloads the configuration file when it changes.
	// Default: true
	WatchConfig bool `yaml:"watch_config"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains configuration for structured logging.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Valid values: "text", "json"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes source file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks passwords, client secrets and tokens in log fields.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains configuration for Prometheus metrics.
type MetricsConfig struct {
	// Enabled registers the export metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: "viewexport"
	Namespace string `yaml:"namespace"`

	// Textfile is a node exporter textfile path written after each run.
	// Empty disables it.
	Textfile string `yaml:"textfile"`
}

// TracingConfig contains configuration for OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled exports spans over OTLP gRPC.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of traces sampled, between 0 and 1.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "viewexport"
	ServiceName string `yaml:"service_name"`
}

// SecretsConfig controls where ${secret:name} references in credentials
// and the history DSN are looked up.
type SecretsConfig struct {
	// Directory holds one file per secret, as mounted by Docker or
	// Kubernetes. Files must have 0600 or 0400 permissions. Empty disables
	// file lookups.
	Directory string `yaml:"directory"`

	// EnvPrefix is prepended to the upper-cased secret name to form an
	// environment variable name.
	// Default: "VIEWEXPORT_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`
}
