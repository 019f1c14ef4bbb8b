package config

import "time"

// Default values for configuration fields.
const (
	// Dataverse defaults
	DefaultAPIVersion = "9.2"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 2
	DefaultAuthMode   = "client_credentials"
	DefaultAuthority  = "https://login.microsoftonline.com"

	// Export defaults
	DefaultPageSize     = 5000
	DefaultMaxItemCount = 0
	DefaultColumnPolicy = "auto"

	// Output defaults
	DefaultOutputDirectory = "./output"
	DefaultOutputFileName  = "{entity}_{timestamp}.csv"
	DefaultUseBOM          = true
	DefaultUseCRLF         = true
	DefaultDelimiter       = ","
	DefaultAtomic          = false

	// Date format defaults
	DefaultDatePattern     = "yyyy-MM-dd"
	DefaultDateTimePattern = "yyyy-MM-dd HH:mm:ss"
	DefaultTimezoneShift   = false
	DefaultShiftOffset     = 9 * time.Hour

	// History defaults
	DefaultHistoryEnabled = true
	DefaultHistoryDriver  = "sqlite"
	DefaultHistoryDSN     = "data/history.db"
	DefaultRetentionDays  = 90
	DefaultMaxRuns        = 0

	// Schedule defaults
	DefaultScheduleCron  = "0 3 * * *"
	DefaultListenAddress = "127.0.0.1:9090"
	DefaultWatchConfig   = true

	// Logging defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultAddSource     = false
	DefaultRedactSecrets = true

	// Metrics defaults
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "viewexport"

	// Tracing defaults
	DefaultTracingEnabled     = false
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingInsecure    = true
	DefaultTracingSampleRatio = 1.0
	DefaultServiceName        = "viewexport"

	// Secrets defaults
	DefaultSecretEnvPrefix = "VIEWEXPORT_SECRET_"
)

// Default returns a configuration with every field set to its default.
// Load decodes the YAML file over it, so booleans that default to
// true can still be switched off explicitly.
func Default() *Config {
	return &Config{
		Dataverse: DataverseConfig{
			APIVersion: DefaultAPIVersion,
			Timeout:    DefaultTimeout,
			MaxRetries: DefaultMaxRetries,
			Auth: AuthConfig{
				Mode:      DefaultAuthMode,
				Authority: DefaultAuthority,
			},
		},
		Export: ExportConfig{
			PageSize:     DefaultPageSize,
			MaxItemCount: DefaultMaxItemCount,
			ColumnPolicy: DefaultColumnPolicy,
			Output: OutputConfig{
				Directory: DefaultOutputDirectory,
				FileName:  DefaultOutputFileName,
				UseBOM:    DefaultUseBOM,
				UseCRLF:   DefaultUseCRLF,
				Delimiter: DefaultDelimiter,
				Atomic:    DefaultAtomic,
			},
			DateFormat: DateFormatConfig{
				Date:          DefaultDatePattern,
				DateTime:      DefaultDateTimePattern,
				TimezoneShift: DefaultTimezoneShift,
				ShiftOffset:   DefaultShiftOffset,
			},
		},
		History: HistoryConfig{
			Enabled: DefaultHistoryEnabled,
			Driver:  DefaultHistoryDriver,
			DSN:     DefaultHistoryDSN,

			RetentionDays: DefaultRetentionDays,
			MaxRuns:       DefaultMaxRuns,
		},
		Schedule: ScheduleConfig{
			Cron:          DefaultScheduleCron,
			ListenAddress: DefaultListenAddress,
			WatchConfig:   DefaultWatchConfig,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:         DefaultLogLevel,
				Format:        DefaultLogFormat,
				AddSource:     DefaultAddSource,
				RedactSecrets: DefaultRedactSecrets,
			},
			Metrics: MetricsConfig{
				Enabled:   DefaultMetricsEnabled,
				Namespace: DefaultMetricsNamespace,
			},
			Tracing: TracingConfig{
				Enabled:     DefaultTracingEnabled,
				Endpoint:    DefaultTracingEndpoint,
				Insecure:    DefaultTracingInsecure,
				SampleRatio: DefaultTracingSampleRatio,
				ServiceName: DefaultServiceName,
			},
		},
		Secrets: SecretsConfig{
			EnvPrefix: DefaultSecretEnvPrefix,
		},
	}
}

// ApplyDefaults fills zero-valued fields that have a non-zero default.
// Booleans are left alone since false is a meaningful setting.
func ApplyDefaults(cfg *Config) {
	applyDataverseDefaults(&cfg.Dataverse)
	applyExportDefaults(&cfg.Export)

	if cfg.History.Driver == "" {
		cfg.History.Driver = DefaultHistoryDriver
	}
	if cfg.History.DSN == "" {
		cfg.History.DSN = DefaultHistoryDSN
	}

	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = DefaultScheduleCron
	}

	applyTelemetryDefaults(&cfg.Telemetry)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretEnvPrefix
	}
}

func applyDataverseDefaults(cfg *DataverseConfig) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = DefaultAuthMode
	}
	if cfg.Auth.Authority == "" {
		cfg.Auth.Authority = DefaultAuthority
	}
}

func applyExportDefaults(cfg *ExportConfig) {
	if cfg.PageSize == 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.ColumnPolicy == "" {
		cfg.ColumnPolicy = DefaultColumnPolicy
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = DefaultOutputDirectory
	}
	if cfg.Output.FileName == "" {
		cfg.Output.FileName = DefaultOutputFileName
	}
	if cfg.Output.Delimiter == "" {
		cfg.Output.Delimiter = DefaultDelimiter
	}

	if cfg.DateFormat.Date == "" {
		cfg.DateFormat.Date = DefaultDatePattern
	}
	if cfg.DateFormat.DateTime == "" {
		cfg.DateFormat.DateTime = DefaultDateTimePattern
	}
	if cfg.DateFormat.ShiftOffset == 0 {
		cfg.DateFormat.ShiftOffset = DefaultShiftOffset
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultServiceName
	}
}
