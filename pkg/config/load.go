package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "VIEWEXPORT_"

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VIEWEXPORT_SECTION_FIELD (e.g., VIEWEXPORT_EXPORT_PAGE_SIZE) and
// always take precedence over the file.
//
// The loading sequence is:
// 1. Load .env files from the config directory and the working directory
// 2. Load YAML from file over the defaults
// 3. Apply environment variable overrides
// 4. Resolve ${secret:name} references
// 5. Validate final configuration
//
// Validation runs once at the end so secrets may live only in the
// environment.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load runs the loading sequence of LoadConfigWithEnvOverrides without the
// final validation, for callers that layer command line flags on top.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	cfg, err := decode(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables that are
// already set. Missing files are ignored.
func loadDotEnv(path string) error {
	seen := make(map[string]bool)
	for _, file := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		abs, err := filepath.Abs(file)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true

		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load environment file %q: %w", file, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Dataverse overrides
	envString("DATAVERSE_URL", &cfg.Dataverse.URL)
	envString("DATAVERSE_API_VERSION", &cfg.Dataverse.APIVersion)
	envDuration("DATAVERSE_TIMEOUT", &cfg.Dataverse.Timeout)
	envInt("DATAVERSE_MAX_RETRIES", &cfg.Dataverse.MaxRetries)
	envFloat("DATAVERSE_REQUESTS_PER_SECOND", &cfg.Dataverse.RequestsPerSecond)
	envInt("DATAVERSE_BURST", &cfg.Dataverse.Burst)
	envString("DATAVERSE_AUTH_MODE", &cfg.Dataverse.Auth.Mode)
	envString("DATAVERSE_AUTH_TENANT_ID", &cfg.Dataverse.Auth.TenantID)
	envString("DATAVERSE_AUTH_CLIENT_ID", &cfg.Dataverse.Auth.ClientID)
	envString("DATAVERSE_AUTH_CLIENT_SECRET", &cfg.Dataverse.Auth.ClientSecret)
	envString("DATAVERSE_AUTH_USERNAME", &cfg.Dataverse.Auth.Username)
	envString("DATAVERSE_AUTH_PASSWORD", &cfg.Dataverse.Auth.Password)
	envString("DATAVERSE_AUTH_TOKEN", &cfg.Dataverse.Auth.Token)
	envString("DATAVERSE_AUTH_AUTHORITY", &cfg.Dataverse.Auth.Authority)
	if val := os.Getenv(EnvPrefix + "DATAVERSE_AUTH_SCOPES"); val != "" {
		cfg.Dataverse.Auth.Scopes = splitList(val)
	}

	// Export overrides
	envString("EXPORT_ENTITY", &cfg.Export.Entity)
	envString("EXPORT_VIEW", &cfg.Export.View)
	envInt("EXPORT_PAGE_SIZE", &cfg.Export.PageSize)
	envInt("EXPORT_MAX_ITEM_COUNT", &cfg.Export.MaxItemCount)
	envString("EXPORT_COLUMN_POLICY", &cfg.Export.ColumnPolicy)
	envString("EXPORT_OUTPUT_DIRECTORY", &cfg.Export.Output.Directory)
	envString("EXPORT_OUTPUT_FILE_NAME", &cfg.Export.Output.FileName)
	envBool("EXPORT_OUTPUT_USE_BOM", &cfg.Export.Output.UseBOM)
	envBool("EXPORT_OUTPUT_USE_CRLF", &cfg.Export.Output.UseCRLF)
	envString("EXPORT_OUTPUT_DELIMITER", &cfg.Export.Output.Delimiter)
	envBool("EXPORT_OUTPUT_ATOMIC", &cfg.Export.Output.Atomic)
	envString("EXPORT_DATE_FORMAT_DATE", &cfg.Export.DateFormat.Date)
	envString("EXPORT_DATE_FORMAT_DATE_TIME", &cfg.Export.DateFormat.DateTime)
	envBool("EXPORT_DATE_FORMAT_TIMEZONE_SHIFT", &cfg.Export.DateFormat.TimezoneShift)
	envDuration("EXPORT_DATE_FORMAT_SHIFT_OFFSET", &cfg.Export.DateFormat.ShiftOffset)

	// History overrides
	envBool("HISTORY_ENABLED", &cfg.History.Enabled)
	envString("HISTORY_DRIVER", &cfg.History.Driver)
	envString("HISTORY_DSN", &cfg.History.DSN)
	envInt("HISTORY_RETENTION_DAYS", &cfg.History.RetentionDays)
	envInt("HISTORY_MAX_RUNS", &cfg.History.MaxRuns)

	// Schedule overrides
	envString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	envString("SCHEDULE_LISTEN_ADDRESS", &cfg.Schedule.ListenAddress)
	envBool("SCHEDULE_WATCH_CONFIG", &cfg.Schedule.WatchConfig)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envString("TELEMETRY_METRICS_TEXTFILE", &cfg.Telemetry.Metrics.Textfile)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)

	// Secrets overrides
	envString("SECRETS_DIRECTORY", &cfg.Secrets.Directory)
	envString("SECRETS_ENV_PREFIX", &cfg.Secrets.EnvPrefix)
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
