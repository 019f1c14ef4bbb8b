package config

import (
	"errors"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Dataverse.URL = "https://org.crm.dynamics.com"
	cfg.Dataverse.Auth.ClientID = "app"
	cfg.Dataverse.Auth.ClientSecret = "secret"
	cfg.Export.Entity = "account"
	cfg.Export.View = "Active Accounts"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"missing url", func(c *Config) { c.Dataverse.URL = "" }, "dataverse.url"},
		{"relative url", func(c *Config) { c.Dataverse.URL = "org.crm.dynamics.com" }, "dataverse.url"},
		{"ftp url", func(c *Config) { c.Dataverse.URL = "ftp://org.crm.dynamics.com" }, "dataverse.url"},
		{"negative retries", func(c *Config) { c.Dataverse.MaxRetries = -1 }, "dataverse.max_retries"},
		{"negative request rate", func(c *Config) { c.Dataverse.RequestsPerSecond = -2 }, "dataverse.requests_per_second"},
		{"negative burst", func(c *Config) { c.Dataverse.Burst = -1 }, "dataverse.burst"},
		{"unknown auth mode", func(c *Config) { c.Dataverse.Auth.Mode = "kerberos" }, "dataverse.auth.mode"},
		{"missing client secret", func(c *Config) { c.Dataverse.Auth.ClientSecret = "" }, "dataverse.auth.client_secret"},
		{"password without username", func(c *Config) {
			c.Dataverse.Auth.Mode = "password"
			c.Dataverse.Auth.Password = "p"
		}, "dataverse.auth.username"},
		{"token mode without token", func(c *Config) { c.Dataverse.Auth.Mode = "token" }, "dataverse.auth.token"},
		{"missing entity", func(c *Config) { c.Export.Entity = "" }, "export.entity"},
		{"missing view", func(c *Config) { c.Export.View = "" }, "export.view"},
		{"zero page size", func(c *Config) { c.Export.PageSize = 0 }, "export.page_size"},
		{"negative max items", func(c *Config) { c.Export.MaxItemCount = -5 }, "export.max_item_count"},
		{"unknown column policy", func(c *Config) { c.Export.ColumnPolicy = "layout" }, "export.column_policy"},
		{"blank file name", func(c *Config) { c.Export.Output.FileName = "  " }, "export.output.file_name"},
		{"two character delimiter", func(c *Config) { c.Export.Output.Delimiter = ";;" }, "export.output.delimiter"},
		{"quote delimiter", func(c *Config) { c.Export.Output.Delimiter = `"` }, "export.output.delimiter"},
		{"newline delimiter", func(c *Config) { c.Export.Output.Delimiter = "\n" }, "export.output.delimiter"},
		{"unknown history driver", func(c *Config) { c.History.Driver = "oracle" }, "history.driver"},
		{"negative retention", func(c *Config) { c.History.RetentionDays = -1 }, "history.retention_days"},
		{"negative max runs", func(c *Config) { c.History.MaxRuns = -1 }, "history.max_runs"},
		{"bad cron", func(c *Config) { c.Schedule.Cron = "every day" }, "schedule.cron"},
		{"bad log level", func(c *Config) { c.Telemetry.Logging.Level = "verbose" }, "telemetry.logging.level"},
		{"bad log format", func(c *Config) { c.Telemetry.Logging.Format = "xml" }, "telemetry.logging.format"},
		{"sample ratio above one", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }, "telemetry.tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			for _, fe := range verr.Errors {
				if fe.Field == tt.field {
					return
				}
			}
			t.Errorf("no error for field %q in %v", tt.field, verr.Errors)
		})
	}
}

func TestValidate_TabAndSemicolonDelimiters(t *testing.T) {
	for _, d := range []string{"\t", ";", "|"} {
		cfg := validConfig()
		cfg.Export.Output.Delimiter = d
		if err := Validate(cfg); err != nil {
			t.Errorf("delimiter %q rejected: %v", d, err)
		}
	}
}

func TestValidate_DisabledHistorySkipsDriver(t *testing.T) {
	cfg := validConfig()
	cfg.History.Enabled = false
	cfg.History.Driver = "oracle"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidationError_CollectsAll(t *testing.T) {
	cfg := validConfig()
	cfg.Export.Entity = ""
	cfg.Export.View = ""

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
	if !strings.Contains(err.Error(), "2 errors") {
		t.Errorf("Error() = %q", err.Error())
	}
}
