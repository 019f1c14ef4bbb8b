package main

import (
	"unicode/utf8"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/dataverse"
	"mercator-hq/viewexport/pkg/export"
)

// jobFromConfig converts the export section into a pipeline job.
func jobFromConfig(c config.ExportConfig) export.Job {
	delimiter, _ := utf8.DecodeRuneInString(c.Output.Delimiter)
	if c.Output.Delimiter == "" {
		delimiter = ','
	}

	return export.Job{
		Entity:    c.Entity,
		View:      c.View,
		PageSize:  c.PageSize,
		MaxItems:  c.MaxItemCount,
		Policy:    export.ColumnPolicy(c.ColumnPolicy),
		Directory: c.Output.Directory,
		FileName:  c.Output.FileName,
		CSV: export.CSVOptions{
			UseBOM:    c.Output.UseBOM,
			UseCRLF:   c.Output.UseCRLF,
			Delimiter: delimiter,
			Atomic:    c.Output.Atomic,
		},
	}
}

// dateFormatFromConfig converts the date format section.
func dateFormatFromConfig(c config.DateFormatConfig) export.DateFormat {
	return export.DateFormat{
		Date:        c.Date,
		DateTime:    c.DateTime,
		Shift:       c.TimezoneShift,
		ShiftOffset: c.ShiftOffset,
	}
}

// clientConfig converts the connection section.
func clientConfig(c config.DataverseConfig) dataverse.Config {
	return dataverse.Config{
		URL:        c.URL,
		APIVersion: c.APIVersion,
		Timeout:    c.Timeout,
		MaxRetries: c.MaxRetries,
		UserAgent:  "viewexport/" + Version,

		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// authConfig converts the credentials section.
func authConfig(c config.AuthConfig) dataverse.AuthConfig {
	return dataverse.AuthConfig{
		Mode:         c.Mode,
		Authority:    c.Authority,
		TenantID:     c.TenantID,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Username:     c.Username,
		Password:     c.Password,
		Token:        c.Token,
		Scopes:       c.Scopes,
	}
}
