package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/dataverse"
	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/history"
	"mercator-hq/viewexport/pkg/telemetry/logging"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitConnection  = 3
	ExitNotFound    = 4
	ExitMalformed   = 5
	ExitRetrieval   = 6
	ExitIO          = 7
	ExitInterrupted = 130
)

// Classification is the user facing summary of a failed run.
type Classification struct {
	// Code is the process exit code.
	Code int

	// Kind names the error category (e.g., "not_found").
	Kind string

	// Level is the level the short message is logged at.
	Level slog.Level

	// Message is a one line description without the cause chain.
	Message string
}

// Classify maps an error to its exit code, log level and short message.
// Errors of no known kind are logged at critical level.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Code: ExitOK, Kind: "none", Level: slog.LevelInfo}
	}

	var (
		usageErr      *UsageError
		validationErr config.ValidationError
		configErr     *export.ConfigurationError
		connErr       *export.ConnectionError
		notFoundErr   *export.NotFoundError
		malformedErr  *export.MalformedDefinitionError
		retrievalErr  *export.RetrievalError
		ioErr         *export.IOError
		storageErr    *history.StorageError
		authErr       *dataverse.AuthError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return Classification{ExitInterrupted, "interrupted", slog.LevelWarn, "export interrupted"}

	case errors.As(err, &usageErr):
		return Classification{ExitConfig, "usage", slog.LevelError, usageErr.Err.Error()}

	case errors.As(err, &validationErr):
		msg := "invalid configuration"
		if len(validationErr.Errors) == 1 {
			msg = "invalid configuration: " + validationErr.Errors[0].Error()
		} else if n := len(validationErr.Errors); n > 1 {
			msg = fmt.Sprintf("invalid configuration: %d errors, first: %s", n, validationErr.Errors[0].Error())
		}
		return Classification{ExitConfig, "configuration", slog.LevelError, msg}

	case errors.As(err, &configErr):
		return Classification{ExitConfig, "configuration", slog.LevelError, configErr.Error()}

	case errors.As(err, &connErr):
		msg := fmt.Sprintf("could not connect to %s", connErr.URL)
		if errors.As(err, &authErr) {
			msg += ": authentication failed"
		}
		return Classification{ExitConnection, "connection", slog.LevelError, msg}

	case errors.As(err, &notFoundErr):
		return Classification{ExitNotFound, "not_found", slog.LevelError, notFoundErr.Error()}

	case errors.As(err, &malformedErr):
		return Classification{ExitMalformed, "malformed_definition", slog.LevelError,
			fmt.Sprintf("view %q for entity %q is malformed: %s", malformedErr.View, malformedErr.Entity, malformedErr.Reason)}

	case errors.As(err, &retrievalErr):
		msg := fmt.Sprintf("failed to retrieve records from %s", retrievalErr.Entity)
		if retrievalErr.Page > 0 {
			msg = fmt.Sprintf("failed to retrieve page %d of %s", retrievalErr.Page, retrievalErr.Entity)
		}
		return Classification{ExitRetrieval, "retrieval", slog.LevelError, msg}

	case errors.As(err, &ioErr):
		return Classification{ExitIO, "io", slog.LevelError, fmt.Sprintf("failed to %s %s", ioErr.Op, ioErr.Path)}

	case errors.As(err, &storageErr):
		return Classification{ExitFailure, "history", slog.LevelError,
			fmt.Sprintf("run history %s failed", storageErr.Operation)}
	}

	return Classification{ExitFailure, "unexpected", logging.LevelCritical, err.Error()}
}

// ErrorLogger is the subset of logging.Logger that Report needs.
type ErrorLogger interface {
	Log(level slog.Level, msg string, args ...any)
	Debug(msg string, args ...any)
}

// Report logs err the way every command does: the short message at the
// classified level and the full cause chain at debug. It returns the exit
// code.
func Report(logger ErrorLogger, err error) int {
	c := Classify(err)
	if c.Code == ExitOK {
		return ExitOK
	}

	args := []any{"kind", c.Kind, "exit_code", c.Code}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		args = append(args, "command", cmdErr.Command)
	}
	logger.Log(c.Level, c.Message, args...)
	logger.Debug("error details", "error", err.Error())
	return c.Code
}
