package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/viewexport/pkg/cli"
	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/export"
	"mercator-hq/viewexport/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	verbose   bool

	// cfg is the loaded, not yet validated configuration
	cfg *config.Config

	// logger is built from cfg before a command runs
	logger *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "viewexport",
	Short: "Export Dataverse views to CSV",
	Long: `viewexport exports the records of a Dataverse system or personal view to a
CSV file. The view decides which columns are exported and in what order.

Views are looked up by display name, system views first. Records are
retrieved page by page with the view's FetchXML query, formatted by
attribute type (option labels, lookup names, dates in a configurable
pattern) and streamed to a UTF-8 CSV file.

Configuration is read from a YAML file, a .env file next to it and
VIEWEXPORT_* environment variables, in increasing order of precedence.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx := cli.SetupSignalHandler()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return cli.ExitOK
	}

	if strings.HasPrefix(err.Error(), "unknown command") {
		err = cli.NewUsageError(err)
	}
	if cmd != nil && cmd != rootCmd {
		err = cli.NewCommandError(cmd.Name(), err)
	}
	if logger == nil {
		logger = fallbackLogger()
	}

	code := cli.Report(logger, err)
	var usageErr *cli.UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprint(os.Stderr, cmd.UsageString())
	}
	return code
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (same as --log-level debug)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.NewUsageError(err)
	})
}

// loadConfig reads the configuration file and environment, applies the
// global flags and builds the logger. Validation is left to each command
// so command flags can fill in required fields first.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return &export.ConfigurationError{Cause: err}
	}

	if logLevel != "" {
		loaded.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		loaded.Telemetry.Logging.Level = "debug"
	}
	if logFormat != "" {
		loaded.Telemetry.Logging.Format = logFormat
	}

	l, err := logging.New(logging.ConfigFrom(loaded.Telemetry.Logging))
	if err != nil {
		return &export.ConfigurationError{Field: "telemetry.logging", Cause: err}
	}

	cfg = loaded
	logger = l
	return nil
}

// validateConfig runs the full validation after command flags are applied.
func validateConfig(c *config.Config) error {
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// fallbackLogger reports errors that happen before the configured logger
// exists.
func fallbackLogger() *logging.Logger {
	l, err := logging.New(logging.Config{Level: "info", Format: "text", RedactSecrets: true})
	if err != nil {
		return logging.Discard()
	}
	return l
}
