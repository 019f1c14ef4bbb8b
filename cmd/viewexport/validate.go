package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/viewexport/pkg/export"
)

var validateFlags struct {
	connect bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration file, .env file and VIEWEXPORT_* environment
variables without exporting anything.

With --connect the credentials are also checked against the environment and
the configured view is resolved, which reports a missing or malformed view
before the first scheduled run.

Examples:
  # Check the configuration file only
  viewexport validate

  # Also authenticate and resolve the view
  viewexport validate --connect --config /etc/viewexport/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.connect, "connect", false, "authenticate and resolve the configured view")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", cfgFile)

	if !validateFlags.connect {
		return nil
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	service, err := a.connect(ctx, cfg.Dataverse)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Connected to %s\n", cfg.Dataverse.URL)

	def, err := export.NewViewResolver(service, logger).Resolve(ctx, cfg.Export.View, cfg.Export.Entity)
	if err != nil {
		return err
	}

	if !def.HasLayout {
		fmt.Fprintf(out, "✓ Found %s view %q of %s without a layout; columns will be derived from the data\n",
			def.Kind, def.Name, def.Entity)
		return nil
	}
	fmt.Fprintf(out, "✓ Found %s view %q of %s with %d columns: %s\n",
		def.Kind, def.Name, def.Entity, len(def.Columns), strings.Join(def.Columns, ", "))
	return nil
}
