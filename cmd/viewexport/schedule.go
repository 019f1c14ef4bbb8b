package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/viewexport/pkg/cli"
	"mercator-hq/viewexport/pkg/config"
	"mercator-hq/viewexport/pkg/schedule"
	"mercator-hq/viewexport/pkg/server"
	"mercator-hq/viewexport/pkg/telemetry/health"
)

var scheduleFlags struct {
	listenAddress string
	runNow        bool
	noWatch       bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the export on a cron schedule",
	Long: `Run the configured export on the schedule.cron expression until interrupted.

A run that is still going when the next tick fires makes that tick skip.
When schedule.watch_config is set, changes to the configuration file are
picked up without a restart: the next run uses the new export settings, the
log level changes immediately and a new cron expression reschedules the job.
An invalid file is rejected and the previous configuration stays active.

When schedule.listen_address is set, an HTTP server exposes:
  /metrics   Prometheus metrics
  /healthz   readiness, unhealthy while the last run failed
  /livez     liveness
  /runs      recent runs from the history store

Examples:
  # Run with the configured schedule
  viewexport schedule

  # Export once at startup, then follow the schedule
  viewexport schedule --run-now

  # Serve metrics on all interfaces
  viewexport schedule --listen 0.0.0.0:9090`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&scheduleFlags.listenAddress, "listen", "l", "", "override schedule.listen_address, empty string disables the server")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.runNow, "run-now", false, "run the export once immediately")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.noWatch, "no-watch", false, "do not reload the configuration file on change")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("listen") {
		cfg.Schedule.ListenAddress = scheduleFlags.listenAddress
	}
	if scheduleFlags.noWatch {
		cfg.Schedule.WatchConfig = false
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	config.SetConfig(cfg)

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to release resources", "error", err)
		}
	}()

	scheduler, err := schedule.NewScheduler(cfg.Schedule.Cron, func(ctx context.Context) error {
		_, err := a.run(ctx, config.MustGetConfig())
		if err != nil {
			cli.Report(logger, err)
		}
		return err
	}, logger.Slog())
	if err != nil {
		return err
	}

	previous, err := a.previousRun(ctx)
	if err != nil {
		logger.Warn("failed to read previous run", "error", err)
	} else if previous != nil {
		scheduler.Restore(*previous)
		logger.Debug("restored previous run", "started_at", previous.StartedAt, "failed", previous.Err != nil)
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if cfg.Schedule.WatchConfig {
		watcher, err := schedule.NewConfigWatcher(cfgFile, 0, logger.Slog())
		if err != nil {
			return err
		}
		defer watcher.Stop()

		go func() {
			if err := watcher.Watch(ctx, func() error { return reload(scheduler) }); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	if scheduleFlags.runNow {
		go func() {
			_ = scheduler.RunNow(ctx)
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Scheduled export of %s view %q (%s)\n",
		cfg.Export.Entity, cfg.Export.View, cfg.Schedule.Cron)

	if cfg.Schedule.ListenAddress == "" {
		<-ctx.Done()
		logger.Info("shutting down")
		return nil
	}

	a.metrics.RegisterRuntime()

	checker := health.New(0)
	checker.RegisterCheck("last_run", scheduler.HealthCheck)
	deps := server.Dependencies{
		Metrics: a.metrics.Handler(),
		Health:  checker,
		Version: health.NewVersionInfo(Version, GitCommit, BuildDate),
	}
	if a.history != nil {
		checker.RegisterCheck("history", a.history.Ping)
		deps.Runs = a.history
	}

	srv := server.New(server.Config{ListenAddress: cfg.Schedule.ListenAddress}, deps, logger.Slog())
	return srv.Start(ctx)
}

// reload applies a changed configuration file. Export settings are read
// by the next run through the global configuration.
func reload(scheduler *schedule.Scheduler) error {
	next, err := config.ReloadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
		logger.Warn("log level not changed", "error", err)
	}
	if err := scheduler.Reschedule(next.Schedule.Cron); err != nil {
		return err
	}

	logger.Info("configuration reloaded",
		"entity", next.Export.Entity,
		"view", next.Export.View,
		"schedule", next.Schedule.Cron,
	)
	return nil
}
