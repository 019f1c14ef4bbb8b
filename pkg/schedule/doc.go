// Package schedule runs exports on a cron schedule and reloads the
// configuration when its file changes.
//
// Scheduler wraps robfig/cron. Only one run is in flight at a time; a tick
// that fires while a run is still going is skipped and counted. The
// outcome of the last run is kept for the /healthz endpoint.
//
//	s, err := schedule.NewScheduler("0 3 * * *", runExport, logger)
//	if err != nil {
//	    return err
//	}
//	checker.RegisterCheck("last_run", s.HealthCheck)
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//
// ConfigWatcher uses fsnotify on the directory holding the configuration
// file and debounces bursts of events, so one save triggers one reload.
package schedule
