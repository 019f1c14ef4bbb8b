/*
Package cli provides the helpers shared by the viewexport commands.

Error Classification:

Every command returns its error to main, which reports it through Report.
Classify maps the error kinds of the export pipeline to exit codes:

	0  success
	1  unexpected error (logged at CRITICAL)
	2  configuration or usage error
	3  connection or authentication failure
	4  view not found
	5  malformed view definition
	6  retrieval failure
	7  output file failure
	130 interrupted

The short message is logged at error level and the full cause chain at
debug level:

	if err := cmd.Execute(); err != nil {
		os.Exit(cli.Report(logger, err))
	}

Output Formatting:

The history command prints runs as a text table, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, cli.NewRunList(runs)); err != nil {
		return err
	}

Progress Reporting:

ProgressMetrics wraps the metrics collector and advances a progress
reporter after every retrieved page:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(job.MaxItems))
	opts.Metrics = cli.NewProgressMetrics(collector, progress)

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
*/
package cli
