// Package export implements the view-driven CSV export pipeline.
//
// A run flows through five stages:
//
//	ViewResolver -> PagedRetriever -> RowFormatter -> Normalizer -> CSVWriter
//
// The ViewResolver looks a named view up in the system view store first and
// the personal view store second, and caches the result per (view, entity).
// The PagedRetriever pages through the view's FetchXML one page at a time and
// exposes the records as a pull-based RecordStream, stopping as soon as the
// optional record cap is reached. The RowFormatter renders each typed value
// to text, consulting the MetadataCache for option labels and date-only
// attributes. Rows are then aligned to one ordered column set and written.
//
// # Column policies
//
// PolicyView takes the column set from the view layout and streams rows to
// the file as they arrive. PolicyData derives the columns from the union of
// attribute names in the data, which requires buffering the whole result.
// PolicyAuto uses the view layout whenever the view has one.
//
// # Errors
//
// Every failure is reported as one of ConfigurationError, ConnectionError,
// NotFoundError, MalformedDefinitionError, RetrievalError or IOError. None of
// them is retried by this package. Missing option labels and attributes are
// not errors: they are logged at warning level and rendered as raw values.
//
// # Usage
//
//	exporter, err := export.NewExporter(client, export.Options{Logger: logger})
//	if err != nil {
//		return err
//	}
//	result, err := exporter.Run(ctx, export.Job{
//		Entity:    "account",
//		View:      "Active Accounts",
//		PageSize:  5000,
//		Directory: "./output",
//		FileName:  "{entity}_{timestamp}.csv",
//		CSV:       export.CSVOptions{UseBOM: true, UseCRLF: true},
//	})
package export
