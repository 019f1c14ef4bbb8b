// Viewexport exports the records of a Dataverse system or personal view to
// a CSV file.
//
// The view decides which columns are exported and in what order. Records
// are fetched page by page with the view's FetchXML query, formatted by
// attribute type and streamed to the output file.
//
// Usage:
//
//	# Export the view configured in config.yaml
//	viewexport export
//
//	# Export another view of another table
//	viewexport export --entity contact --view "My Active Contacts"
//
//	# Run the export every night and serve /metrics and /healthz
//	viewexport schedule
//
//	# Show the last recorded runs
//	viewexport history --limit 10
//
//	# Check configuration and credentials
//	viewexport validate --connect
package main

import "os"

func main() {
	os.Exit(Execute())
}
