// Package logging provides structured logging with secret redaction.
//
// The Logger wraps log/slog with text or JSON output and satisfies the
// narrow export.Logger interface used by the export pipeline. Redaction is
// implemented as a slog.Handler, so the *slog.Logger returned by Slog and
// passed to the Dataverse client masks secrets too.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "text",
//	    RedactSecrets: true,
//	})
//
//	logger.Info("token acquired",
//	    "client_id", "11111111-...",
//	    "client_secret", "abc", // logged as ***
//	)
//
// # Redaction
//
// Values under keys containing password, secret, token, authorization or
// credential are replaced with ***. Bearer tokens and form or JSON encoded
// credentials inside other strings and error values are masked in place.
//
// # Levels
//
// Besides the slog levels the package defines LevelCritical, printed as
// CRITICAL, for failures that do not match a known error kind.
package logging
