// Package logging builds the application's slog loggers.
//
// Loggers write JSON to stdout. LOG_LEVEL selects the level (debug, info,
// warn, error; default info) and LOG_FORMAT=text switches to the
// human-readable handler for local runs.
//
// Secrets never reach the logs: webhook identities mask their token through
// their String method and SanitizeError masks DSN passwords and webhook
// tokens embedded in error text.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	ctx = logging.WithLogger(ctx, logger.With(slog.String("schedule_id", id)))
//	logging.FromContext(ctx).Info("sync started")
package logging
