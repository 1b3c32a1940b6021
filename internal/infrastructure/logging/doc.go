// Package logging provides structured logging for netsync-core.
//
// It is a thin wrapper around log/slog that applies the configured level,
// format, and destination, and stamps every record with the service name
// and version. Components derive scoped loggers via With:
//
//	apiLog := logger.With("component", "api")
package logging
