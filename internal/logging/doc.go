// Package logging configures the process-wide slog logger for filesearch.
//
// Records are written as JSON to a size-rotated file under ~/.filesearch/logs
// and, unless the process speaks a protocol on its standard streams, as text
// to stderr. Both sinks are fed from one logger through a fanout handler.
package logging
