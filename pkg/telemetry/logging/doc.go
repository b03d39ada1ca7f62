// Package logging provides structured logging for the collector on top of
// log/slog: level and format selection, runtime level changes for config
// hot reload, and optional redaction of visitor IP addresses in log
// values.
package logging
