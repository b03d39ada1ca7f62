// Package stats derives aggregate statistics from a visit store:
// unique-client counts, total counts, and per-day bucketed counts over a
// trailing 30-day window. The aggregator reads the store independently of
// the write path and keeps no state of its own.
package stats
