// Package metrics exposes the collector's Prometheus metrics: ingest and
// rejection counters, read latency histograms, and the admission
// limiter's registry size. A nil Collector is a no-op, so instrumented
// code paths need no enabled checks.
package metrics
