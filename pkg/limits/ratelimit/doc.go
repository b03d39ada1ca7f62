// Package ratelimit implements the sliding-window admission check that
// gates every write into the collector.
//
// The limiter tracks, per client key, the timestamps of recent admissions
// within a trailing window (default 60 seconds, cap 100). Admission is an
// atomic read-prune-append: expired timestamps are dropped, the count is
// compared against the cap, and on success the current timestamp is
// appended. Denials record nothing and are never retried here; the caller
// surfaces an admission-denied condition and decides backoff.
//
// The key registry otherwise grows for the life of the process, one entry
// per client ever seen. Sweeper runs Limiter.Sweep on a cron schedule to
// drop keys with no admission inside the window. Snapshot/Restore allow
// window state to survive a restart via pkg/limits/storage.
package ratelimit
