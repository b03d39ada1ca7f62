package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultWindow is the trailing admission window.
	DefaultWindow = 60 * time.Second

	// DefaultMaxPerWindow is the admission cap per client key within the
	// window.
	DefaultMaxPerWindow = 100
)

// Config contains configuration for the admission limiter.
type Config struct {
	// Window is the trailing window duration. Default: 60 seconds.
	Window time.Duration

	// MaxPerWindow is the number of admissions allowed per key within the
	// window. Default: 100.
	MaxPerWindow int

	// Now is the clock used for admission timestamps. Default: time.Now.
	// Injectable for tests.
	Now func() time.Time
}

// Limiter is a sliding-window admission check keyed by client identity.
//
// Each key carries the timestamps of its recent admissions. A call is
// admitted when the count of timestamps strictly younger than the window
// is below the cap; admission appends the current timestamp and prunes
// expired ones. The read-prune-append sequence is atomic with respect to
// all other calls.
//
// A single limiter-wide mutex guards the registry; per-key contention is
// negligible at the cardinality this collector sees. Keys that go quiet
// are not dropped automatically; Sweep (usually driven by a Sweeper)
// bounds the registry's growth.
type Limiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewLimiter creates a new admission limiter. Zero config fields take
// their defaults.
func NewLimiter(cfg Config) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = DefaultMaxPerWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		window:  cfg.Window,
		max:     cfg.MaxPerWindow,
		now:     cfg.Now,
		windows: make(map[string][]time.Time),
	}
}

// Allow reports whether the client identified by key may be admitted, and
// on admission records the attempt. Denial records nothing.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := pruneBefore(l.windows[key], now.Add(-l.window))

	if len(recent) >= l.max {
		l.windows[key] = recent
		return false
	}

	l.windows[key] = append(recent, now)
	return true
}

// Window returns the configured window duration.
func (l *Limiter) Window() time.Duration { return l.window }

// Sweep removes keys with no admission inside the window as of now and
// returns the number of keys removed. Sweeping never affects admission
// decisions; it only bounds registry growth.
func (l *Limiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	removed := 0
	for key, stamps := range l.windows {
		recent := pruneBefore(stamps, cutoff)
		if len(recent) == 0 {
			delete(l.windows, key)
			removed++
			continue
		}
		l.windows[key] = recent
	}
	return removed
}

// Keys returns the number of tracked client keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.windows)
}

// Snapshot returns a copy of every key's admission timestamps, for
// persistence across restarts.
func (l *Limiter) Snapshot() map[string][]time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make(map[string][]time.Time, len(l.windows))
	for key, stamps := range l.windows {
		copied := make([]time.Time, len(stamps))
		copy(copied, stamps)
		snapshot[key] = copied
	}
	return snapshot
}

// Restore loads previously snapshotted admission timestamps, dropping
// entries that have aged out of the window as of now. Existing state for
// a restored key is replaced.
func (l *Limiter) Restore(snapshot map[string][]time.Time, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	for key, stamps := range snapshot {
		recent := pruneBefore(stamps, cutoff)
		if len(recent) == 0 {
			continue
		}
		l.windows[key] = recent
	}
}

// pruneBefore returns the timestamps strictly after cutoff, preserving
// order. Timestamps are appended in order, so a single scan finds the
// first one still inside the window.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	keep := 0
	for keep < len(stamps) && !stamps[keep].After(cutoff) {
		keep++
	}
	if keep == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[keep:]...)
}
