package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper drops stale client keys from a Limiter on a cron schedule. The
// limiter is correct without it; sweeping only bounds the memory the key
// registry can consume over the process lifetime.
type Sweeper struct {
	limiter  *Limiter
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a new sweeper for the given limiter. schedule uses
// standard cron syntax, e.g. "*/5 * * * *" for every five minutes.
func NewSweeper(limiter *Limiter, schedule string) *Sweeper {
	return &Sweeper{
		limiter:  limiter,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "ratelimit.sweeper"),
	}
}

// Start begins scheduled sweeping. If the schedule is empty, the sweeper
// does nothing. The sweeper stops when the context is cancelled or Stop
// is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping sweeper")
		return nil
	}
	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("admission sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts scheduled sweeping. Safe to call multiple times.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("admission sweeper stopped")
}

// sweep runs a single sweep pass.
func (s *Sweeper) sweep() {
	start := time.Now()
	removed := s.limiter.Sweep(start)
	s.logger.Debug("admission sweep complete",
		"removed_keys", removed,
		"remaining_keys", s.limiter.Keys(),
		"duration", time.Since(start),
	)
}
