package core

// scheduler.go runs the background session sweeper.
//
// Conversations live in memory only, so abandoned browser sessions would
// otherwise accumulate. The sweeper runs on a ticker until its context is
// cancelled and never fails the process.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig holds settings for the session sweeper.
type SweepConfig struct {
	IdleTTL       time.Duration // Drop conversations idle this long (default: 2h)
	CheckInterval time.Duration // How often to sweep (default: 5m)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.IdleTTL <= 0 {
		c.IdleTTL = 2 * time.Hour
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 5 * time.Minute
	}
	return c
}

// StartSessionSweeper periodically drops idle conversations. It blocks until
// ctx is cancelled, so run it in its own goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("session sweeper started",
		"idle_ttl", cfg.IdleTTL.String(),
		"interval", cfg.CheckInterval.String(),
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(cfg)
		}
	}
}

// runSweep performs one sweep cycle.
func (s *Service) runSweep(cfg SweepConfig) int {
	start := time.Now()
	removed := s.sessions.Sweep(cfg.IdleTTL)
	if removed > 0 {
		slog.Info("swept idle sessions",
			"removed", removed,
			"remaining", s.sessions.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return removed
}
