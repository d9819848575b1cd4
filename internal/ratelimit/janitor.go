package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is used when RunJanitor is given a non-positive interval.
const DefaultSweepInterval = 5 * time.Minute

// RunJanitor calls s.Sweep every interval until ctx is cancelled. It blocks;
// start it in a goroutine from main:
//
//	go ratelimit.RunJanitor(ctx, limiter, cfg.SweepInterval, logger)
func RunJanitor(ctx context.Context, s Sweeper, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("ratelimit: janitor started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			logger.Info("ratelimit: janitor stopped")
			return
		case <-ticker.C:
			sweepOnce(ctx, s, logger)
		}
	}
}

func sweepOnce(ctx context.Context, s Sweeper, logger *slog.Logger) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		logger.Error("ratelimit: sweep failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Debug("ratelimit: swept expired windows", "removed", removed)
	}
}
