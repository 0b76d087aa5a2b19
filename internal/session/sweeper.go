package session

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically removes
// sessions abandoned for longer than ttl, so half-finished collections
// do not accumulate for the lifetime of the process.
func StartSweeper(ctx context.Context, reg *Registry, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if removed := reg.sweep(ttl); removed > 0 {
					slog.Info("session sweeper removed expired sessions", "count", removed)
				}
			case <-ctx.Done():
				slog.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
