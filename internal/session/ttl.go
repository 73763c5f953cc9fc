package session

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper evicts idle sessions every interval until ctx is done.
func StartSweeper(ctx context.Context, m *Manager, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if removed := m.Sweep(ttl); removed > 0 {
					slog.Info("Session sweeper evicted idle sessions", "count", removed, "remaining", m.Len())
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
