package service

import (
	"context"
	"log/slog"
	"time"
)

// TokenCleaner deletes dead refresh tokens.
type TokenCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// StartTokenSweeper purges revoked and expired refresh tokens every
// interval until done is closed.  A non-positive interval disables it.
func StartTokenSweeper(store TokenCleaner, interval time.Duration, done <-chan struct{}) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweepOnce(store)
			case <-done:
				return
			}
		}
	}()
}

func sweepOnce(store TokenCleaner) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := store.CleanupExpired(ctx)
	if err != nil {
		slog.Error("refresh token cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("refresh token cleanup completed", "deleted", n)
	}
}
