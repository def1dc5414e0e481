package service

import (
	"context"
	"time"

	"github.com/yamar8/lovetree-backend/internal/store"

	"go.uber.org/zap"
)

const (
	DefaultCleanupInterval = 24 * time.Hour
	DefaultCleanupGrace    = 7 * 24 * time.Hour
)

// AccountCleanup deletes accounts that registered but never verified. An
// account goes once its code has been expired for longer than grace. Runs
// every interval until ctx is cancelled.
func AccountCleanup(ctx context.Context, interval, grace time.Duration, users *store.Users) {
	ticker := time.NewTicker(interval)

	zap.L().Debug("Account cleanup attached", zap.Duration("tick_every", interval), zap.Duration("grace", grace))

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				CleanupOnce(ctx, grace, users)
			}
		}
	}()
}

// CleanupOnce runs a single cleanup pass and returns how many accounts were removed
func CleanupOnce(ctx context.Context, grace time.Duration, users *store.Users) int64 {
	n, err := users.DeleteStaleUnverified(ctx, time.Now().Add(-grace))
	if err != nil {
		zap.L().Error("Failed to delete stale accounts", zap.Error(err))
		return 0
	}

	zap.L().Debug("Account cleanup finished", zap.Int64("deleted", n))
	return n
}
