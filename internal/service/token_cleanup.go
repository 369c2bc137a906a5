package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type TokenSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// TokenCleanup periodically drops expired verification tokens until ctx is
// done. A failed sweep is logged and retried on the next tick.
func TokenCleanup(ctx context.Context, t time.Duration, s TokenSweeper) {
	ticker := time.NewTicker(t)
	defer ticker.Stop()

	zap.L().Debug("Token cleanup attached", zap.Duration("tick_every", t))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				zap.L().Error("Failed to clean up expired verification tokens", zap.Error(err))
				continue
			}

			if n > 0 {
				zap.L().Debug("Cleaned up expired verification tokens", zap.Int64("count", n))
			}
		}
	}
}
