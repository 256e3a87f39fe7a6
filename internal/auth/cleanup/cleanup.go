package cleanup

import (
	"context"
	"time"

	"github.com/cipher-calc/backend/internal/common/constants"
	"github.com/cipher-calc/backend/internal/common/db"
	"github.com/cipher-calc/backend/internal/common/logger"
	"github.com/cipher-calc/backend/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartRefreshTokenCleanup deletes expired ledger rows on an hourly tick.
// Revoked-but-unexpired rows stay until expiry so replay attempts keep
// hitting a revoked record instead of a missing one.
func StartRefreshTokenCleanup(ctx context.Context, ledger ExpiredDeleter, log *logger.Logger) {
	ticker := time.NewTicker(constants.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var deleted int64
			err := db.RetryWithBackoff(ctx, log, db.DefaultRetryConfig, func() error {
				var opErr error
				deleted, opErr = ledger.DeleteExpired(ctx)
				return opErr
			})
			if err != nil {
				log.Errorf("refresh token cleanup failed: %v", err)
				continue
			}
			if deleted > 0 {
				metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
				log.Infof("refresh token cleanup: deleted %d expired rows", deleted)
			}
		}
	}
}
